// Package registry discovers weight files in a models directory.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inferd/internal/common/fsutil"
)

// Entry is one *.gguf file found on disk.
type Entry struct {
	// Name is the file name including extension, e.g. "llama-3.1-8b-q4_k_m.gguf".
	Name string
	// Path is the absolute file path.
	Path string
	Size int64
}

// ErrAmbiguous is returned by Resolve when no name is given and the directory
// holds more than one weight file.
var ErrAmbiguous = errors.New("several weight files found, name one")

// LoadDir scans a directory for *.gguf files, sorted by name.
func LoadDir(dir string) ([]Entry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: name, Path: filepath.Join(abs, name), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve picks the weight file called name in dir; the ".gguf" suffix may be
// omitted. With an empty name the directory must hold exactly one file.
func Resolve(dir, name string) (string, error) {
	entries, err := LoadDir(dir)
	if err != nil {
		return "", err
	}
	if name == "" {
		switch len(entries) {
		case 0:
			return "", fmt.Errorf("no *.gguf files in %s: %w", dir, os.ErrNotExist)
		case 1:
			return entries[0].Path, nil
		default:
			return "", fmt.Errorf("%s: %w", dir, ErrAmbiguous)
		}
	}
	for _, e := range entries {
		if e.Name == name || strings.TrimSuffix(strings.ToLower(e.Name), ".gguf") == strings.ToLower(name) {
			return e.Path, nil
		}
	}
	return "", fmt.Errorf("model %q in %s: %w", name, dir, os.ErrNotExist)
}

// ModelPath returns the weight file to serve: explicit when set, otherwise
// resolved from dir and name.
func ModelPath(explicit, dir, name string) (string, error) {
	if explicit != "" {
		return fsutil.ExpandHome(explicit)
	}
	if dir == "" {
		return "", errors.New("neither model_path nor models_dir is configured")
	}
	return Resolve(dir, name)
}
