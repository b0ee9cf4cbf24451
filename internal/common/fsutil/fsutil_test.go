package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	cases := map[string]string{
		"":                "",
		"/abs/path":       "/abs/path",
		"rel/path":        "rel/path",
		"~":               home,
		"~/models/a.gguf": filepath.Join(home, "models", "a.gguf"),
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegularFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "w.gguf")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RegularFile(p); err != nil {
		t.Fatalf("expected regular file, got %v", err)
	}
	if err := RegularFile(filepath.Join(dir, "missing.gguf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
	if err := RegularFile(""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist for empty path, got %v", err)
	}
	if err := RegularFile(dir); !errors.Is(err, ErrNotRegular) {
		t.Fatalf("expected ErrNotRegular for dir, got %v", err)
	}
}
