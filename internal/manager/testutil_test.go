package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inferd/internal/engine/enginetest"
)

// createModelFile creates a small placeholder weight file and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return p
}

// newTestManager wires b to a manager serving a fresh weight file. Fields of
// cfg other than Backend and ModelPath are passed through.
func newTestManager(t *testing.T, b *enginetest.Backend, cfg ManagerConfig) *Manager {
	t.Helper()
	cfg.Backend = b
	if cfg.ModelPath == "" {
		cfg.ModelPath = createModelFile(t, t.TempDir(), "model.gguf")
	}
	return NewWithConfig(cfg)
}

// loadedManager is newTestManager followed by a successful GPU load.
func loadedManager(t *testing.T, model *enginetest.Model, cfg ManagerConfig) (*Manager, *enginetest.Backend) {
	t.Helper()
	b := &enginetest.Backend{GPU: true, Model: model}
	m := newTestManager(t, b, cfg)
	if _, err := m.Load(testCtx(t), DefaultGPULayers); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, b
}

// drain reads every item of g and returns the fragments, the summary and the
// terminal error item, if any.
func drain(t *testing.T, g *Generation) ([]string, Summary, error) {
	t.Helper()
	var texts []string
	var terr error
	timeout := time.After(2 * time.Second)
	for {
		select {
		case it, ok := <-g.Items():
			if !ok {
				return texts, g.Wait(), terr
			}
			if it.Err != nil {
				terr = it.Err
				continue
			}
			texts = append(texts, it.Text)
		case <-timeout:
			t.Fatalf("generation %s did not finish", g.ID)
		}
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func seedOf(v uint32) *uint32 { return &v }
