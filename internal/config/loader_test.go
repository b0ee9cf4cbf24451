package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodels_dir: /tmp\nmodel: tiny.gguf\ncontext_size: 2048\ngpu_layers: 0\ncors_origins: [\"http://a\", \"http://b\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.Model != "tiny.gguf" || cfg.ContextSize != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.GPULayers == nil || *cfg.GPULayers != 0 {
		t.Fatalf("explicit zero gpu_layers lost: %v", cfg.GPULayers)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://a", "http://b"}) {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_path":"/m/x.gguf","seed":7,"max_concurrent":2,"load_on_start":true}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelPath != "/m/x.gguf" || cfg.Seed == nil || *cfg.Seed != 7 || cfg.MaxConcurrent != 2 || !cfg.LoadOnStart {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\nbatch_size=256\nkeepalive_seconds=5\nlog_format=\"json\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.BatchSize != 256 || cfg.KeepAliveSeconds != 5 || cfg.LogFormat != "json" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.Addr != "127.0.0.1:5005" || c.ContextSize != 4096 || c.BatchSize != 512 || *c.Seed != 42 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.GPULayers == nil || *c.GPULayers != 99 || c.KeepAliveSeconds != 15 || c.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestOverlay_SetFieldsWin(t *testing.T) {
	zero := 0
	file := Config{Addr: ":1", ModelsDir: "/models", GPULayers: &zero, CORSOrigins: []string{"*"}}
	c := Defaults().Overlay(file)
	if c.Addr != ":1" || c.ModelsDir != "/models" || *c.GPULayers != 0 || c.CORSOrigins[0] != "*" {
		t.Fatalf("overlay lost fields: %+v", c)
	}
	if c.ContextSize != 4096 || c.LogLevel != "info" {
		t.Fatalf("overlay clobbered defaults: %+v", c)
	}
	zero = 5
	if *c.GPULayers != 0 {
		t.Fatalf("overlay must copy pointer values")
	}
}

func TestSet(t *testing.T) {
	c := Defaults()
	for k, v := range map[string]string{
		"max_concurrent": "8",
		"seed":           "1234",
		"load_on_start":  "true",
		"gpu_layers":     "0",
		"cors_methods":   "GET, POST,,",
		"max_body_bytes": "2048",
	} {
		if err := c.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if c.MaxConcurrent != 8 || *c.Seed != 1234 || !c.LoadOnStart || *c.GPULayers != 0 || c.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected cfg: %+v", c)
	}
	if !reflect.DeepEqual(c.CORSMethods, []string{"GET", "POST"}) {
		t.Fatalf("unexpected methods: %v", c.CORSMethods)
	}
	if err := c.Set("context_size", "big"); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := c.Set("nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"INFERD_ADDR": "0.0.0.0:9000", "INFERD_STREAM_BUFFER": "-1"}
	c := Defaults()
	err := c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Addr != "0.0.0.0:9000" || c.StreamBuffer != -1 || c.ContextSize != 4096 {
		t.Fatalf("unexpected cfg: %+v", c)
	}
	bad := func(k string) (string, bool) {
		if k == "INFERD_THREADS" {
			return "many", true
		}
		return "", false
	}
	if err := c.ApplyEnv(bad); err == nil {
		t.Fatalf("expected error for malformed env value")
	}
}

func TestKeysAreSettable(t *testing.T) {
	c := Defaults()
	for _, k := range Keys() {
		v := "1"
		if k == "load_on_start" || k == "cors_enabled" {
			v = "true"
		}
		if err := c.Set(k, v); err != nil {
			t.Fatalf("key %s not settable: %v", k, err)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
	}
}

func TestZeroSeedSurvivesFileAndSet(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.yaml", "seed: 0\n")
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c := Defaults().Overlay(fc)
	if c.Seed == nil || *c.Seed != 0 {
		t.Fatalf("file seed 0 lost: %v", c.Seed)
	}
	c = Defaults()
	if err := c.Set("seed", "0"); err != nil || *c.Seed != 0 {
		t.Fatalf("Set seed 0: %v %v", err, c.Seed)
	}
}
