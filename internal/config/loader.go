package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. INFERD_ADDR.
const EnvPrefix = "INFERD_"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Defaults supplies the built-in values.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	LibPath   string `json:"lib_path" yaml:"lib_path" toml:"lib_path"`

	ContextSize   int     `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize     int     `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads"`
	Seed          *uint32 `json:"seed" yaml:"seed" toml:"seed"`
	MaxConcurrent int     `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	StreamBuffer  int     `json:"stream_buffer" yaml:"stream_buffer" toml:"stream_buffer"`

	KeepAliveSeconds int   `json:"keepalive_seconds" yaml:"keepalive_seconds" toml:"keepalive_seconds"`
	MaxBodyBytes     int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	LoadOnStart bool `json:"load_on_start" yaml:"load_on_start" toml:"load_on_start"`
	// GPULayers is used by load-on-start. Nil means 99.
	GPULayers *int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	layers := 99
	seed := uint32(42)
	return Config{
		Addr:             "127.0.0.1:5005",
		ContextSize:      4096,
		BatchSize:        512,
		Seed:             &seed,
		MaxConcurrent:    4,
		StreamBuffer:     16,
		KeepAliveSeconds: 15,
		MaxBodyBytes:     1 << 20,
		GPULayers:        &layers,
		LogLevel:         "info",
		LogFormat:        "console",
		CORSMethods:      []string{"GET", "POST", "OPTIONS"},
		CORSHeaders:      []string{"Content-Type", "X-Log-Level"},
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Overlay returns c with every field that is set in o replaced.
func (c Config) Overlay(o Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	list := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	str(&c.Addr, o.Addr)
	str(&c.ModelPath, o.ModelPath)
	str(&c.ModelsDir, o.ModelsDir)
	str(&c.Model, o.Model)
	str(&c.LibPath, o.LibPath)
	num(&c.ContextSize, o.ContextSize)
	num(&c.BatchSize, o.BatchSize)
	num(&c.Threads, o.Threads)
	if o.Seed != nil {
		v := *o.Seed
		c.Seed = &v
	}
	num(&c.MaxConcurrent, o.MaxConcurrent)
	num(&c.StreamBuffer, o.StreamBuffer)
	num(&c.KeepAliveSeconds, o.KeepAliveSeconds)
	if o.MaxBodyBytes != 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	c.LoadOnStart = c.LoadOnStart || o.LoadOnStart
	if o.GPULayers != nil {
		v := *o.GPULayers
		c.GPULayers = &v
	}
	str(&c.LogLevel, o.LogLevel)
	str(&c.LogFormat, o.LogFormat)
	c.CORSEnabled = c.CORSEnabled || o.CORSEnabled
	list(&c.CORSOrigins, o.CORSOrigins)
	list(&c.CORSMethods, o.CORSMethods)
	list(&c.CORSHeaders, o.CORSHeaders)
	return c
}

// Keys lists every configuration key, in the spelling used by files.
func Keys() []string {
	return []string{
		"addr", "model_path", "models_dir", "model", "lib_path",
		"context_size", "batch_size", "threads", "seed", "max_concurrent", "stream_buffer",
		"keepalive_seconds", "max_body_bytes", "load_on_start", "gpu_layers",
		"log_level", "log_format", "cors_enabled", "cors_origins", "cors_methods", "cors_headers",
	}
}

// Set assigns a single key from its string form. List keys take a
// comma-separated value.
func (c *Config) Set(key, value string) error {
	var err error
	atoi := func(dst *int) {
		var n int
		if n, err = strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*dst = n
		}
	}
	boolean := func(dst *bool) {
		var b bool
		if b, err = strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*dst = b
		}
	}
	switch key {
	case "addr":
		c.Addr = value
	case "model_path":
		c.ModelPath = value
	case "models_dir":
		c.ModelsDir = value
	case "model":
		c.Model = value
	case "lib_path":
		c.LibPath = value
	case "context_size":
		atoi(&c.ContextSize)
	case "batch_size":
		atoi(&c.BatchSize)
	case "threads":
		atoi(&c.Threads)
	case "seed":
		var n uint64
		if n, err = strconv.ParseUint(strings.TrimSpace(value), 10, 32); err == nil {
			seed := uint32(n)
			c.Seed = &seed
		}
	case "max_concurrent":
		atoi(&c.MaxConcurrent)
	case "stream_buffer":
		atoi(&c.StreamBuffer)
	case "keepalive_seconds":
		atoi(&c.KeepAliveSeconds)
	case "max_body_bytes":
		c.MaxBodyBytes, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	case "load_on_start":
		boolean(&c.LoadOnStart)
	case "gpu_layers":
		var n int
		atoi(&n)
		if err == nil {
			c.GPULayers = &n
		}
	case "log_level":
		c.LogLevel = value
	case "log_format":
		c.LogFormat = value
	case "cors_enabled":
		boolean(&c.CORSEnabled)
	case "cors_origins":
		c.CORSOrigins = SplitCSV(value)
	case "cors_methods":
		c.CORSMethods = SplitCSV(value)
	case "cors_headers":
		c.CORSHeaders = SplitCSV(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("config %s=%q: %w", key, value, err)
	}
	return nil
}

// ApplyEnv sets every key whose INFERD_<KEY> variable is present.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, k := range Keys() {
		if v, ok := lookup(EnvPrefix + strings.ToUpper(k)); ok {
			if err := c.Set(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming spaces and dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
