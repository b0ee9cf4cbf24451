package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"inferd/internal/config"
)

func newRootCmd() *cobra.Command {
	d := config.Defaults()
	root := &cobra.Command{
		Use:   "inferd",
		Short: "Local LLM inference server",
		Long: "inferd serves one local GGUF model over HTTP: load and unload it, generate text\n" +
			"synchronously or as Server-Sent Events, cancel running generations and report usage.\n\n" +
			"Settings come from built-in defaults, then --config, then INFERD_* environment\n" +
			"variables, then flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	f := root.Flags()
	f.String("config", "", "Config file (.yaml, .yml, .json or .toml); INFERD_CONFIG")
	f.String("addr", d.Addr, "HTTP listen address")
	f.String("model-path", "", "Weight file to serve")
	f.String("models-dir", "", "Directory scanned for *.gguf when --model-path is unset")
	f.String("model", "", "File name in --models-dir; optional when it holds a single file")
	f.String("lib-path", "", "Directory with the llama.cpp shared libraries (yzma builds)")
	f.Int("context-size", d.ContextSize, "Context window in tokens")
	f.Int("batch-size", d.BatchSize, "Prompt evaluation batch size")
	f.Int("threads", 0, "CPU threads per context (0 = engine default)")
	f.Uint32("seed", *d.Seed, "Default sampler seed")
	f.Int("max-concurrent", d.MaxConcurrent, "Generations allowed to run at once")
	f.Int("stream-buffer", d.StreamBuffer, "Fragments buffered per generation (-1 = unbuffered)")
	f.Int("keepalive-seconds", d.KeepAliveSeconds, "Idle interval between SSE keep-alives (-1 disables)")
	f.Int64("max-body-bytes", d.MaxBodyBytes, "Maximum JSON request body size")
	f.Bool("load-on-start", false, "Load the model before serving")
	f.Int("gpu-layers", *d.GPULayers, "Layers offloaded by --load-on-start")
	f.String("log-level", d.LogLevel, "Log level: debug|info|warn|error")
	f.String("log-format", d.LogFormat, "Log format: console|json")
	f.Bool("cors-enabled", false, "Enable CORS")
	f.String("cors-origins", "", "Comma-separated allowed origins")
	f.String("cors-methods", strings.Join(d.CORSMethods, ","), "Comma-separated allowed methods")
	f.String("cors-headers", strings.Join(d.CORSHeaders, ","), "Comma-separated allowed headers")
	return root
}

// resolveConfig layers defaults, the config file, INFERD_* variables and the
// flags the user actually set, in that order.
func resolveConfig(flags *pflag.FlagSet, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Defaults()

	path, _ := flags.GetString("config")
	if path == "" {
		path, _ = lookup(config.EnvPrefix + "CONFIG")
	}
	if path != "" {
		fc, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = cfg.Overlay(fc)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	var ferr error
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || ferr != nil {
			return
		}
		ferr = cfg.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})
	return cfg, ferr
}
