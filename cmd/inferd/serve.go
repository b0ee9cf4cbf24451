package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/registry"
)

const shutdownTimeout = 5 * time.Second

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level %q: %w", level, err)
	}
	var l zerolog.Logger
	switch format {
	case "json":
		l = zerolog.New(os.Stderr)
	case "console", "":
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	default:
		return zerolog.Logger{}, fmt.Errorf("unknown log format %q", format)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

func keepAliveInterval(seconds int) time.Duration {
	if seconds < 0 {
		return -1
	}
	return time.Duration(seconds) * time.Second
}

// serve runs the HTTP server until ctx ends. Only engine backend
// initialization failures are fatal; a missing or unloadable model is
// reported and the server still starts.
func serve(ctx context.Context, cfg config.Config) error {
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetKeepAlive(keepAliveInterval(cfg.KeepAliveSeconds))
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	httpapi.SetBaseContext(ctx)

	modelPath, err := registry.ModelPath(cfg.ModelPath, cfg.ModelsDir, cfg.Model)
	if err != nil {
		log.Warn().Err(err).Msg("no weight file resolved; /load will report not found")
	}

	backend, err := engine.New(engine.Options{LibPath: cfg.LibPath, Threads: cfg.Threads})
	if err != nil {
		return fmt.Errorf("engine backend: %w", err)
	}
	defer backend.Close()

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Backend:       backend,
		ModelPath:     modelPath,
		ContextSize:   cfg.ContextSize,
		BatchSize:     cfg.BatchSize,
		Seed:          cfg.Seed,
		MaxConcurrent: cfg.MaxConcurrent,
		StreamBuffer:  cfg.StreamBuffer,
		Logger:        log,
		Publisher:     manager.LogPublisher{Log: log.With().Str("component", "events").Logger()},
	})

	rep := mgr.SanityCheck()
	ev := log.Info()
	if rep.Error != "" {
		ev = log.Warn().Str("problem", rep.Error)
	}
	ev.Str("backend", rep.Backend).Bool("gpu_offload", rep.GPUOffload).Str("model_path", rep.ModelPath).
		Bool("model_found", rep.ModelFound).Msg("sanity check")

	if cfg.LoadOnStart {
		layers := manager.DefaultGPULayers
		if cfg.GPULayers != nil {
			layers = *cfg.GPULayers
		}
		if _, err := mgr.Load(ctx, layers); err != nil {
			log.Error().Err(err).Msg("load on start failed; serving without a model")
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown error")
		}
	}
	mgr.Cancel()
	mgr.Unload()
	return nil
}
