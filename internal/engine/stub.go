//go:build !yzma

package engine

import "fmt"

// stubBackend satisfies Backend without any native runtime. Every load fails
// fast so the gateway keeps serving health, metrics and lifecycle endpoints.
type stubBackend struct{}

// New returns the backend compiled into this binary.
func New(opts Options) (Backend, error) {
	return stubBackend{}, nil
}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) SupportsGPUOffload() bool { return false }

func (stubBackend) LoadModel(path string, gpuLayers int) (Model, error) {
	return nil, fmt.Errorf("load %s (gpu_layers=%d): %w (build with -tags=yzma)", path, gpuLayers, ErrUnavailable)
}

func (stubBackend) Close() error { return nil }
