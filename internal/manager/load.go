package manager

import (
	"context"
	"time"

	"inferd/internal/common/fsutil"
	"inferd/internal/engine"
)

// Load loads the configured weight file with gpuLayers offloaded, retrying
// once on CPU when the accelerated attempt fails, and installs the result in
// the slot. The engine load runs before exclusive access is taken; only the
// swap waits for in-flight generations to finish. On failure the slot keeps
// whatever it held before.
func (m *Manager) Load(ctx context.Context, gpuLayers int) (LoadResult, error) {
	path := m.modelPath
	if err := fsutil.RegularFile(path); err != nil {
		return LoadResult{}, newError(KindNotFound, "weight file not found: "+path, err)
	}
	if gpuLayers < 0 {
		gpuLayers = 0
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	prev := m.stateAfterLoad()
	m.setState(StateLoading, "")
	m.publisher.Publish(Event{Name: "load_start", Fields: map[string]any{"path": path, "gpu_layers": gpuLayers}})
	m.log.Info().Str("path", path).Int("gpu_layers", gpuLayers).Msg("loading model")

	model, res, err := m.loadWithFallback(path, gpuLayers)
	if err != nil {
		modelLoadsTotal.WithLabelValues("failed").Inc()
		lerr := newError(KindLoadFailure, "model load failed", err)
		m.setState(prev, lerr.Error())
		m.publisher.Publish(Event{Name: "load_failed", Fields: map[string]any{"path": path, "error": err.Error()}})
		m.log.Error().Err(err).Str("path", path).Msg("model load failed, slot unchanged")
		return LoadResult{}, lerr
	}

	if err := m.guard.acquireExclusive(ctx); err != nil {
		_ = model.Close()
		m.setState(prev, "")
		return LoadResult{}, err
	}
	old := m.slot.model
	m.slot = slot{model: model, accel: res.Acceleration, gpuLayers: res.GPULayers, path: path}
	m.desc.Store(&Descriptor{Acceleration: res.Acceleration, GPULayers: res.GPULayers, Path: path, LoadedAt: time.Now()})
	m.guard.releaseExclusive()

	if old != nil {
		if err := old.Close(); err != nil {
			m.log.Warn().Err(err).Msg("release replaced model")
		}
	}

	m.mu.Lock()
	m.state = StateReady
	m.lastErr = ""
	m.loads++
	if res.Fallback {
		m.fallbacks++
	}
	m.mu.Unlock()
	modelLoadsTotal.WithLabelValues(res.Acceleration.String()).Inc()
	m.publisher.Publish(Event{Name: "load_done", Fields: map[string]any{
		"path": path, "acceleration": res.Acceleration.String(), "gpu_layers": res.GPULayers, "fallback": res.Fallback,
	}})
	m.log.Info().Str("acceleration", res.Acceleration.String()).Int("gpu_layers", res.GPULayers).Bool("fallback", res.Fallback).Msg("model installed")
	return res, nil
}

// loadWithFallback tries gpuLayers first and, on failure, retries once with
// zero layers. Only a retry after a GPU attempt counts as a fallback.
func (m *Manager) loadWithFallback(path string, gpuLayers int) (engine.Model, LoadResult, error) {
	if m.backend == nil {
		return nil, LoadResult{}, engine.ErrUnavailable
	}
	model, err := m.backend.LoadModel(path, gpuLayers)
	if err == nil {
		accel := AccelCPU
		if gpuLayers > 0 {
			accel = AccelGPU
		}
		return model, LoadResult{Acceleration: accel, GPULayers: gpuLayers, Path: path}, nil
	}
	m.log.Warn().Err(err).Int("gpu_layers", gpuLayers).Msg("load failed, retrying on CPU")
	m.publisher.Publish(Event{Name: "load_fallback", Fields: map[string]any{"path": path, "gpu_layers": gpuLayers, "error": err.Error()}})
	model, err = m.backend.LoadModel(path, 0)
	if err != nil {
		return nil, LoadResult{}, err
	}
	return model, LoadResult{Acceleration: AccelCPU, GPULayers: 0, Path: path, Fallback: gpuLayers > 0}, nil
}

// stateAfterLoad is the state to return to when a load does not install anything.
func (m *Manager) stateAfterLoad() State {
	if m.Ready() {
		return StateReady
	}
	return StateUnloaded
}
