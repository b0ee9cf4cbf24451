package manager

import (
	"time"

	"inferd/pkg/types"
)

// Status builds a detailed status response for /status. It does not wait on
// the slot guard, so it answers while a load is in progress.
func (m *Manager) Status() types.StatusResponse {
	d := m.desc.Load()
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(m.state),
		Acceleration:   d.Acceleration.String(),
		GPULayers:      d.GPULayers,
		ModelPath:      m.modelPath,
		Epoch:          m.epoch.Load(),
		Inflight:       m.inflight.Load(),
		MaxConcurrent:  m.maxConcurrent,
		LoadsTotal:     m.loads,
		FallbacksTotal: m.fallbacks,
		UnloadsTotal:   m.unloads,
		LastError:      m.lastErr,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if d.Loaded() {
		resp.LoadedAtUnix = d.LoadedAt.Unix()
	}
	return resp
}
