package manager

import "context"

// Unload clears the slot and releases the installed model. It waits for all
// in-flight generations to release their shared views and never fails;
// unloading an empty slot is a no-op.
func (m *Manager) Unload() {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	// Background context: an unload always completes once readers drain.
	_ = m.guard.acquireExclusive(context.Background())
	old := m.slot.model
	m.slot = slot{}
	m.desc.Store(&Descriptor{})
	m.guard.releaseExclusive()

	m.setState(StateUnloaded, "")
	if old == nil {
		return
	}
	if err := old.Close(); err != nil {
		m.log.Warn().Err(err).Msg("release unloaded model")
	}
	m.mu.Lock()
	m.unloads++
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "unload_done", Fields: map[string]any{}})
	m.log.Info().Msg("model unloaded")
}
