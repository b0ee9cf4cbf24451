package manager

// Cancel advances the cancellation epoch and returns the new value. Every
// generation that captured an older epoch stops at its next decode step; those
// admitted after Cancel returns capture the new epoch and run normally.
func (m *Manager) Cancel() uint64 {
	e := m.epoch.Add(1)
	cancellationsTotal.Inc()
	m.publisher.Publish(Event{Name: "cancel", Fields: map[string]any{"epoch": e, "inflight": m.inflight.Load()}})
	m.log.Info().Uint64("epoch", e).Int64("inflight", m.inflight.Load()).Msg("cancellation requested")
	return e
}

// Epoch returns the current cancellation epoch.
func (m *Manager) Epoch() uint64 { return m.epoch.Load() }

func (m *Manager) cancelled(captured uint64) bool { return m.epoch.Load() != captured }
