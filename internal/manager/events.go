package manager

import "github.com/rs/zerolog"

// Event is a lifecycle event: load_start, load_fallback, load_done,
// load_failed, unload_done or cancel.
type Event struct {
	Name   string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	p.Log.Debug().Str("event", e.Name).Fields(e.Fields).Msg("manager event")
}

// SetEventPublisher replaces the publisher; nil restores the no-op default.
// Call it before the manager is shared.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}
