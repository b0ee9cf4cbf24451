package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
)

// Manager owns the model slot and everything that contends for it: loads,
// unloads, generations, the cancellation epoch and usage metrics.
type Manager struct {
	backend       engine.Backend
	modelPath     string
	contextSize   int
	batchSize     int
	seed          uint32
	streamBuffer  int
	maxConcurrent int

	guard *slotGuard
	slot  slot
	desc  atomic.Pointer[Descriptor]

	// loadMu serializes loads and unloads among themselves; the guard
	// serializes them against generations.
	loadMu sync.Mutex

	mu        sync.RWMutex
	state     State
	lastErr   string
	loads     uint64
	fallbacks uint64
	unloads   uint64

	epoch    atomic.Uint64
	metrics  metricsAggregator
	inflight atomic.Int64

	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

func newManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		backend:       cfg.Backend,
		modelPath:     cfg.ModelPath,
		contextSize:   cfg.ContextSize,
		batchSize:     cfg.BatchSize,
		seed:          *cfg.Seed,
		streamBuffer:  cfg.StreamBuffer,
		maxConcurrent: cfg.MaxConcurrent,
		guard:         newSlotGuard(cfg.MaxConcurrent),
		state:         StateUnloaded,
		publisher:     cfg.Publisher,
		log:           cfg.Logger.With().Str("component", "manager").Logger(),
		startTime:     time.Now(),
	}
	m.desc.Store(&Descriptor{})
	return m
}

// Ready reports whether a model is installed.
func (m *Manager) Ready() bool { return m.desc.Load().Loaded() }

// Health returns whether a model is loaded and how it is accelerated. It never
// waits on the slot guard.
func (m *Manager) Health() Health {
	d := m.desc.Load()
	return Health{ModelLoaded: d.Loaded(), Acceleration: d.Acceleration}
}

// Descriptor returns the current acceleration descriptor.
func (m *Manager) Descriptor() Descriptor { return *m.desc.Load() }

// Metrics returns a consistent snapshot of the usage counters.
func (m *Manager) Metrics() Metrics { return m.metrics.snapshot() }

// ModelPath is the configured weight file.
func (m *Manager) ModelPath() string { return m.modelPath }

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	m.lastErr = errMsg
	m.mu.Unlock()
}
