package manager

import (
	"github.com/rs/zerolog"

	"inferd/internal/engine"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultContextSize   = 4096
	defaultBatchSize     = 512
	defaultSeed          = 42
	defaultMaxConcurrent = 4
	defaultStreamBuffer  = 16

	// DefaultGPULayers is requested when a load does not name a layer count.
	DefaultGPULayers = 99
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Backend engine.Backend
	// ModelPath is the server-configured weight file.
	ModelPath   string
	ContextSize int
	BatchSize   int
	// Seed is the default sampler seed; nil selects 42. Zero is a valid seed.
	Seed          *uint32
	MaxConcurrent int
	// StreamBuffer is the capacity of each generation's item channel.
	StreamBuffer int
	Logger       zerolog.Logger
	Publisher    EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = defaultContextSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Seed == nil {
		seed := uint32(defaultSeed)
		cfg.Seed = &seed
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.StreamBuffer < 0 {
		cfg.StreamBuffer = 0
	} else if cfg.StreamBuffer == 0 {
		cfg.StreamBuffer = defaultStreamBuffer
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	return newManager(cfg)
}
