package manager

import (
	"time"

	"inferd/internal/engine"
)

// State is the lifecycle state of the model slot.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
)

// Acceleration records where the installed model computes.
type Acceleration int

const (
	AccelUnloaded Acceleration = iota
	AccelCPU
	AccelGPU
)

func (a Acceleration) String() string {
	switch a {
	case AccelGPU:
		return "GPU"
	case AccelCPU:
		return "CPU"
	default:
		return "None"
	}
}

// slot holds at most one loaded model. It is written only under exclusive
// guard access and read by workers under shared access.
// Invariants: accel == AccelUnloaded iff model == nil; gpuLayers > 0 implies AccelGPU.
type slot struct {
	model     engine.Model
	accel     Acceleration
	gpuLayers int
	path      string
}

// Descriptor is a lock-free copy of the slot's acceleration descriptor.
type Descriptor struct {
	Acceleration Acceleration
	GPULayers    int
	Path         string
	LoadedAt     time.Time
}

// Loaded reports whether a model is installed.
func (d Descriptor) Loaded() bool { return d.Acceleration != AccelUnloaded }

// LoadResult describes a successful load.
type LoadResult struct {
	Acceleration Acceleration
	GPULayers    int
	Path         string
	// Fallback is true when the accelerated attempt failed and the CPU retry succeeded.
	Fallback bool
}

// Request is one generation request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Stop        []string
	Temperature float64
	// Seed overrides the configured sampler seed when non-nil.
	Seed *uint32
}

// Outcome is the terminal state of a generation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Summary reports how a generation ended. It is available from
// Generation.Wait once the item channel has been closed.
type Summary struct {
	ID      string
	Outcome Outcome
	Tokens  int
	Elapsed time.Duration
	// Counted is true when the generation reached the decoding phase and was
	// recorded in Metrics.
	Counted bool
	// ReceiverGone is true when the consumer went away mid-stream.
	ReceiverGone bool
	// StopSequence is the stop sequence that ended the generation, if any.
	StopSequence string
	Err          error
}

// Health is the minimal view used by GET /health.
type Health struct {
	ModelLoaded  bool
	Acceleration Acceleration
}
