// Package engine defines the contract between inferd and the numerical
// inference engine. Tokenization, attention, sampling math and the KV cache
// all live behind these interfaces; inferd only drives them.
//
// Build tags:
//
//   - yzma: in-process llama.cpp through github.com/hybridgroup/yzma (purego,
//     no CGO). The shared libraries are located via Options.LibPath.
//   - default: a stub backend that initializes but refuses to load models,
//     keeping default builds and CI free of native dependencies.
package engine

import (
	"errors"
	"math"
)

// Token is a vocabulary id produced by tokenization or sampling.
type Token int32

// ErrUnavailable is returned by backends that cannot run inference in this build.
var ErrUnavailable = errors.New("inference backend not available in this build")

// Options configures backend initialization.
type Options struct {
	// LibPath is the directory holding the llama.cpp shared libraries (yzma only).
	LibPath string
	// Threads is the number of CPU threads used per context (0 = backend default).
	Threads int
}

// Backend owns process-wide engine state and loads models.
type Backend interface {
	// Name identifies the backend in logs and status reports.
	Name() string
	// SupportsGPUOffload reports whether layers can be offloaded to an accelerator.
	SupportsGPUOffload() bool
	// LoadModel loads a weight file with gpuLayers offloaded (0 = CPU only).
	LoadModel(path string, gpuLayers int) (Model, error)
	// Close releases backend resources.
	Close() error
}

// Model is a loaded weight file. Implementations must allow several Contexts
// to be created and used concurrently over one Model.
type Model interface {
	NewContext(opts ContextOptions) (Context, error)
	Tokenize(text string) ([]Token, error)
	// TokenToText decodes one token to its text fragment, which may be empty
	// or a partial word.
	TokenToText(tok Token) string
	IsEndOfSequence(tok Token) bool
	Close() error
}

// ContextOptions sizes a fresh inference context.
type ContextOptions struct {
	WindowSize int
	BatchSize  int
}

// Context is a single-sequence inference context. It is not safe for
// concurrent use.
type Context interface {
	// Decode evaluates tokens placed at consecutive positions starting at pos.
	Decode(tokens []Token, pos int) error
	// Sample draws the next token from the logits of the last decoded position.
	// params must stay the same for the lifetime of the context.
	Sample(pos int, params SampleParams) Token
	Close() error
}

// SampleParams configures the sampler chain temp -> top-k -> top-p -> dist(seed).
type SampleParams struct {
	Temperature float32
	TopK        int
	TopP        float32
	Seed        uint32
}

// LayerCount converts a requested offload layer count to the engine's int32
// field, saturating instead of wrapping. Negative counts become zero.
func LayerCount(n int) int32 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(n)
	}
}
