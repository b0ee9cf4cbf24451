// Package enginetest provides a scripted in-memory engine for tests.
//
// Tokenization yields one token per whitespace-separated word. Sampling walks
// Script in order; once the script is exhausted the end-of-sequence token is
// returned unless Endless is set, in which case the script repeats.
package enginetest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"inferd/internal/engine"
)

// EOS is the end-of-sequence token of every scripted model.
const EOS engine.Token = 2

const (
	promptBase engine.Token = 100
	scriptBase engine.Token = 1000
)

// LoadCall records one LoadModel invocation.
type LoadCall struct {
	Path      string
	GPULayers int
}

// Backend is a scripted engine.Backend.
type Backend struct {
	// GPU is reported by SupportsGPUOffload.
	GPU bool
	// FailGPU makes every load with gpuLayers > 0 fail.
	FailGPU bool
	// LoadErr, when set, makes every load fail with it.
	LoadErr error
	// Model is the template copied into every successful load. Nil loads an
	// empty script.
	Model *Model

	mu     sync.Mutex
	calls  []LoadCall
	loaded []*Model
}

// ErrGPU is the failure returned for accelerated loads when FailGPU is set.
var ErrGPU = errors.New("accelerator out of memory")

func (b *Backend) Name() string { return "enginetest" }

func (b *Backend) SupportsGPUOffload() bool { return b.GPU }

func (b *Backend) LoadModel(path string, gpuLayers int) (engine.Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, LoadCall{Path: path, GPULayers: gpuLayers})
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	if gpuLayers > 0 && b.FailGPU {
		return nil, ErrGPU
	}
	tmpl := b.Model
	if tmpl == nil {
		tmpl = &Model{}
	}
	m := tmpl.clone()
	b.loaded = append(b.loaded, m)
	return m, nil
}

func (b *Backend) Close() error { return nil }

// Calls returns a copy of the recorded load calls.
func (b *Backend) Calls() []LoadCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LoadCall(nil), b.calls...)
}

// Loaded returns every model handed out so far, oldest first.
func (b *Backend) Loaded() []*Model {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Model(nil), b.loaded...)
}

// Model is a scripted engine.Model. Configure it before loading; the fields
// are read concurrently afterwards.
type Model struct {
	Script  []string
	Endless bool
	// ContextErr fails NewContext.
	ContextErr error
	// DecodeErrAt fails the n-th Decode call of each context (1-based, 0 = never).
	DecodeErrAt int
	// StepDelay is slept before every single-token decode.
	StepDelay time.Duration
	// Block, when non-nil, stalls every single-token decode until it is closed.
	Block <-chan struct{}

	closed   atomic.Bool
	open     atomic.Int64
	contexts atomic.Int64

	mu      sync.Mutex
	batches []int
	params  []engine.SampleParams
}

func (m *Model) clone() *Model {
	return &Model{
		Script:      append([]string(nil), m.Script...),
		Endless:     m.Endless,
		ContextErr:  m.ContextErr,
		DecodeErrAt: m.DecodeErrAt,
		StepDelay:   m.StepDelay,
		Block:       m.Block,
	}
}

// DecodeBatches returns the size of every successful Decode across all
// contexts of this model, in call order.
func (m *Model) DecodeBatches() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

// SampleParams returns the parameters of every Sample call.
func (m *Model) SampleParams() []engine.SampleParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.SampleParams(nil), m.params...)
}

// Closed reports whether the model has been released.
func (m *Model) Closed() bool { return m.closed.Load() }

// OpenContexts is the number of contexts created and not yet closed.
func (m *Model) OpenContexts() int64 { return m.open.Load() }

// ContextsCreated is the total number of contexts created.
func (m *Model) ContextsCreated() int64 { return m.contexts.Load() }

func (m *Model) NewContext(opts engine.ContextOptions) (engine.Context, error) {
	if m.ContextErr != nil {
		return nil, m.ContextErr
	}
	if opts.WindowSize <= 0 || opts.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid context options %+v", opts)
	}
	m.open.Add(1)
	m.contexts.Add(1)
	return &Context{model: m, batch: opts.BatchSize}, nil
}

func (m *Model) Tokenize(text string) ([]engine.Token, error) {
	words := strings.Fields(text)
	out := make([]engine.Token, len(words))
	for i := range words {
		out[i] = promptBase + engine.Token(i)
	}
	return out, nil
}

func (m *Model) TokenToText(tok engine.Token) string {
	if tok < scriptBase || len(m.Script) == 0 {
		return ""
	}
	return m.Script[int(tok-scriptBase)%len(m.Script)]
}

func (m *Model) IsEndOfSequence(tok engine.Token) bool { return tok == EOS }

func (m *Model) Close() error {
	m.closed.Store(true)
	return nil
}

// Context is a scripted engine.Context.
type Context struct {
	model   *Model
	batch   int
	next    int
	step    int
	decodes int
	// Batches records the size of every Decode call.
	Batches []int
}

func (c *Context) Decode(tokens []engine.Token, pos int) error {
	c.decodes++
	if c.model.DecodeErrAt > 0 && c.decodes == c.model.DecodeErrAt {
		return fmt.Errorf("scripted decode failure at call %d", c.decodes)
	}
	if pos != c.next {
		return fmt.Errorf("decode at position %d, context is at %d", pos, c.next)
	}
	if len(tokens) > c.batch {
		return fmt.Errorf("batch of %d exceeds batch size %d", len(tokens), c.batch)
	}
	if len(tokens) == 1 {
		if c.model.StepDelay > 0 {
			time.Sleep(c.model.StepDelay)
		}
		if c.model.Block != nil {
			<-c.model.Block
		}
	}
	c.Batches = append(c.Batches, len(tokens))
	c.model.mu.Lock()
	c.model.batches = append(c.model.batches, len(tokens))
	c.model.mu.Unlock()
	c.next += len(tokens)
	return nil
}

func (c *Context) Sample(pos int, params engine.SampleParams) engine.Token {
	c.model.mu.Lock()
	c.model.params = append(c.model.params, params)
	c.model.mu.Unlock()
	if !c.model.Endless && c.step >= len(c.model.Script) {
		return EOS
	}
	tok := scriptBase + engine.Token(c.step)
	c.step++
	return tok
}

func (c *Context) Close() error {
	c.model.open.Add(-1)
	return nil
}
