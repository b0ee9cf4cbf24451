//go:build yzma

package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
)

var (
	initOnce sync.Once
	initErr  error
)

type yzmaBackend struct {
	threads int
	gpu     bool
}

// New loads the llama.cpp shared libraries and initializes the backend.
// A failure here is unrecoverable for the process.
func New(opts Options) (Backend, error) {
	initOnce.Do(func() {
		lib := opts.LibPath
		if lib == "" {
			lib = os.Getenv("YZMA_LIB")
		}
		if lib == "" {
			initErr = errors.New("llama.cpp library path not set (lib_path or YZMA_LIB)")
			return
		}
		if err := llama.Load(lib); err != nil {
			initErr = fmt.Errorf("load llama.cpp libraries from %s: %w", lib, err)
			return
		}
		llama.Init()
	})
	if initErr != nil {
		return nil, initErr
	}
	return &yzmaBackend{threads: opts.Threads, gpu: llama.SupportsGpuOffload()}, nil
}

func (b *yzmaBackend) Name() string { return "yzma" }

func (b *yzmaBackend) SupportsGPUOffload() bool { return b.gpu }

func (b *yzmaBackend) LoadModel(path string, gpuLayers int) (Model, error) {
	params := llama.ModelDefaultParams()
	params.NGpuLayers = LayerCount(gpuLayers)
	m, err := llama.ModelLoadFromFile(path, params)
	if err != nil {
		return nil, fmt.Errorf("llama model load: %w", err)
	}
	return &yzmaModel{model: m, vocab: llama.ModelGetVocab(m), threads: b.threads}, nil
}

func (b *yzmaBackend) Close() error { return nil }

type yzmaModel struct {
	model   llama.Model
	vocab   llama.Vocab
	threads int
}

func (m *yzmaModel) NewContext(opts ContextOptions) (Context, error) {
	params := llama.ContextDefaultParams()
	params.NCtx = uint32(opts.WindowSize)
	params.NBatch = uint32(opts.BatchSize)
	if m.threads > 0 {
		params.NThreads = int32(m.threads)
		params.NThreadsBatch = int32(m.threads)
	}
	lctx, err := llama.InitFromModel(m.model, params)
	if err != nil {
		return nil, fmt.Errorf("llama context init: %w", err)
	}
	return &yzmaContext{lctx: lctx}, nil
}

func (m *yzmaModel) Tokenize(text string) ([]Token, error) {
	raw := llama.Tokenize(m.vocab, text, true, false)
	out := make([]Token, len(raw))
	for i, t := range raw {
		out[i] = Token(t)
	}
	return out, nil
}

func (m *yzmaModel) TokenToText(tok Token) string {
	buf := make([]byte, 64)
	n := llama.TokenToPiece(m.vocab, llama.Token(tok), buf, 0, true)
	if n < 0 {
		buf = make([]byte, -n)
		n = llama.TokenToPiece(m.vocab, llama.Token(tok), buf, 0, true)
	}
	if n <= 0 {
		return ""
	}
	return string(buf[:n])
}

func (m *yzmaModel) IsEndOfSequence(tok Token) bool {
	return llama.VocabIsEOG(m.vocab, llama.Token(tok))
}

func (m *yzmaModel) Close() error {
	llama.ModelFree(m.model)
	return nil
}

// yzmaContext feeds batches through llama_batch_get_one, which places tokens
// at the positions following the context's memory. next mirrors that cursor
// so callers cannot silently skip or repeat positions.
type yzmaContext struct {
	lctx    llama.Context
	sampler llama.Sampler
	chain   bool
	next    int
}

func (c *yzmaContext) Decode(tokens []Token, pos int) error {
	if pos != c.next {
		return fmt.Errorf("decode at position %d, context is at %d", pos, c.next)
	}
	if len(tokens) == 0 {
		return nil
	}
	batch := make([]llama.Token, len(tokens))
	for i, t := range tokens {
		batch[i] = llama.Token(t)
	}
	if _, err := llama.Decode(c.lctx, llama.BatchGetOne(batch)); err != nil {
		return err
	}
	c.next += len(tokens)
	return nil
}

func (c *yzmaContext) Sample(pos int, params SampleParams) Token {
	if !c.chain {
		c.sampler = llama.SamplerChainInit(llama.SamplerChainDefaultParams())
		llama.SamplerChainAdd(c.sampler, llama.SamplerInitTemp(params.Temperature))
		llama.SamplerChainAdd(c.sampler, llama.SamplerInitTopK(int32(params.TopK)))
		llama.SamplerChainAdd(c.sampler, llama.SamplerInitTopP(params.TopP, 1))
		llama.SamplerChainAdd(c.sampler, llama.SamplerInitDist(params.Seed))
		c.chain = true
	}
	// -1 selects the last output of the most recent batch, which is pos.
	return Token(llama.SamplerSample(c.sampler, c.lctx, -1))
}

func (c *yzmaContext) Close() error {
	if c.chain {
		llama.SamplerFree(c.sampler)
		c.chain = false
	}
	llama.Free(c.lctx)
	return nil
}
