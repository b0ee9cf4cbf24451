package manager

import (
	"fmt"
	"math"
	"strings"
	"time"

	"inferd/internal/engine"
)

const (
	minTemperature = 0.1
	maxTemperature = 2.0
	samplerTopK    = 40
	samplerTopP    = 0.95
)

// runWorker owns one generation from validation to its terminal state. It
// holds the shared view taken by Generate until it returns.
func (m *Manager) runWorker(g *Generation, req Request, epoch uint64, start time.Time) {
	sum := Summary{ID: g.ID}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err := newError(KindDecode, "generation aborted", fmt.Errorf("panic: %v", r))
				g.emit(Item{Err: err})
				sum.Outcome = OutcomeFailed
				sum.Err = err
				m.log.Error().Str("gen_id", g.ID).Interface("panic", r).Msg("generation worker panicked")
			}
		}()
		m.generate(g, req, epoch, &sum)
	}()

	sum.Elapsed = time.Since(start)
	if sum.Counted {
		m.metrics.record(sum.Tokens, sum.Elapsed)
		generationTokens.Add(float64(sum.Tokens))
		generationDuration.Observe(sum.Elapsed.Seconds())
	}
	generationsTotal.WithLabelValues(string(sum.Outcome)).Inc()
	g.summary = sum

	m.guard.releaseShared()
	m.inflight.Add(-1)
	generationsInflight.Dec()
	close(g.items)
	close(g.done)

	ev := m.log.Info()
	if sum.Err != nil {
		ev = m.log.Warn().Err(sum.Err)
	}
	ev.Str("gen_id", g.ID).Str("outcome", string(sum.Outcome)).Int("tokens", sum.Tokens).
		Dur("elapsed", sum.Elapsed).Bool("receiver_gone", sum.ReceiverGone).Msg("generation finished")
}

// generate walks Validating -> ContextBuilding -> PromptProcessing ->
// Decoding. Failures before Decoding leave sum.Counted false.
func (m *Manager) generate(g *Generation, req Request, epoch uint64, sum *Summary) {
	fail := func(err *Error) {
		sum.Outcome = OutcomeFailed
		sum.Err = err
		g.emit(Item{Err: err})
	}

	// Validating
	model := m.slot.model
	if model == nil {
		fail(newError(KindModelNotLoaded, "model not loaded, load it first", nil))
		return
	}
	tokens, err := model.Tokenize(req.Prompt)
	if err != nil {
		fail(newError(KindTokenization, "tokenization failed", err))
		return
	}
	if len(tokens) == 0 {
		fail(newError(KindTokenization, "tokenization produced no tokens", nil))
		return
	}
	available := m.contextSize - req.MaxTokens
	if available < 0 {
		available = 0
	}
	if len(tokens) > available {
		fail(newError(KindPromptTooLong, fmt.Sprintf("prompt too long: %d tokens (max %d with %d reserved for output)",
			len(tokens), available, req.MaxTokens), nil))
		return
	}

	// ContextBuilding
	lctx, err := model.NewContext(engine.ContextOptions{WindowSize: m.contextSize, BatchSize: m.batchSize})
	if err != nil {
		fail(newError(KindContextCreation, "context creation failed", err))
		return
	}
	defer lctx.Close()

	// PromptProcessing
	for off := 0; off < len(tokens); off += m.batchSize {
		end := off + m.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		if err := lctx.Decode(tokens[off:end], off); err != nil {
			fail(newError(KindDecode, "prompt decode failed", err))
			return
		}
	}

	// Decoding
	sum.Counted = true
	params := m.sampleParams(req)
	stops := activeStops(req.Stop)
	pos := len(tokens)
	var acc strings.Builder
	for {
		if m.cancelled(epoch) {
			sum.Outcome = OutcomeCancelled
			return
		}
		if sum.Tokens >= req.MaxTokens {
			sum.Outcome = OutcomeCompleted
			return
		}
		tok := lctx.Sample(pos-1, params)
		if model.IsEndOfSequence(tok) {
			sum.Outcome = OutcomeCompleted
			return
		}
		if piece := model.TokenToText(tok); piece != "" {
			acc.WriteString(piece)
			sum.Tokens++
			if !g.emit(Item{Text: piece}) {
				sum.Outcome = OutcomeCompleted
				sum.ReceiverGone = true
				return
			}
			if s, ok := stopSuffix(acc.String(), stops); ok {
				sum.Outcome = OutcomeCompleted
				sum.StopSequence = s
				return
			}
		}
		if err := lctx.Decode([]engine.Token{tok}, pos); err != nil {
			fail(newError(KindDecode, "decode failed", err))
			return
		}
		pos++
	}
}

func (m *Manager) sampleParams(req Request) engine.SampleParams {
	seed := m.seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	return engine.SampleParams{
		Temperature: float32(clampTemperature(req.Temperature)),
		TopK:        samplerTopK,
		TopP:        samplerTopP,
		Seed:        seed,
	}
}

func clampTemperature(t float64) float64 {
	if math.IsNaN(t) {
		return minTemperature
	}
	return math.Min(maxTemperature, math.Max(minTemperature, t))
}

// activeStops drops empty stop sequences, which would match every buffer.
func activeStops(stops []string) []string {
	out := stops[:0:0]
	for _, s := range stops {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stopSuffix reports the first stop sequence that buf ends with. Matching is
// by exact suffix, so a stop sequence appearing earlier in the output does not
// end generation again.
func stopSuffix(buf string, stops []string) (string, bool) {
	for _, s := range stops {
		if strings.HasSuffix(buf, s) {
			return s, true
		}
	}
	return "", false
}
