package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"inferd/internal/manager"
	"inferd/internal/stream"
	"inferd/pkg/types"
)

const (
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7

	generationIDHeader = "X-Generation-ID"
)

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit and decodes into v.
// An empty body leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" && allowEmpty && r.ContentLength <= 0 {
		return true
	}
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// load godoc
// @Summary      Load the configured model
// @Description  Loads the server-configured weight file, offloading gpu_layers to the accelerator and falling back to CPU.
// @Accept       json
// @Produce      json
// @Param        body  body      types.LoadRequest  false  "Load options"
// @Success      200   {object}  types.LoadResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /load [post]
func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	layers := manager.DefaultGPULayers
	if req.GPULayers != nil {
		layers = *req.GPULayers
	}
	if layers < 0 {
		writeJSONError(w, http.StatusBadRequest, "gpu_layers must not be negative")
		return
	}
	rl := newReqLog(r)
	ctx, cancel := requestContext(r)
	defer cancel()
	start := time.Now()
	res, err := h.svc.Load(ctx, layers)
	if err != nil {
		status := writeError(w, err)
		rl.failure(err, status, "load failed")
		return
	}
	rl.info().Str("acceleration", res.Acceleration.String()).Int("gpu_layers", res.GPULayers).
		Bool("fallback", res.Fallback).Dur("dur", time.Since(start)).Msg("model loaded")
	writeJSON(w, types.LoadResponse{Status: "loaded", Acceleration: res.Acceleration.String(), GPULayers: res.GPULayers})
}

// unload godoc
// @Summary  Unload the model
// @Produce  json
// @Success  200  {object}  types.StatusMessage
// @Router   /unload [post]
func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	h.svc.Unload()
	newReqLog(r).info().Msg("model unloaded")
	writeJSON(w, types.StatusMessage{Status: "unloaded"})
}

// cancel godoc
// @Summary      Cancel running generations
// @Description  Every generation running when the call arrives stops at its next decode step.
// @Produce      json
// @Success      200  {object}  types.StatusMessage
// @Router       /cancel [post]
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	epoch := h.svc.Cancel()
	newReqLog(r).info().Uint64("epoch", epoch).Msg("cancel")
	writeJSON(w, types.StatusMessage{Status: "cancelled"})
}

// health godoc
// @Summary  Model health
// @Produce  json
// @Success  200  {object}  types.HealthResponse
// @Router   /health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	hl := h.svc.Health()
	writeJSON(w, types.HealthResponse{Status: "healthy", ModelLoaded: hl.ModelLoaded, Acceleration: hl.Acceleration.String()})
}

// metrics godoc
// @Summary  Usage counters
// @Produce  json
// @Success  200  {object}  types.MetricsResponse
// @Router   /metrics [get]
func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	m := h.svc.Metrics()
	writeJSON(w, types.MetricsResponse{
		TotalRequests:        m.TotalRequests,
		TotalTokensGenerated: m.TotalTokensGenerated,
		TotalTimeMS:          m.TotalTimeMS,
	})
}

// status godoc
// @Summary  Detailed status
// @Produce  json
// @Success  200  {object}  types.StatusResponse
// @Router   /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// generationRequest decodes and validates a predict body.
func generationRequest(w http.ResponseWriter, r *http.Request) (manager.Request, bool) {
	var body types.PredictRequest
	if !decodeJSON(w, r, &body, false) {
		return manager.Request{}, false
	}
	req := manager.Request{
		Prompt:      body.Prompt,
		MaxTokens:   defaultMaxTokens,
		Stop:        body.Stop,
		Temperature: defaultTemperature,
		Seed:        body.Seed,
	}
	if body.MaxTokens != nil {
		req.MaxTokens = *body.MaxTokens
	}
	if req.MaxTokens < 0 {
		writeJSONError(w, http.StatusBadRequest, "max_tokens must not be negative")
		return manager.Request{}, false
	}
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	return req, true
}

// predict godoc
// @Summary      Generate text synchronously
// @Accept       json
// @Produce      json
// @Param        body  body      types.PredictRequest  true  "Generation request"
// @Success      200   {object}  types.PredictResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /predict [post]
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	req, ok := generationRequest(w, r)
	if !ok {
		return
	}
	rl := newReqLog(r)
	ctx, cancel := requestContext(r)
	defer cancel()

	g, err := h.svc.Generate(ctx, req)
	if err != nil {
		// Admission only fails when the client or server went away.
		return
	}
	w.Header().Set(generationIDHeader, g.ID)
	rl.info().Str("gen_id", g.ID).Int("max_tokens", req.MaxTokens).Msg("predict start")
	text, sum := manager.Collect(ctx, g)
	if sum.Err != nil {
		status := writeError(w, sum.Err)
		rl.failure(sum.Err, status, "predict failed")
		return
	}
	if ctx.Err() != nil {
		return
	}
	rl.info().Str("gen_id", g.ID).Str("outcome", string(sum.Outcome)).Int("tokens", sum.Tokens).
		Dur("dur", sum.Elapsed).Msg("predict end")
	writeJSON(w, types.PredictResponse{Text: text, TokensGenerated: sum.Tokens, TimeMS: sum.Elapsed.Milliseconds()})
}

// predictStream godoc
// @Summary      Generate text as Server-Sent Events
// @Description  Each event's data is {"text": fragment}. A failure is sent as an "error" event with data {"error": message} and ends the stream.
// @Accept       json
// @Produce      text/event-stream
// @Param        body  body  types.PredictRequest  true  "Generation request"
// @Success      200   {object}  types.TokenEvent
// @Router       /predict/stream [post]
func (h *handlers) predictStream(w http.ResponseWriter, r *http.Request) {
	req, ok := generationRequest(w, r)
	if !ok {
		return
	}
	sw, err := stream.NewWriter(w)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rl := newReqLog(r)
	ctx, cancel := requestContext(r)
	defer cancel()

	g, err := h.svc.Generate(ctx, req)
	if err != nil {
		return
	}
	w.Header().Set(generationIDHeader, g.ID)
	sw.Open()
	rl.info().Str("gen_id", g.ID).Int("max_tokens", req.MaxTokens).Msg("stream start")

	res := stream.Forward(ctx, sw, g, keepAlive, rl.fragments().With().Str("gen_id", g.ID).Logger())
	if res.Err != nil {
		rl.info().Str("gen_id", g.ID).Int("fragments", res.Fragments).AnErr("reason", res.Err).Msg("stream client gone")
		return
	}
	sum := g.Wait()
	rl.info().Str("gen_id", g.ID).Str("outcome", string(sum.Outcome)).Int("tokens", sum.Tokens).
		Dur("dur", sum.Elapsed).Msg("stream end")
}
