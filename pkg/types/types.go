// Package types holds the JSON request and response bodies of the HTTP API.
package types

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	// Layers to offload to the accelerator. Omitted means 99 (all).
	// example: 99
	GPULayers *int `json:"gpu_layers,omitempty" example:"99"`
}

// LoadResponse is returned by POST /load.
type LoadResponse struct {
	// example: loaded
	Status string `json:"status" example:"loaded"`
	// Where the model computes: GPU, CPU or None.
	// example: GPU
	Acceleration string `json:"acceleration" example:"GPU"`
	// Layers actually offloaded. Zero after a CPU fallback.
	// example: 99
	GPULayers int `json:"gpu_layers" example:"99"`
}

// StatusMessage is the body of responses that only carry a status word.
type StatusMessage struct {
	// example: unloaded
	Status string `json:"status" example:"unloaded"`
}

// PredictRequest is the body of POST /predict and POST /predict/stream.
type PredictRequest struct {
	// Required prompt text.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Maximum number of fragments to generate. Omitted means 2048.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// Generation ends when the output ends with any of these.
	Stop []string `json:"stop,omitempty"`
	// Sampling temperature, clamped to [0.1, 2.0]. Omitted means 0.7.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Sampler seed. Omitted means the server default.
	// example: 42
	Seed *uint32 `json:"seed,omitempty" example:"42"`
}

// PredictResponse is returned by POST /predict.
type PredictResponse struct {
	// example: Waves fold into foam
	Text string `json:"text" example:"Waves fold into foam"`
	// example: 5
	TokensGenerated int `json:"tokens_generated" example:"5"`
	// example: 412
	TimeMS int64 `json:"time_ms" example:"412"`
}

// TokenEvent is the data of one streamed fragment.
type TokenEvent struct {
	Text string `json:"text"`
}

// ErrorEvent is the data of a streamed "error" event.
type ErrorEvent struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// example: GPU
	Acceleration string `json:"acceleration" example:"GPU"`
}

// MetricsResponse is returned by GET /metrics.
type MetricsResponse struct {
	// example: 12
	TotalRequests uint64 `json:"total_requests" example:"12"`
	// example: 840
	TotalTokensGenerated uint64 `json:"total_tokens_generated" example:"840"`
	// example: 15320
	TotalTimeMS uint64 `json:"total_time_ms" example:"15320"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Slot state: unloaded, loading or ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// example: GPU
	Acceleration string `json:"acceleration" example:"GPU"`
	// example: 99
	GPULayers int `json:"gpu_layers" example:"99"`
	// Server-configured weight file.
	// example: /models/model.gguf
	ModelPath string `json:"model_path" example:"/models/model.gguf"`
	// When the installed model was loaded (unix seconds, 0 when unloaded).
	// example: 1700000000
	LoadedAtUnix int64 `json:"loaded_at_unix" example:"1700000000"`
	// Current cancellation epoch.
	// example: 3
	Epoch uint64 `json:"epoch" example:"3"`
	// Generations currently running.
	// example: 1
	Inflight int64 `json:"inflight" example:"1"`
	// example: 4
	MaxConcurrent int `json:"max_concurrent" example:"4"`
	// example: 2
	LoadsTotal uint64 `json:"loads_total" example:"2"`
	// Loads that succeeded only after falling back to CPU.
	// example: 0
	FallbacksTotal uint64 `json:"fallbacks_total" example:"0"`
	// example: 1
	UnloadsTotal uint64 `json:"unloads_total" example:"1"`
	// Error of the most recent failed load, cleared by the next successful one.
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
