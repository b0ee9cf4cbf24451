//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc is a hand-maintained OpenAPI 2 document covering the public routes.
// Regenerate it with swag init when the handler annotations change.
const apiDoc = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{.Description}}", "version": "{{.Version}}"},
  "basePath": "{{.BasePath}}",
  "paths": {
    "/load": {"post": {"summary": "Load the configured model", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "loaded"}, "404": {"description": "weight file not found"}, "500": {"description": "load failed"}}}},
    "/unload": {"post": {"summary": "Unload the model", "produces": ["application/json"], "responses": {"200": {"description": "unloaded"}}}},
    "/predict": {"post": {"summary": "Generate text synchronously", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "completion"}, "400": {"description": "invalid request"}, "503": {"description": "model not loaded"}}}},
    "/predict/stream": {"post": {"summary": "Generate text as Server-Sent Events", "consumes": ["application/json"], "produces": ["text/event-stream"], "responses": {"200": {"description": "event stream"}}}},
    "/cancel": {"post": {"summary": "Cancel all running generations", "produces": ["application/json"], "responses": {"200": {"description": "cancelled"}}}},
    "/health": {"get": {"summary": "Model health", "produces": ["application/json"], "responses": {"200": {"description": "healthy"}}}},
    "/metrics": {"get": {"summary": "Usage counters", "produces": ["application/json"], "responses": {"200": {"description": "counters"}}}},
    "/status": {"get": {"summary": "Detailed status", "produces": ["application/json"], "responses": {"200": {"description": "status"}}}}
  }
}`

var swaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "inferd API",
	Description:      "HTTP API for local LLM inference.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  apiDoc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

// MountSwagger serves the API document and UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
