package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/manager"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Load(ctx context.Context, gpuLayers int) (manager.LoadResult, error)
	Unload()
	Generate(ctx context.Context, req manager.Request) (*manager.Generation, error)
	Cancel() uint64
	Health() manager.Health
	Metrics() manager.Metrics
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{generationIDHeader},
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints; event streams are not in its type list.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/load", h.load)
	r.Post("/unload", h.unload)
	r.Post("/predict", h.predict)
	r.Post("/predict/stream", h.predictStream)
	r.Post("/cancel", h.cancel)
	r.Get("/health", h.health)
	r.Get("/metrics", h.metrics)
	r.Get("/status", h.status)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no model loaded"))
	})

	// Prometheus exposition; GET /metrics is the JSON usage report.
	r.Get("/metrics/prometheus", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}
