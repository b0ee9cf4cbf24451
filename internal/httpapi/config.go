package httpapi

import (
	"time"

	"inferd/internal/stream"
)

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// keepAlive is the idle interval between SSE keep-alive comments on
// /predict/stream.
var keepAlive = stream.DefaultKeepAlive

// SetKeepAlive sets the SSE keep-alive interval. Zero restores the default;
// a negative value disables keep-alives.
func SetKeepAlive(d time.Duration) {
	switch {
	case d == 0:
		keepAlive = stream.DefaultKeepAlive
	case d < 0:
		keepAlive = 0
	default:
		keepAlive = d
	}
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
