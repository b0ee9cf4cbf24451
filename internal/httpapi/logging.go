package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Nil discards.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() zerolog.Logger {
	if zlog == nil {
		return zerolog.Nop()
	}
	return *zlog
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("INFERD_REQUEST_LOG"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel sets the request log level used when a request carries
// no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog carries the per-request level and identifiers for handler logs.
type reqLog struct {
	lvl  LogLevel
	base zerolog.Logger
}

func newReqLog(r *http.Request) reqLog {
	ctx := logger().With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ctx = ctx.Str("request_id", rid)
	}
	return reqLog{lvl: requestLogLevel(r), base: ctx.Logger()}
}

// info returns an info event, or nil when the request level is below info.
// zerolog events are nil-safe.
func (l reqLog) info() *zerolog.Event {
	if l.lvl < LevelInfo {
		return nil
	}
	return l.base.Info()
}

// failure logs at error level unless logging is off for the request.
func (l reqLog) failure(err error, status int, msg string) {
	if l.lvl < LevelError {
		return
	}
	l.base.Error().Err(err).Int("status", status).Msg(msg)
}

// fragments is the logger handed to the stream gateway; it only emits when
// the request asked for debug logging.
func (l reqLog) fragments() zerolog.Logger {
	if l.lvl < LevelDebug {
		return zerolog.Nop()
	}
	return l.base.Level(zerolog.DebugLevel)
}
