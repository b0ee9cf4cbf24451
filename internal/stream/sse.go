// Package stream adapts a generation's ordered items to Server-Sent Events.
// Each fragment becomes one "data" event, a terminal error becomes one
// "error" event, and comment lines keep idle connections open.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"inferd/internal/manager"
	"inferd/pkg/types"
)

// DefaultKeepAlive is the idle interval between keep-alive comments.
const DefaultKeepAlive = 15 * time.Second

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Writer frames SSE events and flushes each one immediately.
type Writer struct {
	rw    http.ResponseWriter
	w     io.Writer
	flush func()
}

// NewWriter sets the event-stream headers on w. It does not write the status
// line; the first event does.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Writer{rw: w, w: w, flush: flusher.Flush}, nil
}

// Open commits the 200 status and headers so the client sees the stream
// before the first event.
func (s *Writer) Open() {
	s.rw.WriteHeader(http.StatusOK)
	s.flush()
}

// Data writes an unnamed event whose data is v encoded as JSON.
func (s *Writer) Data(v any) error { return s.Event("", v) }

// Event writes a named event whose data is v encoded as JSON.
func (s *Writer) Event(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Comment writes an SSE comment line, ignored by clients.
func (s *Writer) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Source is the consumer side of a running generation.
type Source interface {
	Items() <-chan manager.Item
	Stop()
}

// Result describes how forwarding ended.
type Result struct {
	Fragments int
	// Failed is true when an error event was sent.
	Failed bool
	// Err is set when the client went away or a write failed; the source has
	// been stopped in that case.
	Err error
}

// Forward relays src to w in order until src closes its item channel. A
// keep-alive comment is written whenever keepAlive passes without an event;
// zero disables keep-alives. When ctx ends or a write fails, src is stopped
// and Forward returns without waiting for it.
func Forward(ctx context.Context, w *Writer, src Source, keepAlive time.Duration, log zerolog.Logger) Result {
	var res Result
	var idle <-chan time.Time
	var timer *time.Timer
	if keepAlive > 0 {
		timer = time.NewTimer(keepAlive)
		defer timer.Stop()
		idle = timer.C
	}
	resetIdle := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(keepAlive)
	}
	abort := func(err error) Result {
		src.Stop()
		res.Err = err
		return res
	}

	for {
		select {
		case it, ok := <-src.Items():
			if !ok {
				return res
			}
			if it.Err != nil {
				res.Failed = true
				if err := w.Event("error", types.ErrorEvent{Error: it.Err.Error()}); err != nil {
					return abort(err)
				}
				resetIdle()
				continue
			}
			log.Debug().Str("text", it.Text).Msg("fragment")
			if err := w.Data(types.TokenEvent{Text: it.Text}); err != nil {
				return abort(err)
			}
			res.Fragments++
			resetIdle()
		case <-idle:
			if err := w.Comment("keep-alive"); err != nil {
				return abort(err)
			}
			timer.Reset(keepAlive)
		case <-ctx.Done():
			return abort(ctx.Err())
		}
	}
}
