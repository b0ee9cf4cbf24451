package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx ends when the process starts shutting down. Loads waiting for
// exclusive access and generations waiting for admission give up with it.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
// A nil ctx restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// requestContext derives the context a handler passes to the manager: it
// carries the request's values and ends with either the request or the server.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return joinContexts(r.Context(), serverBaseCtx)
}

// joinContexts returns a child of parent that is also canceled once other is
// done. The cancel func must be called to detach from other.
func joinContexts(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
