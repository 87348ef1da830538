// Package httpx provides the HTTP API for the convenios board: authentication,
// the session event stream and board manipulation.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
)

const defaultKeepAlive = 25 * time.Second

// EventHandlers streams session state changes to the browser.
type EventHandlers struct {
	Svc SessionResolver
	// KeepAlive is the interval between comment frames on an idle stream.
	KeepAlive time.Duration
	Logger    *slog.Logger
}

func (h *EventHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Stream serves a Server-Sent Events stream of the session state for the request's cookie.
// The first frame is the resolved state; later frames follow provider events such as a
// sign-out from another tab. Only the latest state is sent when the client falls behind.
// GET /auth/events.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("streaming unsupported"),
		})
		return
	}
	ctx := r.Context()

	m := h.Svc.NewMachine(sessionToken(r))
	defer m.Dispose()

	changed := make(chan struct{}, 1)
	stopWatch := m.Watch(func(domainauth.SessionState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stopWatch()

	if err := m.Init(ctx); err != nil {
		h.logger().WarnContext(ctx, "session stream without provider events", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Init already settled the state; the pending notification would only repeat it.
	select {
	case <-changed:
	default:
	}
	if err := writeSessionEvent(w, m.State()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			if err := writeSessionEvent(w, m.State()); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeSessionEvent(w io.Writer, st domainauth.SessionState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
	return err
}
