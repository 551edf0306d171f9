// Package sse frames engine events for server-sent-event consumers. The
// encoder performs no reordering or batching: one event in, one frame out,
// flushed immediately.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/courseflow-backend/internal/engine"
	"github.com/yungbote/courseflow-backend/internal/logger"
)

type Encoder struct {
	log *logger.Logger
}

func NewEncoder(log *logger.Logger) *Encoder {
	return &Encoder{log: log.With("component", "SSEEncoder")}
}

// Encode renders one event as a single SSE data frame.
func Encode(ev engine.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return []byte("data: " + string(payload) + "\n\n"), nil
}

// Stream forwards events to the client in arrival order until the channel
// closes or the client disconnects. A disconnect cancels the request context,
// which the producer observes as its termination signal.
func (e *Encoder) Stream(c *gin.Context, events <-chan engine.Event) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			e.log.Debug("client disconnected mid-stream", "err", ctx.Err())
			return
		case ev, open := <-events:
			if !open {
				return
			}
			frame, err := Encode(ev)
			if err != nil {
				e.log.Warn("dropping unencodable event", "type", ev.Type, "error", err)
				continue
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
