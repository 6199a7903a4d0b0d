package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// EventStream writes Server-Sent Events. Each value becomes one "data: <json>" frame.
type EventStream struct {
	w *echo.Response
}

// NewEventStream commits the event-stream headers and a 200 status.
func NewEventStream(c echo.Context) *EventStream {
	w := c.Response()
	h := w.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	// nginx buffers proxied responses unless told otherwise
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()
	return &EventStream{w: w}
}

// Send frames v and flushes it to the client.
func (s *EventStream) Send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}
