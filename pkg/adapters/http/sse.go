package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/reviewlink/pkg/domain"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// sseSink frames events for an SSE response: an event line with the type and
// a data line with the whole JSON event. Every frame is flushed.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &sseSink{w: w, flusher: flusher}, nil
}

func (s *sseSink) WriteEvent(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
