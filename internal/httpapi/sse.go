package httpapi

import (
	"encoding/json"
	"net/http"
)

// streamWriter frames an already-complete response as one event-stream
// chunk. The body is exactly one JSON object; there is no data: prefix, no
// terminal sentinel and no multi-event framing. "Streaming" here is a
// framing contract, not a latency optimization: generation has finished
// before the first byte is written.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	flusher, _ := w.(http.Flusher)
	return &streamWriter{w: w, flusher: flusher}
}

func (s *streamWriter) writeHeaders() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
}

func (s *streamWriter) writeChunk(v any) error {
	if err := json.NewEncoder(s.w).Encode(v); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
