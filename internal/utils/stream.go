package utils

import (
	"encoding/json"
	"net/http"
	"sync"
)

// ContentTypeStreamJSON 逐行 JSON 流的内容类型
const ContentTypeStreamJSON = "text/stream-json"

// StreamWriter 每次写一行 JSON 并立即 flush
type StreamWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", ContentTypeStreamJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &StreamWriter{w: w}
}

func (s *StreamWriter) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
