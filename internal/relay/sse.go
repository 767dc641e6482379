package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rickgao/cryptodash/internal/model"
)

// ErrChannelClosed means the downstream client is gone.
var ErrChannelClosed = errors.New("downstream channel closed")

// FrameWriter writes Server-Sent-Events frames and flushes each one.
// Close may be called from another goroutine; later writes fail with
// ErrChannelClosed.
type FrameWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	closed bool
	frames int64
}

// NewFrameWriter wraps w.
func NewFrameWriter(w http.ResponseWriter) *FrameWriter {
	return &FrameWriter{w: w, rc: http.NewResponseController(w)}
}

// WriteHeaders sends the event-stream headers and a 200 status.
func (f *FrameWriter) WriteHeaders() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := f.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	f.w.WriteHeader(http.StatusOK)

	if err := f.rc.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrChannelClosed, err)
	}
	return nil
}

// WriteEvent writes one frame: "data: <json>" for ticks, "event: error" for
// error markers.
func (f *FrameWriter) WriteEvent(e model.Event) error {
	var frame []byte
	if e.IsError() {
		frame = []byte("event: error\ndata: " + e.Err + "\n\n")
	} else {
		data, err := json.Marshal(e.Tick)
		if err != nil {
			return fmt.Errorf("encode tick: %w", err)
		}
		frame = make([]byte, 0, len(data)+8)
		frame = append(frame, "data: "...)
		frame = append(frame, data...)
		frame = append(frame, "\n\n"...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrChannelClosed
	}
	if _, err := f.w.Write(frame); err != nil {
		return fmt.Errorf("%w: %w", ErrChannelClosed, err)
	}
	if err := f.rc.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrChannelClosed, err)
	}
	f.frames++
	return nil
}

// Close stops further writes.
func (f *FrameWriter) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Frames returns how many frames were written.
func (f *FrameWriter) Frames() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}
