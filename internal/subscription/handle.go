package subscription

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close reasons.
const (
	ReasonClientGone     = "client_disconnect"
	ReasonWriteFailed    = "write_failed"
	ReasonUpstreamError  = "upstream_error"
	ReasonUpstreamClosed = "upstream_closed"
	ReasonCancelled      = "cancelled"
	ReasonShutdown       = "shutdown"
)

var (
	ErrNotIdle = errors.New("handle is not idle")
	// ErrClosed is returned by Activate when the handle was closed first.
	// The passed release funcs have already run.
	ErrClosed = errors.New("handle is closed")
)

// Handle owns the upstream and downstream resources of one subscription.
type Handle struct {
	id     string
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	reason     string
	releases   []func()
	released   int
	startedAt  time.Time
	closedAt   time.Time
	transition []State

	done chan struct{}
}

// NewHandle creates an Idle handle with a fresh id.
func NewHandle(logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Handle{
		id:         id,
		logger:     logger.With("subscription", id),
		state:      StateIdle,
		transition: []State{StateIdle},
		done:       make(chan struct{}),
	}
}

// Activate moves Idle -> Active and registers release funcs. They run in
// reverse order on Close. If the handle was closed while still Idle the
// funcs run immediately and ErrClosed is returned.
func (h *Handle) Activate(release ...func()) error {
	h.mu.Lock()
	switch h.state {
	case StateIdle:
		h.releases = append(h.releases, release...)
		h.startedAt = time.Now()
		h.setState(StateActive)
		h.mu.Unlock()
		return nil
	case StateActive:
		h.mu.Unlock()
		return ErrNotIdle
	}
	h.mu.Unlock()

	for i := len(release) - 1; i >= 0; i-- {
		h.runRelease(i, release[i])
	}
	h.logger.Debug("activated after close", "releases", len(release))
	return ErrClosed
}

// Close tears the subscription down. Only the first call does anything and
// returns true.
func (h *Handle) Close(reason string) bool {
	h.mu.Lock()
	if h.state == StateClosing || h.state == StateClosed {
		h.mu.Unlock()
		return false
	}
	h.reason = reason
	h.setState(StateClosing)
	releases := h.releases
	h.releases = nil
	h.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		h.runRelease(i, releases[i])
	}

	h.mu.Lock()
	h.closedAt = time.Now()
	h.setState(StateClosed)
	h.mu.Unlock()

	close(h.done)

	h.logger.Debug("subscription closed", "reason", reason, "releases", len(releases))
	return true
}

func (h *Handle) runRelease(i int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("release panicked", "index", i, "panic", r)
		}
	}()
	fn()

	h.mu.Lock()
	h.released++
	h.mu.Unlock()
}

// setState records a transition. Caller holds mu.
func (h *Handle) setState(s State) {
	h.state = s
	h.transition = append(h.transition, s)
}

// ID returns the handle id.
func (h *Handle) ID() string { return h.id }

// Done is closed once the handle reaches Closed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Reason returns why the handle was closed, or "" while open.
func (h *Handle) Reason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// Released returns how many release funcs completed without panicking.
func (h *Handle) Released() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// StartedAt returns when the handle was activated.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

// ClosedAt returns when the handle reached Closed.
func (h *Handle) ClosedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closedAt
}

// Transitions returns every state the handle has been in, in order.
func (h *Handle) Transitions() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.transition...)
}
