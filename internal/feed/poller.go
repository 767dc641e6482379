package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollerConfig holds poller configuration.
type PollerConfig struct {
	Interval   time.Duration // Poll interval (default: 5s)
	BufferSize int           // Output channel buffer
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:   5 * time.Second,
		BufferSize: 16,
	}
}

// Poller periodically fetches snapshots from a SnapshotSource.
type Poller struct {
	cfg    PollerConfig
	source SnapshotSource
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a new Poller.
func NewPoller(cfg PollerConfig, source SnapshotSource, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig().Interval
	}
	return &Poller{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) (<-chan Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil, ErrAlreadyStarted
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	out := make(chan Payload, p.cfg.BufferSize)

	p.wg.Add(1)
	go p.run(ctx, out)

	p.logger.Debug("snapshot poller started", "interval", p.cfg.Interval)

	return out, nil
}

// Stop cancels the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// run is the main polling loop.
func (p *Poller) run(ctx context.Context, out chan<- Payload) {
	defer p.wg.Done()
	defer close(out)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	if !p.poll(ctx, out) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.poll(ctx, out) {
				return
			}
		}
	}
}

// poll fetches one snapshot and emits it. It returns false once ctx is done.
func (p *Poller) poll(ctx context.Context, out chan<- Payload) bool {
	start := time.Now()

	payload, err := p.source.Fetch(ctx)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		p.logger.Warn("snapshot poll failed", "err", err, "duration", time.Since(start))
		payload.Err = err
	}

	select {
	case out <- payload:
		return true
	case <-ctx.Done():
		return false
	}
}
