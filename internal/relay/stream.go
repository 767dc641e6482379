package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/model"
	"github.com/rickgao/cryptodash/internal/subscription"
)

// ParseStreamRequest reads symbols and strategy from a /stream query.
func (s *Service) ParseStreamRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()

	requested := splitCSV(q.Get("symbols"))
	if len(requested) == 0 {
		requested = s.cfg.DefaultSymbols
	}
	symbols := make([]string, len(requested))
	for i, sym := range requested {
		symbols[i] = strings.ToLower(sym)
	}

	strategy := strings.ToLower(strings.TrimSpace(q.Get("strategy")))
	if strategy == "" {
		strategy = s.cfg.Strategy
	}
	if strategy != config.StrategyPoll && strategy != config.StrategyTrades {
		return Request{}, ErrUnknownStrategy
	}

	return Request{
		Transport: model.TransportSSE,
		Strategy:  strategy,
		Symbols:   symbols,
	}, nil
}

// ServeStream relays prices to one client as Server-Sent-Events.
// After the headers are written it never changes the status; failures
// become error frames or end the stream.
func (s *Service) ServeStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.ParseStreamRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h, err := s.open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	f, err := s.newFeed(req)
	if err != nil {
		h.Close(subscription.ReasonCancelled)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	payloads, err := f.Start(ctx)
	if err != nil {
		cancel()
		h.Close(subscription.ReasonCancelled)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fw := NewFrameWriter(w)

	logger := s.logger.With("subscription", h.ID(), "transport", req.Transport)

	// Released in reverse: cancel, then the upstream, then the downstream.
	if err := h.Activate(fw.Close, f.Stop, cancel); err != nil {
		// Closed by shutdown before activation; the releases have already run.
		logger.Debug("stream closed before start", "reason", h.Reason(), "error", err)
		http.Error(w, ErrNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}

	logger.Debug("stream opened", "strategy", req.Strategy, "symbols", req.Symbols)

	defer func() {
		h.Close(subscription.ReasonCancelled)
		s.record(h, req, fw.Frames())
		logger.Debug("stream closed", "reason", h.Reason(), "frames", fw.Frames())
	}()

	if err := fw.WriteHeaders(); err != nil {
		h.Close(subscription.ReasonWriteFailed)
		return
	}

	for {
		select {
		case <-h.Done():
			return

		case <-r.Context().Done():
			h.Close(subscription.ReasonClientGone)
			return

		case p, ok := <-payloads:
			if !ok {
				h.Close(subscription.ReasonUpstreamClosed)
				return
			}
			for _, e := range s.normalizer.Normalize(p) {
				if err := fw.WriteEvent(e); err != nil {
					if errors.Is(err, ErrChannelClosed) {
						logger.Debug("downstream gone", "error", err)
					} else {
						logger.Warn("write frame failed", "error", err)
					}
					h.Close(subscription.ReasonWriteFailed)
					return
				}
				if e.Terminal {
					h.Close(subscription.ReasonUpstreamError)
					return
				}
			}
		}
	}
}
