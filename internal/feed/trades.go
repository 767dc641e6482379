package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/cryptodash/internal/connection"
)

// TradeStreamConfig configures a TradeStream.
type TradeStreamConfig struct {
	BaseURL    string   // e.g. wss://stream.binance.com:9443
	Symbols    []string // requested symbols, any case
	Suffix     string   // stream suffix, default "@trade"
	BufferSize int

	Client connection.ClientConfig
}

// TradeStream relays a Binance combined trade stream. No reconnect.
type TradeStream struct {
	cfg    TradeStreamConfig
	client connection.Client
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTradeStream builds the stream URL and the underlying client. It does not
// dial until Start.
func NewTradeStream(cfg TradeStreamConfig, logger *slog.Logger) (*TradeStream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Suffix == "" {
		cfg.Suffix = "@trade"
	}

	url, err := connection.CombinedStreamURL(cfg.BaseURL, cfg.Symbols, cfg.Suffix)
	if err != nil {
		return nil, err
	}

	clientCfg := cfg.Client
	if clientCfg.PingTimeout <= 0 {
		clientCfg = connection.DefaultClientConfig()
	}
	clientCfg.URL = url
	if clientCfg.BufferSize <= 0 {
		clientCfg.BufferSize = cfg.BufferSize
	}

	return &TradeStream{
		cfg:    cfg,
		client: connection.NewClient(clientCfg, logger),
		logger: logger.With("url", url),
	}, nil
}

// Start dials the stream in the background and relays its messages.
func (s *TradeStream) Start(ctx context.Context) (<-chan Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	out := make(chan Payload, s.cfg.BufferSize)

	s.wg.Add(1)
	go s.run(ctx, out)

	return out, nil
}

// Stop closes the socket and waits for the relay goroutine to exit.
func (s *TradeStream) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.client.Close()
	s.wg.Wait()
}

func (s *TradeStream) run(ctx context.Context, out chan<- Payload) {
	defer s.wg.Done()
	defer close(out)

	if err := s.client.Connect(ctx); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("trade stream connect failed", "err", err)
			s.emit(ctx, out, s.failure(err))
		}
		return
	}
	s.logger.Debug("trade stream connected")

	msgs := s.client.Messages()
	for {
		select {
		case <-ctx.Done():
			s.client.Close()
			return
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				err := s.client.Err()
				if err == nil {
					err = ErrStreamClosed
				}
				s.logger.Info("trade stream ended", "err", err)
				s.emit(ctx, out, s.failure(err))
				return
			}
			p := Payload{
				Kind:       KindTrade,
				Data:       msg.Data,
				ReceivedAt: msg.ReceivedAt,
				Keys:       s.cfg.Symbols,
			}
			if !s.emit(ctx, out, p) {
				s.client.Close()
				return
			}
		}
	}
}

func (s *TradeStream) failure(err error) Payload {
	return Payload{
		Kind:       KindTrade,
		ReceivedAt: time.Now(),
		Keys:       s.cfg.Symbols,
		Err:        err,
		Terminal:   true,
	}
}

func (s *TradeStream) emit(ctx context.Context, out chan<- Payload, p Payload) bool {
	select {
	case out <- p:
		return true
	case <-ctx.Done():
		return false
	}
}
