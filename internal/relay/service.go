package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/connection"
	"github.com/rickgao/cryptodash/internal/feed"
	"github.com/rickgao/cryptodash/internal/journal"
	"github.com/rickgao/cryptodash/internal/model"
	"github.com/rickgao/cryptodash/internal/normalize"
	"github.com/rickgao/cryptodash/internal/subscription"
)

var (
	ErrNotRunning      = errors.New("relay not running")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Config holds relay settings.
type Config struct {
	Strategy       string // default strategy for /stream
	PollInterval   time.Duration
	DefaultSymbols []string
	TradeSuffix    string
	BufferSize     int
	BinanceWSURL   string

	WSPollInterval time.Duration
	DefaultIDs     string
	DefaultVS      string
	AllowedOrigins []string // empty = any origin
}

// ConfigFrom extracts relay settings from the process config.
func ConfigFrom(cfg *config.RelayConfig) Config {
	return Config{
		Strategy:       cfg.Stream.Strategy,
		PollInterval:   cfg.Stream.PollInterval,
		DefaultSymbols: cfg.Stream.DefaultSymbols,
		TradeSuffix:    cfg.Stream.TradeSuffix,
		BufferSize:     cfg.Stream.BufferSize,
		BinanceWSURL:   cfg.Upstream.BinanceWSURL,
		WSPollInterval: cfg.WS.PollInterval,
		DefaultIDs:     cfg.WS.DefaultIDs,
		DefaultVS:      cfg.WS.DefaultVS,
		AllowedOrigins: cfg.WS.AllowedOrigins,
	}
}

// Request describes one subscription.
type Request struct {
	Transport model.Transport
	Strategy  string
	Symbols   []string // Binance symbols, or CoinGecko ids for snapshots
	VS        string
}

// FeedFactory builds the upstream feed for a request.
type FeedFactory func(req Request) (feed.Feed, error)

// Deps are the collaborators injected into a Service.
type Deps struct {
	Binance    *api.Binance
	Gecko      *api.CoinGecko
	Normalizer *normalize.Normalizer
	Journal    journal.Journal
	Logger     *slog.Logger

	// NewFeed overrides feed construction. Nil uses the upstream APIs above.
	NewFeed FeedFactory
}

// Service owns every live subscription of the process.
type Service struct {
	cfg        Config
	binance    *api.Binance
	gecko      *api.CoinGecko
	normalizer *normalize.Normalizer
	journal    journal.Journal
	newFeed    FeedFactory
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	registry *subscription.Registry

	mu      sync.RWMutex
	running bool
}

// NewService creates a Service. Call Init before serving.
func NewService(cfg Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = config.StrategyPoll
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	if cfg.WSPollInterval <= 0 {
		cfg.WSPollInterval = cfg.PollInterval
	}
	if len(cfg.DefaultSymbols) == 0 {
		cfg.DefaultSymbols = []string{config.DefaultStreamSymbol}
	}
	if cfg.DefaultIDs == "" {
		cfg.DefaultIDs = config.DefaultWSIDs
	}
	if cfg.DefaultVS == "" {
		cfg.DefaultVS = config.DefaultWSVS
	}

	s := &Service{
		cfg:        cfg,
		binance:    deps.Binance,
		gecko:      deps.Gecko,
		normalizer: deps.Normalizer,
		journal:    deps.Journal,
		newFeed:    deps.NewFeed,
		logger:     logger,
		registry:   subscription.NewRegistry(),
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(logger)
	}
	if s.journal == nil {
		s.journal = journal.Noop{}
	}
	if s.newFeed == nil {
		s.newFeed = s.defaultFeed
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Init marks the service ready to accept subscriptions.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.logger.Info("relay started",
		"strategy", s.cfg.Strategy,
		"poll_interval", s.cfg.PollInterval,
		"default_symbols", s.cfg.DefaultSymbols,
	)
	return nil
}

// Shutdown stops accepting subscriptions, closes every live one and waits
// for them to finish or ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	closed := s.registry.CloseAll(subscription.ReasonShutdown)
	s.logger.Info("closing live subscriptions", "count", closed)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			s.logger.Warn("relay shutdown timed out", "remaining", s.registry.Len())
			return ctx.Err()
		case <-ticker.C:
		}
	}

	s.logger.Info("relay stopped")
	return nil
}

// Active returns the number of live subscriptions.
func (s *Service) Active() int {
	return s.registry.Len()
}

// Stats returns normalizer statistics.
func (s *Service) Stats() normalize.Stats {
	return s.normalizer.Stats()
}

func (s *Service) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// open creates and registers an Idle handle, or fails when not running.
func (s *Service) open() (*subscription.Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return nil, ErrNotRunning
	}
	h := subscription.NewHandle(s.logger)
	s.registry.Add(h)
	return h, nil
}

func (s *Service) defaultFeed(req Request) (feed.Feed, error) {
	pollCfg := feed.PollerConfig{Interval: s.cfg.PollInterval, BufferSize: s.cfg.BufferSize}

	switch {
	case req.Transport == model.TransportWS:
		pollCfg.Interval = s.cfg.WSPollInterval
		src := feed.GeckoSnapshot{API: s.gecko, IDs: req.Symbols, VS: req.VS}
		return feed.NewPoller(pollCfg, src, s.logger), nil

	case req.Strategy == config.StrategyTrades:
		return feed.NewTradeStream(feed.TradeStreamConfig{
			BaseURL:    s.cfg.BinanceWSURL,
			Symbols:    req.Symbols,
			Suffix:     s.cfg.TradeSuffix,
			BufferSize: s.cfg.BufferSize,
			Client:     connection.DefaultClientConfig(),
		}, s.logger)

	case req.Strategy == config.StrategyPoll:
		src := feed.BinanceSnapshot{API: s.binance, Symbols: req.Symbols}
		return feed.NewPoller(pollCfg, src, s.logger), nil
	}

	return nil, ErrUnknownStrategy
}

func (s *Service) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Service) record(h *subscription.Handle, req Request, frames int64) {
	s.journal.Record(model.Session{
		ID:        h.ID(),
		Transport: req.Transport,
		Strategy:  req.Strategy,
		Symbols:   req.Symbols,
		StartedAt: h.StartedAt(),
		ClosedAt:  h.ClosedAt(),
		Reason:    h.Reason(),
		Frames:    frames,
	})
}

// splitCSV splits a comma list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
