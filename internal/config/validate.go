package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}

	if c.Upstream.BinanceRestURL == "" {
		return errors.New("upstream.binance_rest_url is required")
	}
	if !strings.HasPrefix(c.Upstream.BinanceWSURL, "ws://") && !strings.HasPrefix(c.Upstream.BinanceWSURL, "wss://") {
		return fmt.Errorf("upstream.binance_ws_url must be a ws:// or wss:// url, got %q", c.Upstream.BinanceWSURL)
	}
	if c.Upstream.CoinGeckoURL == "" {
		return errors.New("upstream.coingecko_url is required")
	}

	switch c.Stream.Strategy {
	case StrategyPoll, StrategyTrades:
	default:
		return fmt.Errorf("stream.strategy must be %q or %q, got %q", StrategyPoll, StrategyTrades, c.Stream.Strategy)
	}
	if c.Stream.PollInterval <= 0 {
		return errors.New("stream.poll_interval must be > 0")
	}
	if c.Stream.BufferSize < 0 {
		return errors.New("stream.buffer_size must be >= 0")
	}
	if c.WS.PollInterval <= 0 {
		return errors.New("ws.poll_interval must be > 0")
	}

	switch c.Coins.Source {
	case CoinsSourceCoinGecko, CoinsSourceStatic:
	default:
		return fmt.Errorf("coins.source must be %q or %q, got %q", CoinsSourceCoinGecko, CoinsSourceStatic, c.Coins.Source)
	}

	if c.History.MaxLimit < 1 {
		return errors.New("history.max_limit must be >= 1")
	}
	if c.History.DefaultLimit < 1 || c.History.DefaultLimit > c.History.MaxLimit {
		return fmt.Errorf("history.default_limit (%d) must be between 1 and max_limit (%d)", c.History.DefaultLimit, c.History.MaxLimit)
	}
	if !slices.Contains(c.History.Intervals, c.History.DefaultInterval) {
		return fmt.Errorf("history.default_interval %q is not listed in history.intervals", c.History.DefaultInterval)
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
