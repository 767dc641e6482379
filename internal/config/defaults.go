package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListenAddr        = ":3000"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second

	DefaultBinanceRestURL = "https://api.binance.com"
	DefaultBinanceWSURL   = "wss://stream.binance.com:9443"
	DefaultCoinGeckoURL   = "https://api.coingecko.com/api/v3"
	DefaultAPITimeout     = 10 * time.Second

	StrategyPoll   = "poll"
	StrategyTrades = "trades"

	DefaultStreamStrategy = StrategyPoll
	DefaultPollInterval   = 5 * time.Second
	DefaultStreamSymbol   = "btcusdt"
	DefaultTradeSuffix    = "@trade"
	DefaultStreamBuffer   = 16

	DefaultWSIDs = "bitcoin"
	DefaultWSVS  = "usd"

	CoinsSourceCoinGecko = "coingecko"
	CoinsSourceStatic    = "static"
	DefaultCoinsSource   = CoinsSourceCoinGecko

	DefaultHistorySymbol   = "BTCUSDT"
	DefaultHistoryInterval = "5m"
	DefaultHistoryLimit    = 288 // 288 x 5m = 24h
	DefaultHistoryMaxLimit = 1000

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 4
	DefaultMinConns  = 1

	DefaultJournalBatchSize     = 100
	DefaultJournalFlushInterval = 5 * time.Second
	DefaultJournalBufferSize    = 1000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultCoinIDs are the CoinGecko ids listed by /coins.
var DefaultCoinIDs = []string{"bitcoin", "ethereum", "solana", "dogecoin", "cardano", "ripple"}

// DefaultHistoryIntervals are the kline intervals /history accepts.
var DefaultHistoryIntervals = []string{"1m", "5m", "1h"}

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Upstream defaults
	if c.Upstream.BinanceRestURL == "" {
		c.Upstream.BinanceRestURL = DefaultBinanceRestURL
	}
	if c.Upstream.BinanceWSURL == "" {
		c.Upstream.BinanceWSURL = DefaultBinanceWSURL
	}
	if c.Upstream.CoinGeckoURL == "" {
		c.Upstream.CoinGeckoURL = DefaultCoinGeckoURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultAPITimeout
	}

	// Stream defaults
	if c.Stream.Strategy == "" {
		c.Stream.Strategy = DefaultStreamStrategy
	}
	if c.Stream.PollInterval == 0 {
		c.Stream.PollInterval = DefaultPollInterval
	}
	if len(c.Stream.DefaultSymbols) == 0 {
		c.Stream.DefaultSymbols = []string{DefaultStreamSymbol}
	}
	if c.Stream.TradeSuffix == "" {
		c.Stream.TradeSuffix = DefaultTradeSuffix
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBuffer
	}

	// WebSocket defaults
	if c.WS.PollInterval == 0 {
		c.WS.PollInterval = DefaultPollInterval
	}
	if c.WS.DefaultIDs == "" {
		c.WS.DefaultIDs = DefaultWSIDs
	}
	if c.WS.DefaultVS == "" {
		c.WS.DefaultVS = DefaultWSVS
	}

	// Coins defaults
	if c.Coins.Source == "" {
		c.Coins.Source = DefaultCoinsSource
	}
	if c.Coins.VSCurrency == "" {
		c.Coins.VSCurrency = DefaultWSVS
	}
	if len(c.Coins.IDs) == 0 {
		c.Coins.IDs = append([]string(nil), DefaultCoinIDs...)
	}

	// History defaults
	if c.History.DefaultSymbol == "" {
		c.History.DefaultSymbol = DefaultHistorySymbol
	}
	if c.History.DefaultInterval == "" {
		c.History.DefaultInterval = DefaultHistoryInterval
	}
	if c.History.DefaultLimit == 0 {
		c.History.DefaultLimit = DefaultHistoryLimit
	}
	if c.History.MaxLimit == 0 {
		c.History.MaxLimit = DefaultHistoryMaxLimit
	}
	if len(c.History.Intervals) == 0 {
		c.History.Intervals = append([]string(nil), DefaultHistoryIntervals...)
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
