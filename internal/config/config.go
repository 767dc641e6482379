package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Stream   StreamConfig   `yaml:"stream"`
	WS       WSConfig       `yaml:"ws"`
	Coins    CoinsConfig    `yaml:"coins"`
	History  HistoryConfig  `yaml:"history"`
	Database DBConfig       `yaml:"database"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds the public price API endpoints.
type UpstreamConfig struct {
	BinanceRestURL string        `yaml:"binance_rest_url"`
	BinanceWSURL   string        `yaml:"binance_ws_url"`
	CoinGeckoURL   string        `yaml:"coingecko_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

// StreamConfig holds /stream (Server-Sent-Events) settings.
type StreamConfig struct {
	Strategy       string        `yaml:"strategy"` // "poll" or "trades"
	PollInterval   time.Duration `yaml:"poll_interval"`
	DefaultSymbols []string      `yaml:"default_symbols"`
	TradeSuffix    string        `yaml:"trade_suffix"`
	BufferSize     int           `yaml:"buffer_size"`
}

// WSConfig holds /ws (WebSocket) settings.
type WSConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	DefaultIDs     string        `yaml:"default_ids"`
	DefaultVS      string        `yaml:"default_vs"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // empty = any origin
}

// CoinsConfig selects where /coins reads its catalog from.
type CoinsConfig struct {
	Source     string   `yaml:"source"` // "coingecko" or "static"
	VSCurrency string   `yaml:"vs_currency"`
	IDs        []string `yaml:"ids"`
}

// HistoryConfig holds /history defaults.
type HistoryConfig struct {
	DefaultSymbol   string   `yaml:"default_symbol"`
	DefaultInterval string   `yaml:"default_interval"`
	DefaultLimit    int      `yaml:"default_limit"`
	MaxLimit        int      `yaml:"max_limit"`
	Intervals       []string `yaml:"intervals"`
}

// DBConfig holds the PostgreSQL connection used by the session journal.
// The journal is skipped entirely when Enabled is false.
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// JournalConfig holds session journal batching settings.
type JournalConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// envOverrides are the RELAY_* variables applied on top of the file.
type envOverrides struct {
	ListenAddr     string `envconfig:"LISTEN_ADDR"`
	StreamStrategy string `envconfig:"STREAM_STRATEGY"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	CoinsSource    string `envconfig:"COINS_SOURCE"`
}
