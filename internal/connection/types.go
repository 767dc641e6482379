package connection

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoStreams       = errors.New("no streams requested")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// CombinedMessage is the envelope Binance wraps every message in on /stream.
type CombinedMessage struct {
	Stream string          `json:"stream"` // e.g. "btcusdt@trade"
	Data   json.RawMessage `json:"data"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Full stream URL, see CombinedStreamURL
	PingInterval time.Duration // How often to send keepalive pings
	PingTimeout  time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
// Binance pings every 20s, so a minute of silence means the socket is gone.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 30 * time.Second,
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   64,
	}
}

// StreamName builds one stream name: lower-cased symbol plus suffix ("btcusdt@trade").
func StreamName(symbol, suffix string) string {
	return strings.ToLower(strings.TrimSpace(symbol)) + suffix
}

// CombinedStreamURL builds the multiplexed stream URL for a set of symbols:
// {base}/stream?streams=btcusdt@trade/ethusdt@trade
func CombinedStreamURL(base string, symbols []string, suffix string) (string, error) {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			continue
		}
		names = append(names, StreamName(s, suffix))
	}
	if len(names) == 0 {
		return "", ErrNoStreams
	}

	return strings.TrimSuffix(base, "/") + "/stream?streams=" + strings.Join(names, "/"), nil
}
