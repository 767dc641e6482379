package feed

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyStarted = errors.New("feed already started")
	ErrStreamClosed   = errors.New("upstream stream closed")
)

// Kind identifies the upstream shape of a payload.
type Kind string

const (
	KindGeckoSnapshot   Kind = "coingecko_snapshot"
	KindBinanceSnapshot Kind = "binance_snapshot"
	KindTrade           Kind = "binance_trade"
)

// Payload is one raw upstream message, or an error marker when Err is set.
type Payload struct {
	Kind       Kind
	Data       []byte
	ReceivedAt time.Time

	// Keys are the requested ids or symbols, in request order.
	Keys []string
	// VS is the quote currency for CoinGecko snapshots.
	VS string

	Err      error
	Terminal bool // no more payloads follow
}

// IsError reports whether the payload is an error marker.
func (p Payload) IsError() bool {
	return p.Err != nil
}

// Feed is a lazy, non-restartable sequence of payloads.
type Feed interface {
	// Start begins producing payloads. The channel is closed when the
	// sequence ends or ctx is cancelled.
	Start(ctx context.Context) (<-chan Payload, error)

	// Stop releases the upstream resource and waits for the producer to exit.
	// Safe to call more than once.
	Stop()
}
