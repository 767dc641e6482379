package feed

import (
	"context"
	"time"

	"github.com/rickgao/cryptodash/internal/api"
)

// SnapshotSource fetches one REST snapshot.
type SnapshotSource interface {
	Fetch(ctx context.Context) (Payload, error)
}

// BinanceSnapshot polls /api/v3/ticker/price for a set of symbols.
type BinanceSnapshot struct {
	API     *api.Binance
	Symbols []string
}

func (s BinanceSnapshot) Fetch(ctx context.Context) (Payload, error) {
	p := Payload{Kind: KindBinanceSnapshot, Keys: s.Symbols}
	data, err := s.API.TickerPricesRaw(ctx, s.Symbols)
	p.ReceivedAt = time.Now()
	if err != nil {
		return p, err
	}
	p.Data = data
	return p, nil
}

// GeckoSnapshot polls /simple/price for a set of coin ids.
type GeckoSnapshot struct {
	API *api.CoinGecko
	IDs []string
	VS  string
}

func (s GeckoSnapshot) Fetch(ctx context.Context) (Payload, error) {
	p := Payload{Kind: KindGeckoSnapshot, Keys: s.IDs, VS: s.VS}
	data, err := s.API.SimplePriceRaw(ctx, s.IDs, s.VS)
	p.ReceivedAt = time.Now()
	if err != nil {
		return p, err
	}
	p.Data = data
	return p, nil
}
