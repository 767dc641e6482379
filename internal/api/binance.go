package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/cryptodash/internal/model"
)

// Binance wraps a Client pointed at the Binance spot REST API.
type Binance struct {
	c *Client
}

// NewBinance creates a Binance API wrapper.
func NewBinance(c *Client) *Binance {
	return &Binance{c: c}
}

// TickerPrice fetches the last price for one symbol.
func (b *Binance) TickerPrice(ctx context.Context, symbol string) (*TickerPrice, error) {
	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))

	var resp TickerPrice
	if err := b.c.get(ctx, "/api/v3/ticker/price", query, &resp); err != nil {
		return nil, fmt.Errorf("get ticker price %s: %w", symbol, err)
	}
	return &resp, nil
}

// TickerPricesRaw fetches last prices for a set of symbols and returns the raw
// JSON array, leaving decoding to the caller.
func (b *Binance) TickerPricesRaw(ctx context.Context, symbols []string) ([]byte, error) {
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}
	encoded, err := json.Marshal(upper)
	if err != nil {
		return nil, fmt.Errorf("encode symbols: %w", err)
	}

	query := url.Values{}
	query.Set("symbols", string(encoded))

	body, err := b.c.getRaw(ctx, "/api/v3/ticker/price", query)
	if err != nil {
		return nil, fmt.Errorf("get ticker prices: %w", err)
	}
	return body, nil
}

// Klines fetches up to limit OHLC bars. Rows that fail to parse or are
// internally inconsistent are skipped; the number skipped is returned.
func (b *Binance) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, int, error) {
	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))
	query.Set("interval", interval)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var rows []Kline
	if err := b.c.get(ctx, "/api/v3/klines", query, &rows); err != nil {
		return nil, 0, fmt.Errorf("get klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]model.Candle, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		c, err := row.ToCandle()
		if err != nil || !c.Valid() {
			skipped++
			continue
		}
		candles = append(candles, c)
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, skipped, nil
}
