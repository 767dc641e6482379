package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CoinGecko wraps a Client pointed at the CoinGecko v3 API.
type CoinGecko struct {
	c *Client
}

// NewCoinGecko creates a CoinGecko API wrapper.
func NewCoinGecko(c *Client) *CoinGecko {
	return &CoinGecko{c: c}
}

// SimplePriceRaw fetches the id -> currency -> price map and returns it undecoded.
func (g *CoinGecko) SimplePriceRaw(ctx context.Context, ids []string, vs string) ([]byte, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", vs)

	body, err := g.c.getRaw(ctx, "/simple/price", query)
	if err != nil {
		return nil, fmt.Errorf("get simple price: %w", err)
	}
	return body, nil
}

// CoinMarkets fetches market metadata for the given ids, ordered by market cap.
func (g *CoinGecko) CoinMarkets(ctx context.Context, vs string, ids []string) ([]CoinMarket, error) {
	query := url.Values{}
	query.Set("vs_currency", vs)
	if len(ids) > 0 {
		query.Set("ids", strings.Join(ids, ","))
	}
	query.Set("order", "market_cap_desc")

	var resp []CoinMarket
	if err := g.c.get(ctx, "/coins/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get coin markets: %w", err)
	}
	return resp, nil
}
