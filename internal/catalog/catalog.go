// Package catalog serves the dashboard coin list.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/model"
)

// Source returns the coin list.
type Source interface {
	Coins(ctx context.Context) ([]model.Coin, error)
}

// builtin is the dashboard's own coin list. Ids are Binance stream symbols.
var builtin = []model.Coin{
	{ID: "btcusdt", Symbol: "BTC", Name: "Bitcoin", Color: "#f7931a", Icon: "₿"},
	{ID: "ethusdt", Symbol: "ETH", Name: "Ethereum", Color: "#627eea", Icon: "Ξ"},
	{ID: "solusdt", Symbol: "SOL", Name: "Solana", Color: "#14f195", Icon: "◎"},
	{ID: "dogeusdt", Symbol: "DOGE", Name: "Dogecoin", Color: "#c2a633", Icon: "Ð"},
	{ID: "adausdt", Symbol: "ADA", Name: "Cardano", Color: "#0033ad", Icon: "₳"},
	{ID: "xrpusdt", Symbol: "XRP", Name: "XRP", Color: "#23292f", Icon: "✕"},
}

// Color returns the dashboard color for a ticker symbol, or "".
func Color(symbol string) string {
	symbol = strings.ToUpper(symbol)
	for _, c := range builtin {
		if c.Symbol == symbol {
			return c.Color
		}
	}
	return ""
}

// Static serves the built-in list.
type Static struct{}

func (Static) Coins(context.Context) ([]model.Coin, error) {
	out := make([]model.Coin, len(builtin))
	copy(out, builtin)
	return out, nil
}

// Gecko serves coins from CoinGecko /coins/markets.
type Gecko struct {
	API *api.CoinGecko
	VS  string
	IDs []string
}

func (g Gecko) Coins(ctx context.Context) ([]model.Coin, error) {
	markets, err := g.API.CoinMarkets(ctx, g.VS, g.IDs)
	if err != nil {
		return nil, fmt.Errorf("coin catalog: %w", err)
	}

	coins := make([]model.Coin, 0, len(markets))
	for _, m := range markets {
		c := m.ToCoin()
		c.Color = Color(c.Symbol)
		coins = append(coins, c)
	}
	return coins, nil
}
