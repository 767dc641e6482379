package api

import "encoding/json"

// TickerPrice from GET /api/v3/ticker/price. Binance sends the price as text.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Kline is one raw row from GET /api/v3/klines:
// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
type Kline []json.RawMessage

// CoinMarket from GET /coins/markets.
type CoinMarket struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	CurrentPrice float64 `json:"current_price"`
}

// SimplePrice from GET /simple/price: id -> currency -> price.
type SimplePrice map[string]map[string]json.Number
