package normalize

import "encoding/json"

// Wire types for JSON parsing

// combinedWire is the envelope of a Binance combined stream message.
type combinedWire struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tradeWire is the wire format for Binance trade messages.
type tradeWire struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"` // ms
}

// tickerPriceWire is one element of the /api/v3/ticker/price array.
type tickerPriceWire struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// simplePriceWire is the CoinGecko /simple/price body: id -> currency -> price.
type simplePriceWire map[string]map[string]json.Number
