// Package api provides REST clients for the public price APIs the relay proxies.
//
// Binance (https://api.binance.com):
//   - GET /api/v3/ticker/price  last price for one symbol or a set of symbols
//   - GET /api/v3/klines        OHLC history
//
// CoinGecko (https://api.coingecko.com/api/v3):
//   - GET /simple/price   id -> currency -> price snapshot
//   - GET /coins/markets  coin metadata for the dashboard list
//
// Requests are single-shot: a failed call is returned to the caller, never retried.
package api
