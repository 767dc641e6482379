// Package server wires the HTTP routes of the relay onto a gin engine.
//
// Routes:
//   - GET /coins    coin catalog
//   - GET /history  Binance klines as OHLC candles
//   - GET /price    Binance last price (symbol) or CoinGecko simple price (ids)
//   - GET /stream   Server-Sent-Events price relay
//   - GET /ws       WebSocket price relay (upgrade route)
//   - GET /health   liveness and component status
//
// Proxy routes make one upstream call per request: no retry, no cache.
package server
