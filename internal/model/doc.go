// Package model defines shared data types used across the relay.
//
// Conventions:
//   - Prices: float64 quote-currency units
//   - Tick timestamps: int64 milliseconds since Unix epoch
//   - Symbols: exchange symbols are upper-case (BTCUSDT); CoinGecko ids are kept as given
package model
