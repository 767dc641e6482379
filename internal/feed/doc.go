// Package feed implements the upstream side of a live subscription.
//
// A Feed produces Payloads on a channel that is closed when the sequence ends:
//   - Poller fetches a REST snapshot immediately and then on every interval tick.
//     A failed poll emits a non-terminal error payload and polling continues.
//   - TradeStream relays every message of a Binance combined trade stream.
//     A socket error or close emits one terminal error payload, then the feed ends.
//
// Feeds are constructed per subscription and are not restartable.
package feed
