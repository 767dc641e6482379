// Package relay forwards live prices from an upstream feed to one downstream
// client.
//
// Every request owns its own feed, normalizer pass and subscription.Handle;
// nothing is shared between connections. Teardown from any cause goes through
// Handle.Close, so the upstream is released exactly once.
//
// Transports:
//   - ServeStream: Server-Sent-Events on GET /stream
//   - ServeWS: WebSocket on GET /ws, CoinGecko snapshots only
package relay
