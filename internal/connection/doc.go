// Package connection implements the upstream WebSocket client.
//
// A Client:
//   - Dials one exchange stream (Binance combined trade stream)
//   - Answers server pings and sends its own keepalive pings
//   - Delivers messages in arrival order, closing Messages() when the socket ends
//   - Never reconnects; callers build a new Client for a new subscription
package connection
