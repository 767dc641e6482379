package model

import (
	"time"
)

// PriceTick is one normalized price observation for one symbol.
type PriceTick struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	ObservedAt int64   `json:"ts"` // ms since epoch
}

// NewPriceTick builds a tick observed at t.
func NewPriceTick(symbol string, price float64, t time.Time) PriceTick {
	return PriceTick{Symbol: symbol, Price: price, ObservedAt: t.UnixMilli()}
}

// Time returns the observation time.
func (p PriceTick) Time() time.Time {
	return time.UnixMilli(p.ObservedAt)
}

// Event is one item on its way to a downstream client: a tick or an error marker.
type Event struct {
	Tick *PriceTick

	// Err is set for error markers.
	Err string
	// Terminal error markers end the stream after they are delivered.
	Terminal bool
}

// TickEvent wraps a tick.
func TickEvent(t PriceTick) Event {
	return Event{Tick: &t}
}

// ErrorEvent builds an error marker.
func ErrorEvent(msg string, terminal bool) Event {
	return Event{Err: msg, Terminal: terminal}
}

// IsError reports whether the event is an error marker.
func (e Event) IsError() bool {
	return e.Tick == nil
}

// Candle is one OHLC bar of price history.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Valid reports whether the bar is internally consistent.
func (c Candle) Valid() bool {
	return c.High >= c.Low && c.High >= c.Open && c.High >= c.Close &&
		c.Low <= c.Open && c.Low <= c.Close
}

// Coin is one entry of the dashboard coin list.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Icon   string `json:"icon,omitempty"`
}

// Transport identifies how a subscription reaches its client.
type Transport string

const (
	TransportSSE Transport = "sse"
	TransportWS  Transport = "ws"
)

// Session is the journal record of one subscription's lifetime.
type Session struct {
	ID        string
	Transport Transport
	Strategy  string
	Symbols   []string
	StartedAt time.Time
	ClosedAt  time.Time
	Reason    string
	Frames    int64
}
