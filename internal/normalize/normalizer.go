package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/feed"
	"github.com/rickgao/cryptodash/internal/model"
)

// Error marker texts sent downstream.
const (
	MsgFetchFailed  = "fetch failed"
	MsgStreamClosed = "stream closed"
)

var errNotTrade = errors.New("not a trade message")

// Stats contains runtime statistics.
type Stats struct {
	Received int64
	Ticks    int64
	Errors   int64
	Dropped  int64
}

// Normalizer converts feed payloads to events. Safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger

	received atomic.Int64
	ticks    atomic.Int64
	errors   atomic.Int64
	dropped  atomic.Int64
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Stats returns current statistics.
func (n *Normalizer) Stats() Stats {
	return Stats{
		Received: n.received.Load(),
		Ticks:    n.ticks.Load(),
		Errors:   n.errors.Load(),
		Dropped:  n.dropped.Load(),
	}
}

// Normalize converts one payload into zero or more events.
func (n *Normalizer) Normalize(p feed.Payload) (events []model.Event) {
	n.received.Add(1)

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalize panic", "kind", p.Kind, "panic", r)
			n.dropped.Add(1)
			events = nil
		}
	}()

	if p.IsError() {
		n.errors.Add(1)
		msg := MsgFetchFailed
		if p.Terminal {
			msg = MsgStreamClosed
		}
		return []model.Event{model.ErrorEvent(msg, p.Terminal)}
	}

	var ticks []model.PriceTick
	var err error

	switch p.Kind {
	case feed.KindGeckoSnapshot:
		ticks, err = parseGecko(p)
	case feed.KindBinanceSnapshot:
		ticks, err = parseTickerPrices(p)
	case feed.KindTrade:
		var tick model.PriceTick
		tick, err = parseTrade(p)
		ticks = []model.PriceTick{tick}
	default:
		err = fmt.Errorf("unknown payload kind %q", p.Kind)
	}

	if err != nil {
		n.logger.Warn("dropping malformed payload", "kind", p.Kind, "error", err)
		n.dropped.Add(1)
		return nil
	}

	events = make([]model.Event, 0, len(ticks))
	for _, t := range ticks {
		events = append(events, model.TickEvent(t))
	}
	n.ticks.Add(int64(len(events)))
	return events
}

// parseGecko emits one tick per requested id that carries the quote currency.
func parseGecko(p feed.Payload) ([]model.PriceTick, error) {
	var wire simplePriceWire
	if err := json.Unmarshal(p.Data, &wire); err != nil {
		return nil, err
	}

	ids := p.Keys
	if len(ids) == 0 {
		ids = make([]string, 0, len(wire))
		for id := range wire {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	vs := strings.ToLower(p.VS)
	ticks := make([]model.PriceTick, 0, len(ids))
	for _, id := range ids {
		quotes, ok := wire[id]
		if !ok {
			continue
		}
		num, ok := quotes[vs]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", id, err)
		}
		ticks = append(ticks, model.NewPriceTick(id, d.InexactFloat64(), p.ReceivedAt))
	}
	return ticks, nil
}

// parseTickerPrices emits one tick per returned symbol, in requested order.
func parseTickerPrices(p feed.Payload) ([]model.PriceTick, error) {
	var wire []tickerPriceWire
	if err := json.Unmarshal(p.Data, &wire); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(wire))
	order := make([]string, 0, len(wire))
	for _, w := range wire {
		price, err := api.ParsePrice(w.Price)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", w.Symbol, err)
		}
		prices[w.Symbol] = price
		order = append(order, w.Symbol)
	}

	if len(p.Keys) > 0 {
		order = order[:0]
		for _, k := range p.Keys {
			order = append(order, strings.ToUpper(k))
		}
	}

	ticks := make([]model.PriceTick, 0, len(order))
	for _, sym := range order {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		ticks = append(ticks, model.NewPriceTick(sym, price, p.ReceivedAt))
	}
	return ticks, nil
}

// parseTrade accepts a combined envelope or a bare trade.
func parseTrade(p feed.Payload) (model.PriceTick, error) {
	data := p.Data

	var env combinedWire
	if err := json.Unmarshal(data, &env); err != nil {
		return model.PriceTick{}, err
	}
	if len(env.Data) > 0 {
		data = env.Data
	}

	var wire tradeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.PriceTick{}, err
	}
	if wire.EventType != "" && wire.EventType != "trade" {
		return model.PriceTick{}, errNotTrade
	}
	if wire.Symbol == "" {
		return model.PriceTick{}, errors.New("trade without symbol")
	}

	price, err := api.ParsePrice(wire.Price)
	if err != nil {
		return model.PriceTick{}, err
	}

	ts := p.ReceivedAt
	switch {
	case wire.TradeTime > 0:
		ts = time.UnixMilli(wire.TradeTime)
	case wire.EventTime > 0:
		ts = time.UnixMilli(wire.EventTime)
	}

	return model.NewPriceTick(strings.ToUpper(wire.Symbol), price, ts), nil
}
