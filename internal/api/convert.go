package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/cryptodash/internal/model"
)

var errShortKline = errors.New("kline row has fewer than 5 fields")

// ParsePrice parses a textual price ("65000.12") into float64.
// Empty, non-numeric and negative input is rejected.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty price")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price %q", s)
	}

	return d.InexactFloat64(), nil
}

// ToCandle converts a kline row into a Candle.
func (k Kline) ToCandle() (model.Candle, error) {
	if len(k) < 5 {
		return model.Candle{}, errShortKline
	}

	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return model.Candle{}, fmt.Errorf("open time: %w", err)
	}

	var fields [4]float64
	for i := range fields {
		var text string
		if err := json.Unmarshal(k[i+1], &text); err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := ParsePrice(text)
		if err != nil {
			return model.Candle{}, err
		}
		fields[i] = v
	}

	return model.Candle{
		Time:  time.UnixMilli(openTime).UTC(),
		Open:  fields[0],
		High:  fields[1],
		Low:   fields[2],
		Close: fields[3],
	}, nil
}

// ToCoin converts a CoinGecko market entry to a dashboard coin. The coin image
// URL becomes the icon. CoinGecko has no color; catalog.Gecko joins it from the
// built-in list by symbol.
func (m CoinMarket) ToCoin() model.Coin {
	return model.Coin{
		ID:     m.ID,
		Symbol: strings.ToUpper(m.Symbol),
		Name:   m.Name,
		Icon:   m.Image,
	}
}
