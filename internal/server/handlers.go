package server

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/model"
	"github.com/rickgao/cryptodash/internal/version"
)

type historyResponse struct {
	Symbol   string         `json:"symbol"`
	Interval string         `json:"interval"`
	Candles  []model.Candle `json:"candles"`
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func (s *Server) handleCoins(c *gin.Context) {
	coins, err := s.deps.Catalog.Coins(c.Request.Context())
	if err != nil {
		upstreamFailure(c, "failed to fetch coins", err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (s *Server) handleHistory(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("symbol", s.history.DefaultSymbol)))
	if symbol == "" {
		symbol = s.history.DefaultSymbol
	}

	interval := c.DefaultQuery("interval", s.history.DefaultInterval)
	if !slices.Contains(s.history.Intervals, interval) {
		badRequest(c, fmt.Errorf("unsupported interval %q", interval))
		return
	}

	limit := s.history.DefaultLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			badRequest(c, fmt.Errorf("limit must be an integer, got %q", raw))
			return
		}
		limit = max(1, min(n, s.history.MaxLimit))
	}

	candles, skipped, err := s.deps.Binance.Klines(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		upstreamFailure(c, "failed to fetch history", err)
		return
	}
	if skipped > 0 {
		s.logger.Debug("dropped invalid candles", "symbol", symbol, "skipped", skipped)
	}

	c.JSON(http.StatusOK, historyResponse{Symbol: symbol, Interval: interval, Candles: candles})
}

func (s *Server) handlePrice(c *gin.Context) {
	if symbol := strings.TrimSpace(c.Query("symbol")); symbol != "" {
		tp, err := s.deps.Binance.TickerPrice(c.Request.Context(), symbol)
		if err != nil {
			upstreamFailure(c, "failed to fetch price", err)
			return
		}
		price, err := api.ParsePrice(tp.Price)
		if err != nil {
			upstreamFailure(c, "failed to fetch price", fmt.Errorf("%w: %w", api.ErrUpstreamMalformed, err))
			return
		}
		c.JSON(http.StatusOK, priceResponse{Symbol: tp.Symbol, Price: price})
		return
	}

	if ids := strings.TrimSpace(c.Query("ids")); ids != "" {
		vs := c.DefaultQuery("vs", "usd")
		raw, err := s.deps.Gecko.SimplePriceRaw(c.Request.Context(), strings.Split(ids, ","), vs)
		if err != nil {
			upstreamFailure(c, "failed to fetch prices", err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
		return
	}

	badRequest(c, fmt.Errorf("%w: symbol or ids", ErrMissingParameter))
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	components := gin.H{}

	if s.deps.DB == nil {
		components["journal"] = "disabled"
	} else if err := s.deps.DB.Ping(c.Request.Context()); err != nil {
		components["journal"] = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		components["journal"] = "ok"
	}

	stats := s.deps.Relay.Stats()
	components["normalizer"] = gin.H{
		"received": stats.Received,
		"ticks":    stats.Ticks,
		"errors":   stats.Errors,
		"dropped":  stats.Dropped,
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":               state,
		"version":              version.String(),
		"build":                version.Get(),
		"active_subscriptions": s.deps.Relay.Active(),
		"components":           components,
	})
}
