package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/catalog"
	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/relay"
)

// Pinger reports database health. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the routes call into.
type Deps struct {
	Binance *api.Binance
	Gecko   *api.CoinGecko
	Catalog catalog.Source
	Relay   *relay.Service
	DB      Pinger // nil when the journal is disabled
	Logger  *slog.Logger
}

// Server holds the route table.
type Server struct {
	history config.HistoryConfig
	deps    Deps
	logger  *slog.Logger
	engine  *gin.Engine

	// upgrades maps paths that only accept WebSocket upgrades to their handler.
	upgrades map[string]http.HandlerFunc
}

// New builds the gin engine and registers every route.
func New(history config.HistoryConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		history: history,
		deps:    deps,
		logger:  logger,
		engine:  gin.New(),
	}
	s.upgrades = map[string]http.HandlerFunc{
		"/ws": deps.Relay.ServeWS,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/coins", s.handleCoins)
	s.engine.GET("/history", s.handleHistory)
	s.engine.GET("/price", s.handlePrice)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/stream", gin.WrapF(deps.Relay.ServeStream))

	for path, h := range s.upgrades {
		s.engine.GET(path, upgradeOnly(h))
	}

	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// upgradeOnly rejects plain HTTP requests to an upgrade route with 426.
func upgradeOnly(h http.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !websocket.IsWebSocketUpgrade(c.Request) {
			c.Header("Upgrade", "websocket")
			c.JSON(http.StatusUpgradeRequired, gin.H{"error": "websocket upgrade required"})
			return
		}
		h(c.Writer, c.Request)
	}
}

// requestLogger logs one line per finished request. Streaming routes log
// when the client goes away.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
			s.logger.Warn("request failed", attrs...)
			return
		}
		s.logger.Debug("request", attrs...)
	}
}
