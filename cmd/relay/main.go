package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/catalog"
	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/database"
	"github.com/rickgao/cryptodash/internal/journal"
	"github.com/rickgao/cryptodash/internal/normalize"
	"github.com/rickgao/cryptodash/internal/relay"
	"github.com/rickgao/cryptodash/internal/server"
	"github.com/rickgao/cryptodash/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults and environment only)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"build", version.Get(),
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped")
}

func run(ctx context.Context, cfg *config.RelayConfig, logger *slog.Logger) error {
	binance := api.NewBinance(api.NewClient("binance", cfg.Upstream.BinanceRestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Upstream.Timeout),
	))
	gecko := api.NewCoinGecko(api.NewClient("coingecko", cfg.Upstream.CoinGeckoURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Upstream.Timeout),
	))

	var coins catalog.Source = catalog.Static{}
	if cfg.Coins.Source == config.CoinsSourceCoinGecko {
		coins = catalog.Gecko{API: gecko, VS: cfg.Coins.VSCurrency, IDs: cfg.Coins.IDs}
	}

	// Session journal (optional)
	var (
		sessions journal.Journal = journal.Noop{}
		writer   *journal.Writer
		db       server.Pinger
	)
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		writer = journal.NewWriter(journal.WriterConfig{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)
		if err := writer.Start(ctx); err != nil {
			return err
		}
		sessions = writer
		db = pool
	}

	svc := relay.NewService(relay.ConfigFrom(cfg), relay.Deps{
		Binance:    binance,
		Gecko:      gecko,
		Normalizer: normalize.New(logger),
		Journal:    sessions,
		Logger:     logger,
	})
	if err := svc.Init(ctx); err != nil {
		return err
	}

	srv := server.New(cfg.History, server.Deps{
		Binance: binance,
		Gecko:   gecko,
		Catalog: coins,
		Relay:   svc,
		DB:      db,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Streams never finish on their own, so release them before the
		// HTTP server waits for in-flight requests.
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Warn("relay shutdown incomplete", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown incomplete", "error", err)
		}
		if writer != nil {
			writer.Stop(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
