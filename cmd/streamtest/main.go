// streamtest connects to a running relay and prints what it streams.
// Usage:
//
//	go run ./cmd/streamtest --mode stream --symbols btcusdt,ethusdt
//	go run ./cmd/streamtest --mode ws --ids bitcoin,ethereum --vs usd
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rickgao/cryptodash/internal/connection"
	"github.com/rickgao/cryptodash/internal/model"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "relay base url")
	mode := flag.String("mode", "stream", "stream (SSE) or ws (WebSocket)")
	symbols := flag.String("symbols", "", "comma separated Binance symbols for /stream")
	strategy := flag.String("strategy", "", "poll or trades; empty uses the relay default")
	ids := flag.String("ids", "", "comma separated CoinGecko ids for /ws")
	vs := flag.String("vs", "", "quote currency for /ws")
	verbose := flag.Bool("verbose", false, "print raw frames")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var frames, errs atomic.Int64

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("stats", "frames", frames.Load(), "errors", errs.Load())
			}
		}
	}()

	var err error
	switch *mode {
	case "stream":
		q := url.Values{}
		if *symbols != "" {
			q.Set("symbols", *symbols)
		}
		if *strategy != "" {
			q.Set("strategy", *strategy)
		}
		err = tailStream(ctx, *baseURL+"/stream?"+q.Encode(), *verbose, &frames, &errs, logger)
	case "ws":
		q := url.Values{}
		if *ids != "" {
			q.Set("ids", *ids)
		}
		if *vs != "" {
			q.Set("vs", *vs)
		}
		wsURL := "ws" + strings.TrimPrefix(*baseURL, "http") + "/ws?" + q.Encode()
		err = tailWS(ctx, wsURL, *verbose, &frames, &errs, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil && ctx.Err() == nil {
		logger.Error("streaming failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete", "frames", frames.Load(), "errors", errs.Load())
}

// tailStream reads Server-Sent-Events frames until the stream ends.
func tailStream(ctx context.Context, target string, verbose bool, frames, errs *atomic.Int64, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	logger.Info("streaming started - press Ctrl+C to stop", "url", target)

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			frames.Add(1)
			if verbose {
				fmt.Printf("[FRAME] event=%q data=%s\n", event, data)
			}
			if event == "error" {
				errs.Add(1)
				fmt.Printf("[ERROR] %s\n", data)
			} else {
				printTick(data)
			}
			event, data = "", ""
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	logger.Info("stream ended by relay")
	return nil
}

// tailWS reads /ws messages until the socket closes.
func tailWS(ctx context.Context, target string, verbose bool, frames, errs *atomic.Int64, logger *slog.Logger) error {
	cfg := connection.DefaultClientConfig()
	cfg.URL = target

	client := connection.NewClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	logger.Info("streaming started - press Ctrl+C to stop", "url", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-client.Messages():
			if !ok {
				return client.Err()
			}
			frames.Add(1)
			if verbose {
				fmt.Printf("[FRAME] %s\n", msg.Data)
			}

			var reply struct {
				Error string            `json:"error"`
				Ticks []model.PriceTick `json:"ticks"`
			}
			if err := json.Unmarshal(msg.Data, &reply); err != nil {
				logger.Warn("bad message", "error", err)
				continue
			}
			if reply.Error != "" {
				errs.Add(1)
				fmt.Printf("[ERROR] %s\n", reply.Error)
				continue
			}
			for _, t := range reply.Ticks {
				fmt.Printf("[TICK] symbol=%s price=%v at=%s\n", t.Symbol, t.Price, t.Time().Format(time.RFC3339))
			}
		}
	}
}

func printTick(data string) {
	var t model.PriceTick
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		fmt.Printf("[FRAME] %s\n", data)
		return
	}
	fmt.Printf("[TICK] symbol=%s price=%v at=%s\n", t.Symbol, t.Price, t.Time().Format(time.RFC3339))
}
