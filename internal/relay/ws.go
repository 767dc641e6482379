package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/model"
	"github.com/rickgao/cryptodash/internal/normalize"
	"github.com/rickgao/cryptodash/internal/subscription"
)

const wsWriteTimeout = 5 * time.Second

// wsMessage is one snapshot pushed to a /ws client.
type wsMessage struct {
	IDs   string            `json:"ids"`
	VS    string            `json:"vs"`
	Data  json.RawMessage   `json:"data"`
	Ticks []model.PriceTick `json:"ticks"`
}

// wsError is pushed when a poll fails.
type wsError struct {
	Error string `json:"error"`
}

// ParseWSRequest reads ids and vs from a /ws query.
func (s *Service) ParseWSRequest(r *http.Request) (Request, string) {
	q := r.URL.Query()

	ids := strings.TrimSpace(q.Get("ids"))
	if len(splitCSV(ids)) == 0 {
		ids = s.cfg.DefaultIDs
	}
	vs := strings.ToLower(strings.TrimSpace(q.Get("vs")))
	if vs == "" {
		vs = s.cfg.DefaultVS
	}

	return Request{
		Transport: model.TransportWS,
		Strategy:  config.StrategyPoll,
		Symbols:   splitCSV(ids),
		VS:        vs,
	}, ids
}

// ServeWS upgrades the request and pushes one CoinGecko snapshot per poll
// until the client closes the socket.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	req, ids := s.ParseWSRequest(r)

	if !s.isRunning() {
		http.Error(w, ErrNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	closeConn := func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	h, err := s.open()
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	f, err := s.newFeed(req)
	if err != nil {
		h.Close(subscription.ReasonCancelled)
		closeConn()
		return
	}

	// The hijacked connection outlives r.Context, so the feed hangs off its own context.
	ctx, cancel := context.WithCancel(context.Background())
	payloads, err := f.Start(ctx)
	if err != nil {
		cancel()
		h.Close(subscription.ReasonCancelled)
		closeConn()
		return
	}

	logger := s.logger.With("subscription", h.ID(), "transport", req.Transport)

	if err := h.Activate(closeConn, f.Stop, cancel); err != nil {
		logger.Debug("websocket closed before start", "reason", h.Reason(), "error", err)
		return
	}

	logger.Debug("websocket opened", "ids", ids, "vs", req.VS)

	var frames int64
	defer func() {
		h.Close(subscription.ReasonCancelled)
		s.record(h, req, frames)
		logger.Debug("websocket closed", "reason", h.Reason(), "frames", frames)
	}()

	// Reading is the only way to observe a client close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Close(subscription.ReasonClientGone)
				return
			}
		}
	}()

	for {
		select {
		case <-h.Done():
			return

		case p, ok := <-payloads:
			if !ok {
				h.Close(subscription.ReasonUpstreamClosed)
				return
			}

			var msg any = wsError{Error: normalize.MsgFetchFailed}
			if !p.IsError() {
				ticks := make([]model.PriceTick, 0, len(p.Keys))
				for _, e := range s.normalizer.Normalize(p) {
					ticks = append(ticks, *e.Tick)
				}
				msg = wsMessage{IDs: ids, VS: req.VS, Data: p.Data, Ticks: ticks}
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("websocket write failed", "error", err)
				h.Close(subscription.ReasonWriteFailed)
				return
			}
			frames++
		}
	}
}
