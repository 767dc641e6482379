package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/cryptodash/internal/api"
	"github.com/rickgao/cryptodash/internal/catalog"
	"github.com/rickgao/cryptodash/internal/config"
	"github.com/rickgao/cryptodash/internal/feed"
	"github.com/rickgao/cryptodash/internal/model"
	"github.com/rickgao/cryptodash/internal/relay"
	"github.com/rickgao/cryptodash/internal/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func historyConfig() config.HistoryConfig {
	return config.HistoryConfig{
		DefaultSymbol:   config.DefaultHistorySymbol,
		DefaultInterval: config.DefaultHistoryInterval,
		DefaultLimit:    config.DefaultHistoryLimit,
		MaxLimit:        config.DefaultHistoryMaxLimit,
		Intervals:       config.DefaultHistoryIntervals,
	}
}

// newTestServer points both upstream wrappers at one stub.
func newTestServer(t *testing.T, upstream http.HandlerFunc, mutate ...func(*Deps)) *Server {
	t.Helper()
	stub := httptest.NewServer(upstream)
	t.Cleanup(stub.Close)

	svc := relay.NewService(relay.Config{}, relay.Deps{})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	deps := Deps{
		Binance: api.NewBinance(api.NewClient("binance", stub.URL)),
		Gecko:   api.NewCoinGecko(api.NewClient("coingecko", stub.URL)),
		Catalog: catalog.Static{},
		Relay:   svc,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return New(historyConfig(), deps)
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPrice_Symbol(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.12"}`))
	})

	rec := get(s, "/price?symbol=btcusdt")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"BTCUSDT","price":65000.12}`, rec.Body.String())
}

func TestPrice_IDsPassThrough(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"bitcoin":{"usd":65000.12},"ethereum":{"usd":3200}}`))
	})

	rec := get(s, "/price?ids=bitcoin,ethereum")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bitcoin":{"usd":65000.12},"ethereum":{"usd":3200}}`, rec.Body.String())
}

func TestPrice_MissingParameter(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	rec := get(s, "/price")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrMissingParameter.Error())
}

func TestPrice_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":-1,"msg":"busy"}`))
	})

	rec := get(s, "/price?symbol=BTCUSDT")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body upstreamErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to fetch price", body.Error)
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	assert.Equal(t, "Service Unavailable", body.StatusText)
	assert.Equal(t, `{"code":-1,"msg":"busy"}`, body.Body)
}

func TestPrice_UpstreamUnreachable(t *testing.T) {
	s := newTestServer(t, nil, func(d *Deps) {
		d.Gecko = api.NewCoinGecko(api.NewClient("coingecko", "http://127.0.0.1:1", api.WithTimeout(time.Second)))
	})

	rec := get(s, "/price?ids=bitcoin")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body upstreamErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Status)
	assert.Equal(t, "failed to fetch prices", body.Error)
}

func TestPrice_MalformedUpstreamPrice(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"n/a"}`))
	})

	rec := get(s, "/price?symbol=BTCUSDT")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistory_DefaultsAndFiltering(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "5m", q.Get("interval"))
		assert.Equal(t, "288", q.Get("limit"))
		w.Write([]byte(`[
			[1705320000000,"100.0","110.0","95.0","105.0","1.0",1705320299999],
			[1705320300000,"105.0","100.0","95.0","104.0","1.0",1705320599999],
			[1705320600000,"abc","110.0","95.0","105.0","1.0",1705320899999],
			[1705320900000,"105.0","120.0","101.0","118.0","1.0",1705321199999]
		]`))
	})

	rec := get(s, "/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbol   string         `json:"symbol"`
		Interval string         `json:"interval"`
		Candles  []model.Candle `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "BTCUSDT", body.Symbol)
	assert.Equal(t, "5m", body.Interval)
	require.Len(t, body.Candles, 2)
	assert.True(t, body.Candles[0].Time.Equal(time.UnixMilli(1705320000000)))
	for _, c := range body.Candles {
		assert.GreaterOrEqual(t, c.High, c.Low)
		assert.GreaterOrEqual(t, c.High, max(c.Open, c.Close))
	}
	assert.Contains(t, rec.Body.String(), `"time":"2024-01-15T12:00:00Z"`)
}

func TestHistory_LimitClampedAndSymbolUpperCased(t *testing.T) {
	tests := []struct {
		query     string
		wantLimit string
	}{
		{"?symbol=ethusdt&limit=5000", "1000"},
		{"?symbol=ethusdt&limit=0", "1"},
		{"?symbol=ethusdt&limit=-4", "1"},
		{"?symbol=ethusdt&limit=12", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
				assert.Equal(t, tt.wantLimit, r.URL.Query().Get("limit"))
				w.Write([]byte(`[]`))
			})

			rec := get(s, "/history"+tt.query)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"symbol":"ETHUSDT","interval":"5m","candles":[]}`, rec.Body.String())
		})
	}
}

func TestHistory_BadRequest(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})

	for _, q := range []string{"?interval=2h", "?limit=abc", "?limit=1.5"} {
		rec := get(s, "/history"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHistory_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	rec := get(s, "/history?symbol=NOPE")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to fetch history","status":400,"statusText":"Bad Request","body":"{\"code\":-1121,\"msg\":\"Invalid symbol.\"}"}`, rec.Body.String())
}

func TestCoins_Static(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(s, "/coins")

	require.Equal(t, http.StatusOK, rec.Code)
	var coins []model.Coin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coins))
	assert.Len(t, coins, 6)
	assert.Equal(t, "Bitcoin", coins[0].Name)
}

func TestCoins_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, func(d *Deps) {
		d.Catalog = catalog.Gecko{API: d.Gecko, VS: "usd"}
	})

	rec := get(s, "/coins")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":429`)
}

func TestWS_RequiresUpgrade(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(s, "/ws?ids=bitcoin")

	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)
	assert.Equal(t, "websocket", rec.Header().Get("Upgrade"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(s, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["active_subscriptions"])
	assert.Equal(t, "disabled", body["components"].(map[string]any)["journal"])
	assert.Equal(t, version.String(), body["version"])
	assert.Equal(t, version.Version, body["build"].(map[string]any)["version"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestServer(t, nil, func(d *Deps) {
		d.DB = pingFunc(func(context.Context) error { return errors.New("connection refused") })
	})

	rec := get(s, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestStream_ThroughRouter(t *testing.T) {
	payloads := make(chan feed.Payload, 1)
	svc := relay.NewService(relay.Config{}, relay.Deps{
		NewFeed: func(req relay.Request) (feed.Feed, error) {
			return staticFeed(payloads), nil
		},
	})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	s := New(historyConfig(), Deps{Catalog: catalog.Static{}, Relay: svc})
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	payloads <- feed.Payload{Kind: feed.KindTrade, Data: []byte(`{"e":"trade","s":"BTCUSDT","p":"2","T":5}`)}

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"symbol\":\"BTCUSDT\",\"price\":2,\"ts\":5}\n", line)
}

type staticFeed chan feed.Payload

func (f staticFeed) Start(context.Context) (<-chan feed.Payload, error) { return f, nil }
func (f staticFeed) Stop()                                              {}

func TestUpgradeOnly_PassesUpgrades(t *testing.T) {
	called := false
	r := gin.New()
	r.GET("/ws", upgradeOnly(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
}
