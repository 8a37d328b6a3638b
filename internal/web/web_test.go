package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/engine"
	"github.com/pierrick-fonquerne/trading-bot/internal/history"
	"github.com/pierrick-fonquerne/trading-bot/internal/tradelog"
)

type fakeBot struct {
	status     engine.Status
	resetErr   error
	balance    float64
	balanceErr error
	started    bool
	stopped    bool
}

func (f *fakeBot) Status() engine.Status { return f.status }
func (f *fakeBot) History() []history.Sample {
	return []history.Sample{{Ts: time.Now(), Price: 42}}
}
func (f *fakeBot) Trades(n int) []tradelog.Record { return nil }
func (f *fakeBot) Balance(ctx context.Context, asset string) (float64, error) {
	return f.balance, f.balanceErr
}
func (f *fakeBot) Start(ctx context.Context)      { f.started = true }
func (f *fakeBot) Stop()                          { f.stopped = true }
func (f *fakeBot) Reset() error                   { return f.resetErr }

func TestStatusEndpoint(t *testing.T) {
	bot := &fakeBot{status: engine.Status{Running: true, Symbol: "BTCUSDT", DroppedSignals: 3}}
	srv := httptest.NewServer(Handler(context.Background(), bot, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status returned error: %v", err)
	}
	defer resp.Body.Close()

	var status engine.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Symbol != "BTCUSDT" || status.DroppedSignals != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestControlEndpoints(t *testing.T) {
	bot := &fakeBot{}
	srv := httptest.NewServer(Handler(context.Background(), bot, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start returned error: %v", err)
	}
	resp.Body.Close()
	if !bot.started {
		t.Fatalf("start not forwarded to engine")
	}

	resp, err = http.Post(srv.URL+"/stop", "", nil)
	if err != nil {
		t.Fatalf("POST /stop returned error: %v", err)
	}
	resp.Body.Close()
	if !bot.stopped {
		t.Fatalf("stop not forwarded to engine")
	}

	resp, err = http.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("GET /start returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /start, got %d", resp.StatusCode)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	bot := &fakeBot{balance: 12.5}
	srv := httptest.NewServer(Handler(context.Background(), bot, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/balance?asset=USDT")
	if err != nil {
		t.Fatalf("GET /balance returned error: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Asset string  `json:"asset"`
		Free  float64 `json:"free"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if body.Asset != "USDT" || body.Free != 12.5 {
		t.Fatalf("unexpected balance body: %+v", body)
	}

	resp, err = http.Get(srv.URL + "/balance")
	if err != nil {
		t.Fatalf("GET /balance returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without asset, got %d", resp.StatusCode)
	}
}

func TestResetConflictWhileRunning(t *testing.T) {
	bot := &fakeBot{resetErr: engine.ErrRunning}
	srv := httptest.NewServer(Handler(context.Background(), bot, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/reset", "", nil)
	if err != nil {
		t.Fatalf("POST /reset returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while running, got %d", resp.StatusCode)
	}
}
