// Package web exposes the status and control surface consumed by dashboards.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/engine"
	"github.com/pierrick-fonquerne/trading-bot/internal/history"
	"github.com/pierrick-fonquerne/trading-bot/internal/tradelog"
)

// Bot is the slice of the trading engine the web layer may touch. It only
// ever sees snapshots, never live engine state.
type Bot interface {
	Status() engine.Status
	History() []history.Sample
	Trades(n int) []tradelog.Record
	Balance(ctx context.Context, asset string) (float64, error)
	Start(ctx context.Context)
	Stop()
	Reset() error
}

// Handler builds the HTTP mux serving status, history, trades, and the
// start/stop/reset controls. Control requests take effect at tick boundaries.
func Handler(ctx context.Context, bot Bot, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, bot.Status())
	})

	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, bot.History())
	})

	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid n", http.StatusBadRequest)
				return
			}
			n = parsed
		}
		writeJSON(w, bot.Trades(n))
	})

	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		asset := r.URL.Query().Get("asset")
		if asset == "" {
			http.Error(w, "asset is required", http.StatusBadRequest)
			return
		}
		free, err := bot.Balance(r.Context(), asset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"asset": asset, "free": free})
	})

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		bot.Start(ctx)
		log.Info().Msg("start requested via web")
		writeJSON(w, bot.Status())
	})

	mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		bot.Stop()
		log.Info().Msg("stop requested via web")
		writeJSON(w, bot.Status())
	})

	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := bot.Reset(); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, engine.ErrRunning) {
				status = http.StatusConflict
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, bot.Status())
	})

	return mux
}

// Serve starts the status server on addr.
func Serve(ctx context.Context, addr string, bot Bot, log zerolog.Logger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: Handler(ctx, bot, log)}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
