package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
	"github.com/pierrick-fonquerne/trading-bot/internal/market"
)

const (
	binanceStreamURL = "wss://stream.binance.com:9443/stream"
	// maxTickAge bounds how stale a cached stream price may be before
	// GetPrice refuses to serve it.
	maxTickAge = 30 * time.Second
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// BinanceStream serves prices from the public Binance trade websocket while
// delegating balance and order calls to the REST adapter. Run must be started
// for GetPrice to produce data.
type BinanceStream struct {
	rest    *Binance
	symbols []string
	log     zerolog.Logger

	mu   sync.RWMutex
	last map[string]market.Tick
}

// NewBinanceStream wraps a REST adapter with a websocket price cache for the
// given symbols.
func NewBinanceStream(rest *Binance, symbols []string, log zerolog.Logger) *BinanceStream {
	cleaned := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym = strings.TrimSpace(sym); sym != "" {
			cleaned = append(cleaned, strings.ToUpper(sym))
		}
	}
	return &BinanceStream{
		rest:    rest,
		symbols: cleaned,
		log:     log,
		last:    make(map[string]market.Tick),
	}
}

// GetPrice returns the most recent streamed trade price for the symbol.
func (s *BinanceStream) GetPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	tick, ok := s.last[strings.ToUpper(symbol)]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoMarketData, symbol)
	}
	if age := time.Since(tick.Ts); age > maxTickAge {
		return 0, fmt.Errorf("%w: %s price is %s old", ErrNoMarketData, symbol, age.Round(time.Second))
	}
	return tick.Price, nil
}

// GetBalance delegates to the REST adapter.
func (s *BinanceStream) GetBalance(ctx context.Context, asset string) (float64, error) {
	return s.rest.GetBalance(ctx, asset)
}

// PlaceOrder delegates to the REST adapter.
func (s *BinanceStream) PlaceOrder(ctx context.Context, order execution.Order) (execution.Confirmation, error) {
	return s.rest.PlaceOrder(ctx, order)
}

// Run consumes the trade stream until the context is canceled, reconnecting
// with capped backoff on failure.
func (s *BinanceStream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("%w: stream requires at least one symbol", ErrAdapter)
	}

	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	base := s.rest.settings.StreamURL
	if base == "" {
		base = binanceStreamURL
	}
	url := fmt.Sprintf("%s?streams=%s", base, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("binance stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *BinanceStream) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", s.symbols).Msg("connected binance trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		tick, err := parseBinanceTrade(message)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		s.store(tick)
	}
}

func (s *BinanceStream) store(tick market.Tick) {
	s.mu.Lock()
	s.last[tick.Symbol] = tick
	s.mu.Unlock()
}

func parseBinanceTrade(message []byte) (market.Tick, error) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return market.Tick{}, err
	}
	price, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("invalid price %q: %v", env.Data.Price, err)
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		return market.Tick{}, fmt.Errorf("invalid quantity %q: %v", env.Data.Quantity, err)
	}
	return market.Tick{
		Symbol: parseStreamSymbol(env.Stream),
		Price:  price,
		Size:   qty,
		Ts:     time.UnixMilli(env.Data.TradeTime),
	}, nil
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
