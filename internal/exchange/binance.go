package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
)

const (
	binanceBaseURL        = "https://api.binance.com"
	binanceTestnetBaseURL = "https://testnet.binance.vision"
	binanceRecvWindowMs   = 5000
)

// Binance is a thin wrapper around the Binance Spot REST API. Orders placed in
// test mode go through the validation-only order/test endpoint.
type Binance struct {
	settings Settings
	baseURL  string
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time
}

// NewBinance builds a REST adapter from connectivity settings. Credentials may
// be empty; only signed calls require them.
func NewBinance(settings Settings, log zerolog.Logger) *Binance {
	baseURL := strings.TrimSuffix(settings.BaseURL, "/")
	if baseURL == "" {
		baseURL = binanceBaseURL
		if settings.Testnet {
			baseURL = binanceTestnetBaseURL
		}
	}
	return &Binance{
		settings: settings,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
		now:      time.Now,
	}
}

// GetPrice returns the latest ticker price for the symbol.
func (b *Binance) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := b.do(ctx, http.MethodGet, "/api/v3/ticker/price", params, false)
	if err != nil {
		return 0, err
	}
	price := gjson.GetBytes(body, "price").Float()
	if price <= 0 {
		return 0, fmt.Errorf("%w: unexpected ticker response for %s: %s", ErrAdapter, symbol, truncate(body))
	}
	return price, nil
}

// GetBalance returns the free balance for the asset. Unknown assets report zero.
func (b *Binance) GetBalance(ctx context.Context, asset string) (float64, error) {
	if b.settings.APIKey == "" || b.settings.APISecret == "" {
		return 0, ErrCredentials
	}
	body, err := b.do(ctx, http.MethodGet, "/api/v3/account", url.Values{}, true)
	if err != nil {
		return 0, err
	}
	var free float64
	gjson.GetBytes(body, "balances").ForEach(func(_, balance gjson.Result) bool {
		if balance.Get("asset").String() == asset {
			free = balance.Get("free").Float()
			return false
		}
		return true
	})
	return free, nil
}

// PlaceOrder submits a MARKET order. In test mode the venue validates the
// request without executing it and the confirmation is synthesized locally.
func (b *Binance) PlaceOrder(ctx context.Context, order execution.Order) (execution.Confirmation, error) {
	if b.settings.APIKey == "" || b.settings.APISecret == "" {
		return execution.Confirmation{}, ErrCredentials
	}
	if order.Qty <= 0 {
		return execution.Confirmation{}, fmt.Errorf("%w: quantity must be positive", ErrAdapter)
	}

	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")
	// Binance rejects float formatting artifacts; send an exact decimal string.
	params.Set("quantity", decimal.NewFromFloat(order.Qty).String())

	path := "/api/v3/order"
	if order.Mode == execution.ModeTest {
		path = "/api/v3/order/test"
	}
	body, err := b.do(ctx, http.MethodPost, path, params, true)
	if err != nil {
		return execution.Confirmation{}, err
	}

	if order.Mode == execution.ModeTest {
		return execution.Confirmation{Status: "TEST", Ts: b.now().UTC()}, nil
	}

	conf := execution.Confirmation{
		OrderID: gjson.GetBytes(body, "orderId").String(),
		Status:  gjson.GetBytes(body, "status").String(),
		Ts:      b.now().UTC(),
	}
	if conf.Status == "" {
		conf.Status = "FILLED"
	}
	if ms := gjson.GetBytes(body, "transactTime").Int(); ms > 0 {
		conf.Ts = time.UnixMilli(ms).UTC()
	}
	return conf, nil
}

func (b *Binance) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if signed {
		params.Set("timestamp", strconv.FormatInt(b.now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.Itoa(binanceRecvWindowMs))
		params.Set("signature", b.sign(params.Encode()))
	}

	endpoint := b.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapter, err)
	}
	if b.settings.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.settings.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrAdapter, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrAdapter, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrAdapter, method, path, resp.StatusCode, truncate(body))
	}
	return body, nil
}

// sign computes the HMAC-SHA256 request signature Binance expects on signed
// endpoints. The signature covers the encoded query string, signature excluded.
func (b *Binance) sign(encoded string) string {
	mac := hmac.New(sha256.New, []byte(b.settings.APISecret))
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}

func truncate(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
