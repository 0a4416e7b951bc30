package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

const defaultRequestTimeout = 10 * time.Second

// RestBrokerConfig holds connection settings for the broker's HTTP API.
type RestBrokerConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// AccessToken is the session token issued by the broker's login flow.
	// An expired token surfaces as an auth-class error on any call.
	AccessToken string         `yaml:"access_token" validate:"required"`
	Timeout     types.Duration `yaml:"timeout"`
}

// RestBroker implements Broker against a JSON-over-HTTP broker API.
type RestBroker struct {
	client *resty.Client
	log    *logger.Logger
}

// NewRestBroker creates a RestBroker from the given config.
func NewRestBroker(config RestBrokerConfig, log *logger.Logger) *RestBroker {
	timeout := config.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetAuthToken(config.AccessToken).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &RestBroker{
		client: client,
		log:    log,
	}
}

// candleResponse is the wire shape of the history endpoint: rows of
// [epochSeconds, open, high, low, close, volume].
type candleResponse struct {
	Status  string      `json:"s"`
	Message string      `json:"message"`
	Candles [][]float64 `json:"candles"`
}

type instrumentResponse struct {
	Status      string             `json:"s"`
	Message     string             `json:"message"`
	Instruments []instrumentRecord `json:"instruments"`
}

type instrumentRecord struct {
	Token      string  `json:"token"`
	Symbol     string  `json:"symbol"`
	Exchange   string  `json:"exchange"`
	Strike     float64 `json:"strike"`
	OptionType string  `json:"option_type"`
	Expiry     int64   `json:"expiry"`
	LotSize    int     `json:"lot_size"`
	TickSize   float64 `json:"tick_size"`
}

type quoteResponse struct {
	Status  string        `json:"s"`
	Message string        `json:"message"`
	Quotes  []quoteRecord `json:"d"`
}

type quoteRecord struct {
	Symbol       string  `json:"n"`
	LastPrice    float64 `json:"lp"`
	AveragePrice float64 `json:"avg_price"`
	Timestamp    int64   `json:"t"`
}

type orderResponse struct {
	Status  string `json:"s"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

type orderStatusResponse struct {
	Status        string  `json:"s"`
	Message       string  `json:"message"`
	OrderID       string  `json:"order_id"`
	OrderStatus   string  `json:"order_status"`
	StatusMessage string  `json:"status_message"`
	AveragePrice  float64 `json:"avg_price"`
	UpdatedAt     int64   `json:"updated_at"`
}

// GetHistoricalBars implements Broker.
func (b *RestBroker) GetHistoricalBars(ctx context.Context, token string, interval types.Interval, from, to time.Time) ([]types.Bar, error) {
	var out candleResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"token":      token,
			"resolution": string(interval),
			"from":       strconv.FormatInt(from.Unix(), 10),
			"to":         strconv.FormatInt(to.Unix(), 10),
		}).
		SetResult(&out).
		Get("/data/history")
	if err := b.classify(resp, err, "fetch historical bars"); err != nil {
		return nil, err
	}

	if out.Status != "ok" {
		return nil, errors.Newf(errors.ErrCodeHistoricalDataFailed, "history request failed: %s", out.Message)
	}

	bars := make([]types.Bar, 0, len(out.Candles))

	for _, row := range out.Candles {
		if len(row) < 6 {
			return nil, errors.Newf(errors.ErrCodeResponseMalformed, "candle row has %d fields, want 6", len(row))
		}

		bars = append(bars, types.Bar{
			Time:   time.Unix(int64(row[0]), 0),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}

	return bars, nil
}

// GetInstruments implements Broker.
func (b *RestBroker) GetInstruments(ctx context.Context, exchange string) ([]types.Instrument, error) {
	var out instrumentResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("exchange", exchange).
		SetResult(&out).
		Get("/data/instruments")
	if err := b.classify(resp, err, "fetch instruments"); err != nil {
		return nil, err
	}

	if out.Status != "ok" {
		return nil, errors.Newf(errors.ErrCodeRequestFailed, "instrument request failed: %s", out.Message)
	}

	instruments := make([]types.Instrument, 0, len(out.Instruments))

	for _, rec := range out.Instruments {
		instruments = append(instruments, types.Instrument{
			Token:      rec.Token,
			Symbol:     rec.Symbol,
			Exchange:   rec.Exchange,
			Strike:     rec.Strike,
			OptionType: types.OptionType(rec.OptionType),
			Expiry:     time.Unix(rec.Expiry, 0),
			LotSize:    rec.LotSize,
			TickSize:   rec.TickSize,
		})
	}

	return instruments, nil
}

// GetQuote implements Broker.
func (b *RestBroker) GetQuote(ctx context.Context, symbols []string) (map[string]types.Quote, error) {
	var out quoteResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		SetResult(&out).
		Get("/data/quotes")
	if err := b.classify(resp, err, "fetch quotes"); err != nil {
		return nil, err
	}

	if out.Status != "ok" {
		return nil, errors.Newf(errors.ErrCodeQuoteUnavailable, "quote request failed: %s", out.Message)
	}

	quotes := make(map[string]types.Quote, len(out.Quotes))

	for _, rec := range out.Quotes {
		quotes[rec.Symbol] = types.Quote{
			Symbol:       rec.Symbol,
			LastPrice:    rec.LastPrice,
			AveragePrice: rec.AveragePrice,
			Time:         time.Unix(rec.Timestamp, 0),
		}
	}

	return quotes, nil
}

// PlaceOrder implements Broker.
func (b *RestBroker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderReceipt, error) {
	if err := req.Validate(); err != nil {
		return types.OrderReceipt{}, err
	}

	var out orderResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/orders/sync")
	if err := b.classify(resp, err, "place order"); err != nil {
		return types.OrderReceipt{}, err
	}

	if out.Status != "ok" || out.OrderID == "" {
		return types.OrderReceipt{}, errors.Newf(errors.ErrCodeOrderRejected, "order rejected: %s", out.Message)
	}

	return types.OrderReceipt{OrderID: out.OrderID}, nil
}

// GetOrderStatus implements Broker.
func (b *RestBroker) GetOrderStatus(ctx context.Context, orderID string) (types.OrderState, error) {
	var out orderStatusResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("id", orderID).
		SetResult(&out).
		Get("/orders")
	if err := b.classify(resp, err, "fetch order status"); err != nil {
		return types.OrderState{}, err
	}

	if out.Status != "ok" {
		return types.OrderState{}, errors.Newf(errors.ErrCodeOrderNotFound, "order status failed: %s", out.Message)
	}

	return types.OrderState{
		OrderID:       out.OrderID,
		Status:        types.OrderStatus(out.OrderStatus),
		StatusMessage: out.StatusMessage,
		AveragePrice:  out.AveragePrice,
		UpdatedAt:     time.Unix(out.UpdatedAt, 0),
	}, nil
}

// classify maps transport and HTTP failures onto the engine's error
// taxonomy: 401/403 are auth (fatal), 429 and 5xx are transient, other
// non-2xx are rejections that must never be retried.
func (b *RestBroker) classify(resp *resty.Response, err error, action string) error {
	if err != nil {
		return errors.Wrapf(errors.ErrCodeRequestFailed, err, "%s: request error", action)
	}

	if resp == nil {
		return errors.Newf(errors.ErrCodeRequestFailed, "%s: empty response", action)
	}

	code := resp.StatusCode()

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Newf(errors.ErrCodeSessionExpired, "%s: broker session expired (HTTP %d)", action, code)
	case code == http.StatusTooManyRequests:
		return errors.Newf(errors.ErrCodeRateLimited, "%s: rate limited", action)
	case code >= http.StatusInternalServerError:
		return errors.Newf(errors.ErrCodeBrokerUnavailable, "%s: broker unavailable (HTTP %d)", action, code)
	case code >= http.StatusBadRequest:
		// Client-side rejections are never retried.
		return errors.Newf(errors.ErrCodeRequestRejected, "%s: %s", action, fmt.Sprintf("HTTP %d", code))
	}

	return nil
}
