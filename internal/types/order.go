package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

const (
	OrderReasonEntrySignal      string = "entry_signal"
	OrderReasonStopLoss         string = "stop_loss"
	OrderReasonTrailingStop     string = "trailing_stop"
	OrderReasonProfitTarget     string = "profit_target"
	OrderReasonReferenceReclaim string = "reference_reclaim"
	OrderReasonOscillatorCross  string = "oscillator_cross"
	OrderReasonSessionEnd       string = "session_end"
)

// OrderRequest is a fully specified request handed to the broker.
type OrderRequest struct {
	// ClientID is a caller-generated id used to correlate retries; it is not
	// the broker order id.
	ClientID    string    `yaml:"client_id" json:"client_id" csv:"client_id" validate:"required,uuid"`
	Exchange    string    `yaml:"exchange" json:"exchange" csv:"exchange" validate:"required"`
	Symbol      string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side        OrderSide `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType   OrderType `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET LIMIT"`
	Quantity    int       `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	ProductType string    `yaml:"product_type" json:"product_type" csv:"product_type" validate:"required"`
	// Price is required for LIMIT orders and ignored for MARKET orders.
	Price float64 `yaml:"price" json:"price" csv:"price" validate:"gte=0"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	return nil
}

// OrderReceipt is the broker's acknowledgement of a placed order.
type OrderReceipt struct {
	OrderID string `json:"order_id"`
}

// OrderState is the broker-reported status of a placed order.
type OrderState struct {
	OrderID       string      `json:"order_id"`
	Status        OrderStatus `json:"status"`
	StatusMessage string      `json:"status_message"`
	AveragePrice  float64     `json:"average_price"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
