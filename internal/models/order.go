package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusFailed     OrderStatus = "failed"
	StatusCancelled  OrderStatus = "cancelled"
)

const PaymentMethodMidtrans = "midtrans"

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether next is a forward edge of the lifecycle
// graph. Re-applying the current status is not a transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// Order is a checkout transaction. ID doubles as the gateway order reference.
type Order struct {
	ID                   string          `json:"id"`
	AccountID            *int64          `json:"user_id"`
	ProductID            *int64          `json:"product_id"`
	ProductName          string          `json:"product_name"`
	ProductImageURL      string          `json:"image_url,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Status               OrderStatus     `json:"status"`
	PaymentMethod        string          `json:"payment_method"`
	GatewayOrderID       string          `json:"gateway_order_id"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	SessionToken         string          `json:"-"`
	CustomerDetails      json.RawMessage `json:"customer_details,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (o *Order) OwnedBy(accountID int64) bool {
	return o.AccountID != nil && *o.AccountID == accountID
}

// GatewayEvent is a payment notification already translated out of the
// provider's wire format.
type GatewayEvent struct {
	OrderRef      string
	RawStatus     string
	FraudStatus   string
	TransactionID string
	PaymentType   string
}

// StatusChange describes the outcome of applying a gateway event.
type StatusChange struct {
	OrderID      string
	From         OrderStatus
	To           OrderStatus
	Applied      bool
	SaleRecorded bool
}
