package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
)

// Notification is the HTTP notification body Midtrans posts on every
// transaction status change.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.OrderID) == "" || strings.TrimSpace(n.TransactionStatus) == "" {
		return fmt.Errorf("%w: order_id and transaction_status are required", pkgerrors.ErrMalformedNotification)
	}
	return nil
}

// Signature computes hex(SHA512(order_id + status_code + gross_amount + serverKey)).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (n *Notification) VerifySignature(serverKey string) error {
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(n.SignatureKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return pkgerrors.ErrInvalidSignature
	}
	return nil
}

func (n *Notification) Event() models.GatewayEvent {
	return models.GatewayEvent{
		OrderRef:      n.OrderID,
		RawStatus:     n.TransactionStatus,
		FraudStatus:   n.FraudStatus,
		TransactionID: n.TransactionID,
		PaymentType:   n.PaymentType,
	}
}

// Normalize maps a Midtrans transaction status and fraud verdict onto the
// order lifecycle. ok is false for statuses that must not change the order,
// including a capture with no recognised fraud verdict.
func Normalize(rawStatus, fraudStatus string) (models.OrderStatus, bool) {
	switch rawStatus {
	case "capture":
		switch fraudStatus {
		case "challenge":
			return models.StatusPending, true
		case "accept":
			return models.StatusCompleted, true
		}
		return "", false
	case "settlement":
		return models.StatusCompleted, true
	case "cancel", "deny", "expire":
		return models.StatusFailed, true
	case "pending":
		return models.StatusPending, true
	}
	return "", false
}
