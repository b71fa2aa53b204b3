package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
)

type EventApplier interface {
	ApplyGatewayEvent(ctx context.Context, event models.GatewayEvent) (*models.StatusChange, error)
}

type WebhookProcessor struct {
	ledger    EventApplier
	serverKey string
}

func NewWebhookProcessor(ledger EventApplier, serverKey string) *WebhookProcessor {
	return &WebhookProcessor{ledger: ledger, serverKey: serverKey}
}

// Process authenticates a notification body and hands it to the ledger. Only
// ErrMalformedNotification and ErrInvalidSignature are returned; ledger
// failures are logged and acknowledged so the gateway does not retry forever.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte) error {
	logger := observability.WithContext(ctx, "method", "WebhookProcessor.Process")

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		logger.Warn("rejected gateway notification", "reason", "malformed", "error", err)
		observability.GatewayNotifications.WithLabelValues("rejected", "malformed").Inc()
		return fmt.Errorf("%w: %v", pkgerrors.ErrMalformedNotification, err)
	}
	if err := n.Validate(); err != nil {
		logger.Warn("rejected gateway notification", "reason", "malformed", "error", err)
		observability.GatewayNotifications.WithLabelValues("rejected", "malformed").Inc()
		return err
	}
	if err := n.VerifySignature(p.serverKey); err != nil {
		logger.Warn("rejected gateway notification", "reason", "signature", "order_id", n.OrderID)
		observability.GatewayNotifications.WithLabelValues("rejected", "signature").Inc()
		return err
	}

	change, err := p.ledger.ApplyGatewayEvent(ctx, n.Event())
	if err != nil {
		logger.Error("failed to apply gateway notification",
			"order_id", n.OrderID,
			"transaction_status", n.TransactionStatus,
			"error", err)
		observability.GatewayNotifications.WithLabelValues("failed", "ledger").Inc()
		return nil
	}

	outcome := "ignored"
	if change != nil && change.Applied {
		outcome = "applied"
	}
	observability.GatewayNotifications.WithLabelValues(outcome, "").Inc()
	logger.Info("gateway notification processed",
		"order_id", n.OrderID,
		"transaction_status", n.TransactionStatus,
		"outcome", outcome)
	return nil
}
