package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/kafka"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	EventType      string             `json:"event_type"`
	OrderID        string             `json:"order_id"`
	AccountID      *int64             `json:"account_id,omitempty"`
	ProductID      *int64             `json:"product_id,omitempty"`
	Amount         string             `json:"amount"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     string             `json:"occurred_at"`
}

// publishOrderEvent is best effort: the order is already committed, so a
// broker failure is only logged.
func publishOrderEvent(ctx context.Context, producer kafka.KafkaProducer, eventType string, order *models.Order, previous models.OrderStatus) {
	event := OrderEvent{
		EventType:      eventType,
		OrderID:        order.ID,
		AccountID:      order.AccountID,
		ProductID:      order.ProductID,
		Amount:         order.Amount.StringFixed(2),
		Status:         order.Status,
		PreviousStatus: previous,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal order event", "order_id", order.ID, "error", err)
		return
	}
	if err := producer.Send(ctx, order.ID, eventBytes); err != nil {
		slog.Error("failed to publish order event", "event_type", eventType, "order_id", order.ID, "error", err)
	}
}
