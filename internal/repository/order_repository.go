package repository

import (
	"context"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
)

type StatusUpdate struct {
	OrderID              string
	Status               models.OrderStatus
	GatewayTransactionID string
	PaymentMethod        string
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// GetByRef matches either the internal id or the gateway order reference.
	GetByRef(ctx context.Context, ref string) (*models.Order, error)
	// LockByRef is GetByRef with a row lock; it must run inside Transactor.WithinTx.
	LockByRef(ctx context.Context, ref string) (*models.Order, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.Order, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// Transactor runs fn in a storage transaction. Repositories called with the
// ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
