package repository

import (
	"context"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
)

type ProductFilter struct {
	Category string
	Limit    int
}

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	RecordSale(ctx context.Context, id int64) error
}
