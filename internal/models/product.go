package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	ImageURL         string          `json:"image_url"`
	Category         string          `json:"category"`
	StockQuantity    int             `json:"stock_quantity"`
	TransactionCount int64           `json:"transaction_count"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
