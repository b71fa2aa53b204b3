package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	productTracer        = "product-repository"
	productSelectColumns = `id, name, description, price, image_url, category, stock_quantity, transaction_count, is_active, created_at, updated_at`
)

type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// List returns active products, most purchased first.
func (r *PostgresProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []models.Product, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, productTracer, "ListProducts")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("category", filter.Category), attribute.Int("limit", filter.Limit))

	query := `SELECT ` + productSelectColumns + ` FROM products WHERE is_active = TRUE`
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY transaction_count DESC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list products", "method", "List", "error", err)
		err = fmt.Errorf("failed to list products: %w", err)
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err = rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category,
			&p.StockQuantity, &p.TransactionCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			slog.Error("failed to scan product", "method", "List", "error", err)
			err = fmt.Errorf("failed to scan product: %w", err)
			return nil, err
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate products: %w", err)
		return nil, err
	}
	return products, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (_ *models.Product, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, productTracer, "GetProductByID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("product_id", id))

	query := `SELECT ` + productSelectColumns + ` FROM products WHERE id = $1`
	var p models.Product
	err = executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price,
		&p.ImageURL, &p.Category, &p.StockQuantity, &p.TransactionCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrProductNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get product", "method", "GetByID", "product_id", id, "error", err)
		err = fmt.Errorf("failed to get product: %w", err)
		return nil, err
	}
	return &p, nil
}

// RecordSale bumps the popularity counter and takes one unit of stock. Stock
// is floored at zero rather than failing an already-paid order.
func (r *PostgresProductRepository) RecordSale(ctx context.Context, id int64) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, productTracer, "RecordSale")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("product_id", id))

	query := `
		UPDATE products
		SET transaction_count = transaction_count + 1,
			stock_quantity = GREATEST(stock_quantity - 1, 0),
			updated_at = NOW()
		WHERE id = $1`
	res, err := executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		slog.Error("failed to record sale", "method", "RecordSale", "product_id", id, "error", err)
		err = fmt.Errorf("failed to record sale: %w", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to get rows affected: %w", err)
		return err
	}
	if affected == 0 {
		err = pkgerrors.ErrProductNotFound
		return err
	}

	slog.Info("sale recorded", "method", "RecordSale", "product_id", id)
	return nil
}
