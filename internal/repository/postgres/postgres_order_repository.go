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

const orderTracer = "order-repository"

const orderSelectColumns = `o.id, o.account_id, o.product_id, o.product_name, COALESCE(p.image_url, ''),
	o.amount, o.status, o.payment_method, o.gateway_order_id, o.gateway_transaction_id,
	o.session_token, o.customer_details, o.created_at, o.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, orderTracer, "CreateOrder")
	defer func() { done(err) }()

	if order == nil {
		err = pkgerrors.ErrNilOrder
		slog.Error("failed to create order", "method", "Create", "error", err)
		return err
	}
	if order.ID == "" || !order.Amount.IsPositive() {
		err = fmt.Errorf("%w: order id and positive amount are required", pkgerrors.ErrInvalidInput)
		return err
	}
	if !order.Status.Valid() {
		err = pkgerrors.ErrInvalidOrderStatus
		return err
	}
	span.SetAttributes(attribute.String("order_id", order.ID))

	var customer any
	if len(order.CustomerDetails) > 0 {
		customer = string(order.CustomerDetails)
	}

	query := `
		INSERT INTO orders (id, account_id, product_id, product_name, amount, status,
			payment_method, gateway_order_id, session_token, customer_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`
	err = executor(ctx, r.db).QueryRowContext(ctx, query,
		order.ID,
		nullInt64(order.AccountID),
		nullInt64(order.ProductID),
		order.ProductName,
		order.Amount,
		string(order.Status),
		order.PaymentMethod,
		order.GatewayOrderID,
		order.SessionToken,
		customer,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		slog.Error("failed to create order", "method", "Create", "order_id", order.ID, "error", err)
		err = fmt.Errorf("failed to create order: %w", err)
		return err
	}

	slog.Info("order created", "method", "Create", "order_id", order.ID, "amount", order.Amount.String())
	return nil
}

func (r *PostgresOrderRepository) GetByRef(ctx context.Context, ref string) (_ *models.Order, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, orderTracer, "GetOrderByRef")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("order_ref", ref))

	query := `SELECT ` + orderSelectColumns + `
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		WHERE o.id = $1 OR o.gateway_order_id = $1`
	order, err := scanOrder(executor(ctx, r.db).QueryRowContext(ctx, query, ref))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrOrderNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get order", "method", "GetByRef", "order_ref", ref, "error", err)
		err = fmt.Errorf("failed to get order: %w", err)
		return nil, err
	}
	return order, nil
}

func (r *PostgresOrderRepository) LockByRef(ctx context.Context, ref string) (_ *models.Order, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, orderTracer, "LockOrderByRef")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("order_ref", ref))

	// FOR UPDATE cannot lock the nullable side of an outer join, so the image
	// column is left empty here.
	query := `
		SELECT o.id, o.account_id, o.product_id, o.product_name, '',
			o.amount, o.status, o.payment_method, o.gateway_order_id, o.gateway_transaction_id,
			o.session_token, o.customer_details, o.created_at, o.updated_at
		FROM orders o
		WHERE o.id = $1 OR o.gateway_order_id = $1
		FOR UPDATE`
	order, err := scanOrder(executor(ctx, r.db).QueryRowContext(ctx, query, ref))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrOrderNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to lock order", "method", "LockByRef", "order_ref", ref, "error", err)
		err = fmt.Errorf("failed to lock order: %w", err)
		return nil, err
	}
	return order, nil
}

// UpdateStatus writes the new status. Empty transaction id or payment method
// keep the stored values.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, update repository.StatusUpdate) (err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, orderTracer, "UpdateOrderStatus")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("order_id", update.OrderID), attribute.String("status", string(update.Status)))

	if !update.Status.Valid() {
		err = pkgerrors.ErrInvalidOrderStatus
		return err
	}

	query := `
		UPDATE orders
		SET status = $1,
			gateway_transaction_id = COALESCE(NULLIF($2, ''), gateway_transaction_id),
			payment_method = COALESCE(NULLIF($3, ''), payment_method),
			updated_at = NOW()
		WHERE id = $4`
	res, err := executor(ctx, r.db).ExecContext(ctx, query,
		string(update.Status),
		update.GatewayTransactionID,
		update.PaymentMethod,
		update.OrderID,
	)
	if err != nil {
		slog.Error("failed to update order status", "method", "UpdateStatus", "order_id", update.OrderID, "error", err)
		err = fmt.Errorf("failed to update order status: %w", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to get rows affected: %w", err)
		return err
	}
	if affected == 0 {
		err = pkgerrors.ErrOrderNotFound
		return err
	}
	return nil
}

func (r *PostgresOrderRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) (_ []models.Order, err error) {
	ctx, span, done := observability.TrackRepositoryCall(ctx, orderTracer, "ListOrdersByAccount")
	defer func() { done(err) }()
	span.SetAttributes(attribute.Int64("account_id", accountID), attribute.Int("limit", limit), attribute.Int("offset", offset))

	query := `SELECT ` + orderSelectColumns + `
		FROM orders o
		LEFT JOIN products p ON p.id = o.product_id
		WHERE o.account_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		slog.Error("failed to list orders", "method", "ListByAccount", "account_id", accountID, "error", err)
		err = fmt.Errorf("failed to list orders: %w", err)
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var order *models.Order
		if order, err = scanOrder(rows); err != nil {
			slog.Error("failed to scan order", "method", "ListByAccount", "error", err)
			err = fmt.Errorf("failed to scan order: %w", err)
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate orders: %w", err)
		return nil, err
	}
	return orders, nil
}

func (r *PostgresOrderRepository) CountByAccount(ctx context.Context, accountID int64) (_ int, err error) {
	ctx, _, done := observability.TrackRepositoryCall(ctx, orderTracer, "CountOrdersByAccount")
	defer func() { done(err) }()

	var total int
	err = executor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE account_id = $1`, accountID).Scan(&total)
	if err != nil {
		slog.Error("failed to count orders", "method", "CountByAccount", "account_id", accountID, "error", err)
		err = fmt.Errorf("failed to count orders: %w", err)
		return 0, err
	}
	return total, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o         models.Order
		accountID sql.NullInt64
		productID sql.NullInt64
		status    string
		customer  []byte
	)
	if err := row.Scan(&o.ID, &accountID, &productID, &o.ProductName, &o.ProductImageURL,
		&o.Amount, &status, &o.PaymentMethod, &o.GatewayOrderID, &o.GatewayTransactionID,
		&o.SessionToken, &customer, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if accountID.Valid {
		o.AccountID = &accountID.Int64
	}
	if productID.Valid {
		o.ProductID = &productID.Int64
	}
	o.Status = models.OrderStatus(status)
	if len(customer) > 0 {
		o.CustomerDetails = customer
	}
	return &o, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
