package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	stderrors "errors"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/gateway"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/kafka"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/observability"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxProductNameLength = 255
)

// MaxOrderAmount is the largest whole-rupiah amount the orders.amount column
// (NUMERIC(12,2)) can hold.
var MaxOrderAmount = decimal.NewFromInt(9_999_999_999)

type CreateOrderInput struct {
	AccountID       int64
	ProductID       int64
	ProductName     string
	Amount          decimal.Decimal
	CustomerDetails json.RawMessage
}

type Checkout struct {
	OrderID      string
	SessionToken string
	RedirectURL  string
}

type OrderPage struct {
	Orders     []models.Order
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Checkout, error)
	ApplyGatewayEvent(ctx context.Context, event models.GatewayEvent) (*models.StatusChange, error)
	GetOrder(ctx context.Context, ref string) (*models.Order, error)
	ListOrdersForAccount(ctx context.Context, accountID int64, page, limit int) (*OrderPage, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	catalog     CatalogService
	tx          repository.Transactor
	gateway     gateway.SessionCreator
	producer    kafka.KafkaProducer
	orderPrefix string
	now         func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	accountRepo repository.AccountRepository,
	catalog CatalogService,
	tx repository.Transactor,
	sessions gateway.SessionCreator,
	producer kafka.KafkaProducer,
	orderPrefix string,
) *orderService {
	return &orderService{
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		catalog:     catalog,
		tx:          tx,
		gateway:     sessions,
		producer:    producer,
		orderPrefix: orderPrefix,
		now:         time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*Checkout, error) {
	ctx, span := otel.Tracer("order-service").Start(ctx, "CreateOrder")
	defer span.End()

	in.ProductName = strings.TrimSpace(in.ProductName)
	if in.ProductID <= 0 || in.ProductName == "" {
		span.SetStatus(codes.Error, "missing product")
		return nil, fmt.Errorf("%w: product_id and product_name are required", pkgerrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.ProductName) > maxProductNameLength {
		span.SetStatus(codes.Error, "product name too long")
		return nil, fmt.Errorf("%w: product_name must be at most %d characters", pkgerrors.ErrInvalidInput, maxProductNameLength)
	}
	// Midtrans settles IDR in whole units only.
	if !in.Amount.IsPositive() || !in.Amount.IsInteger() || in.Amount.GreaterThan(MaxOrderAmount) {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, fmt.Errorf("%w: price must be a whole amount between 1 and %s", pkgerrors.ErrInvalidInput, MaxOrderAmount)
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: unknown product", pkgerrors.ErrInvalidInput)
		}
		span.RecordError(err)
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product is not available", pkgerrors.ErrInvalidInput)
	}

	customer := in.CustomerDetails
	if len(customer) == 0 || string(customer) == "null" {
		if customer, err = s.defaultCustomer(ctx, in.AccountID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	orderID := fmt.Sprintf("%s-%d-%d", s.orderPrefix, s.now().UnixMilli(), in.AccountID)
	span.SetAttributes(attribute.String("order_id", orderID))

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		OrderID:     orderID,
		GrossAmount: in.Amount,
		Items: []gateway.Item{{
			ID:       strconv.FormatInt(in.ProductID, 10),
			Name:     in.ProductName,
			Price:    in.Amount,
			Quantity: 1,
		}},
		Customer: customer,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment session failed")
		slog.Error("failed to create payment session", "method", "CreateOrder", "order_id", orderID, "error", err)
		if stderrors.Is(err, pkgerrors.ErrGateway) || stderrors.Is(err, pkgerrors.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrGateway, err)
	}

	accountID := in.AccountID
	productID := in.ProductID
	order := &models.Order{
		ID:              orderID,
		AccountID:       &accountID,
		ProductID:       &productID,
		ProductName:     in.ProductName,
		ProductImageURL: product.ImageURL,
		Amount:          in.Amount,
		Status:          models.StatusPending,
		PaymentMethod:   models.PaymentMethodMidtrans,
		GatewayOrderID:  orderID,
		SessionToken:    session.Token,
		CustomerDetails: customer,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order persistence failed")
		// The Snap session exists but has no local order; a later notification
		// for it is acknowledged as unknown.
		slog.Error("orphaned payment session", "method", "CreateOrder", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: failed to save order", pkgerrors.ErrInternal)
	}

	observability.OrdersCreated.Inc()
	publishOrderEvent(ctx, s.producer, EventOrderCreated, order, "")

	slog.Info("order created", "method", "CreateOrder", "order_id", orderID, "account_id", in.AccountID)
	return &Checkout{OrderID: orderID, SessionToken: session.Token, RedirectURL: session.RedirectURL}, nil
}

func (s *orderService) defaultCustomer(ctx context.Context, accountID int64) (json.RawMessage, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			return nil, pkgerrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: failed to load account", pkgerrors.ErrInternal)
	}
	firstName := account.FullName
	if fields := strings.Fields(account.FullName); len(fields) > 0 {
		firstName = fields[0]
	}
	return json.Marshal(map[string]string{
		"first_name": firstName,
		"email":      account.Email,
		"phone":      account.PhoneNumber,
	})
}

// ApplyGatewayEvent moves an order along the lifecycle under a row lock.
// Unknown references, unmapped statuses and non-forward moves are reported
// as not applied rather than as errors.
func (s *orderService) ApplyGatewayEvent(ctx context.Context, event models.GatewayEvent) (*models.StatusChange, error) {
	ctx, span := otel.Tracer("order-service").Start(ctx, "ApplyGatewayEvent")
	defer span.End()
	span.SetAttributes(attribute.String("order_ref", event.OrderRef), attribute.String("raw_status", event.RawStatus))

	change := &models.StatusChange{OrderID: event.OrderRef}
	target, ok := gateway.Normalize(event.RawStatus, event.FraudStatus)
	if !ok {
		slog.Warn("unmapped gateway status", "method", "ApplyGatewayEvent",
			"order_id", event.OrderRef,
			"transaction_status", event.RawStatus,
			"fraud_status", event.FraudStatus)
		return change, nil
	}
	change.To = target

	var updated *models.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.LockByRef(ctx, event.OrderRef)
		if err != nil {
			return err
		}
		change.OrderID = order.ID
		change.From = order.Status

		if !order.Status.CanTransitionTo(target) {
			return nil
		}

		if err := s.orderRepo.UpdateStatus(ctx, repository.StatusUpdate{
			OrderID:              order.ID,
			Status:               target,
			GatewayTransactionID: event.TransactionID,
			PaymentMethod:        event.PaymentType,
		}); err != nil {
			return err
		}

		if target == models.StatusCompleted && order.ProductID != nil {
			if err := s.catalog.RecordSale(ctx, *order.ProductID); err != nil {
				if !stderrors.Is(err, pkgerrors.ErrProductNotFound) {
					return err
				}
				slog.Warn("completed order references a missing product", "method", "ApplyGatewayEvent",
					"order_id", order.ID, "product_id", *order.ProductID)
			} else {
				change.SaleRecorded = true
			}
		}

		change.Applied = true
		order.Status = target
		updated = order
		return nil
	})
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrOrderNotFound) {
			slog.Warn("notification for unknown order", "method", "ApplyGatewayEvent", "order_id", event.OrderRef)
			return change, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to apply gateway event")
		slog.Error("failed to apply gateway event", "method", "ApplyGatewayEvent", "order_id", event.OrderRef, "error", err)
		return nil, fmt.Errorf("%w: failed to apply gateway event", pkgerrors.ErrInternal)
	}

	if !change.Applied {
		if target == models.StatusCompleted && change.From.IsTerminal() && change.From != models.StatusCompleted {
			// The customer paid for an order that can no longer complete.
			observability.PaymentsOnClosedOrders.WithLabelValues(string(change.From)).Inc()
			slog.Error("payment received for closed order", "method", "ApplyGatewayEvent",
				"order_id", change.OrderID,
				"status", change.From,
				"transaction_status", event.RawStatus,
				"transaction_id", event.TransactionID)
			return change, nil
		}
		slog.Info("gateway event not applied", "method", "ApplyGatewayEvent",
			"order_id", change.OrderID, "from", change.From, "to", target)
		return change, nil
	}

	observability.OrderTransitions.WithLabelValues(string(change.From), string(change.To)).Inc()
	if change.SaleRecorded {
		observability.SalesRecorded.Inc()
	}
	publishOrderEvent(ctx, s.producer, EventOrderStatusChanged, updated, change.From)

	slog.Info("order status changed", "method", "ApplyGatewayEvent",
		"order_id", change.OrderID, "from", change.From, "to", change.To)
	return change, nil
}

func (s *orderService) GetOrder(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: order reference is required", pkgerrors.ErrInvalidInput)
	}
	order, err := s.orderRepo.GetByRef(ctx, ref)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to load order", pkgerrors.ErrInternal)
	}
	return order, nil
}

func (s *orderService) ListOrdersForAccount(ctx context.Context, accountID int64, page, limit int) (*OrderPage, error) {
	ctx, span := otel.Tracer("order-service").Start(ctx, "ListOrdersForAccount")
	defer span.End()

	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: page and limit must be positive", pkgerrors.ErrInvalidInput)
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := s.orderRepo.CountByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to count orders", pkgerrors.ErrInternal)
	}

	orders, err := s.orderRepo.ListByAccount(ctx, accountID, limit, (page-1)*limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to list orders", pkgerrors.ErrInternal)
	}

	return &OrderPage{
		Orders:     orders,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}
