// Package mocks holds testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository"
	"github.com/stretchr/testify/mock"
)

type AccountRepository struct {
	mock.Mock
}

func (m *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

type ResetTokenRepository struct {
	mock.Mock
}

func (m *ResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *ResetTokenRepository) Consume(ctx context.Context, token string, now time.Time) (int64, error) {
	args := m.Called(ctx, token, now)
	return args.Get(0).(int64), args.Error(1)
}

type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	products, _ := args.Get(0).([]models.Product)
	return products, args.Error(1)
}

func (m *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *ProductRepository) RecordSale(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepository) GetByRef(ctx context.Context, ref string) (*models.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderRepository) LockByRef(ctx context.Context, ref string) (*models.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderRepository) UpdateStatus(ctx context.Context, update repository.StatusUpdate) error {
	return m.Called(ctx, update).Error(0)
}

func (m *OrderRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.Order, error) {
	args := m.Called(ctx, accountID, limit, offset)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *OrderRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

// Transactor runs fn inline, with no real transaction. Expectations on
// WithinTx are optional; set one only to force an error.
type Transactor struct {
	mock.Mock
	Runs int
}

func (m *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Runs++
	if len(m.ExpectedCalls) > 0 {
		if err := m.Called(ctx).Error(0); err != nil {
			return err
		}
	}
	return fn(ctx)
}
