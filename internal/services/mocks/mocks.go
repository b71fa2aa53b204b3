// Package mocks holds testify mocks for the service interfaces.
package mocks

import (
	"context"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	service "github.com/DebiyaQugan28/vallblox-gaming-store/internal/services"
	"github.com/stretchr/testify/mock"
)

type AccountService struct {
	mock.Mock
}

func (m *AccountService) Register(ctx context.Context, in service.RegisterInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	args := m.Called(ctx, email, password)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *AccountService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	args := m.Called(ctx, email, password)
	account, _ := args.Get(0).(*models.Account)
	return account, args.String(1), args.Error(2)
}

func (m *AccountService) Logout(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *AccountService) IssueResetToken(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

type CatalogService struct {
	mock.Mock
}

func (m *CatalogService) ListProducts(ctx context.Context, category string, limit int) ([]models.Product, error) {
	args := m.Called(ctx, category, limit)
	products, _ := args.Get(0).([]models.Product)
	return products, args.Error(1)
}

func (m *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *CatalogService) RecordSale(ctx context.Context, productID int64) error {
	return m.Called(ctx, productID).Error(0)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*service.Checkout, error) {
	args := m.Called(ctx, in)
	checkout, _ := args.Get(0).(*service.Checkout)
	return checkout, args.Error(1)
}

func (m *OrderService) ApplyGatewayEvent(ctx context.Context, event models.GatewayEvent) (*models.StatusChange, error) {
	args := m.Called(ctx, event)
	change, _ := args.Get(0).(*models.StatusChange)
	return change, args.Error(1)
}

func (m *OrderService) GetOrder(ctx context.Context, ref string) (*models.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderService) ListOrdersForAccount(ctx context.Context, accountID int64, page, limit int) (*service.OrderPage, error) {
	args := m.Called(ctx, accountID, page, limit)
	result, _ := args.Get(0).(*service.OrderPage)
	return result, args.Error(1)
}
