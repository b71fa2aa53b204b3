package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const maxProductLimit = 100

type CatalogService interface {
	ListProducts(ctx context.Context, category string, limit int) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	RecordSale(ctx context.Context, productID int64) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	redisClient redis.RedisClient
	cacheTTL    time.Duration
}

func NewCatalogService(productRepo repository.ProductRepository, redisClient redis.RedisClient, cacheTTL time.Duration) *catalogService {
	return &catalogService{
		productRepo: productRepo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// ListProducts returns active products by popularity. limit <= 0 means no cap;
// larger values are clamped to maxProductLimit.
func (s *catalogService) ListProducts(ctx context.Context, category string, limit int) ([]models.Product, error) {
	ctx, span := otel.Tracer("catalog-service").Start(ctx, "ListProducts")
	defer span.End()

	category = strings.TrimSpace(category)
	if limit < 0 {
		limit = 0
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}

	cacheKey := redis.CatalogKey(category, limit)
	if s.cacheTTL > 0 {
		cached, err := s.redisClient.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var products []models.Product
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				return products, nil
			}
			slog.Warn("discarding unreadable catalog cache entry", "method", "ListProducts", "key", cacheKey)
		case !stderrors.Is(err, redis.ErrKeyNotFound):
			slog.Warn("catalog cache unavailable", "method", "ListProducts", "error", err)
		}
	}

	products, err := s.productRepo.List(ctx, repository.ProductFilter{Category: category, Limit: limit})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list products")
		return nil, fmt.Errorf("%w: failed to list products", pkgerrors.ErrInternal)
	}

	if s.cacheTTL > 0 {
		if data, err := json.Marshal(products); err == nil {
			if err := s.redisClient.Set(ctx, cacheKey, string(data), s.cacheTTL); err != nil {
				slog.Warn("failed to cache catalog", "method", "ListProducts", "error", err)
			}
		}
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", pkgerrors.ErrInvalidInput)
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to load product", pkgerrors.ErrInternal)
	}
	return product, nil
}

// RecordSale joins the caller's transaction when ctx carries one.
func (s *catalogService) RecordSale(ctx context.Context, productID int64) error {
	return s.productRepo.RecordSale(ctx, productID)
}
