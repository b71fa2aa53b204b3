package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type RedisClient struct {
	mock.Mock
}

func (m *RedisClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *RedisClient) Del(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *RedisClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *RedisClient) Close() error {
	return m.Called().Error(0)
}
