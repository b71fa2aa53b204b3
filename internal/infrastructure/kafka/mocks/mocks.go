package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type KafkaProducer struct {
	mock.Mock
}

func (m *KafkaProducer) Send(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *KafkaProducer) Close() error {
	return m.Called().Error(0)
}
