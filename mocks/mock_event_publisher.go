package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
)

// MockEventPublisher is a mock implementation of port.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishUploadCommitted(ctx context.Context, event domain.UploadCommitted) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
