package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendOrphanReport(ctx context.Context, objects []domain.OrphanedObject) error {
	args := m.Called(ctx, objects)
	return args.Error(0)
}
