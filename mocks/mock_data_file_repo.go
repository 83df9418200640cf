package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
)

// MockDataFileRepo is a mock implementation of port.DataFileRepository.
type MockDataFileRepo struct {
	mock.Mock
}

func (m *MockDataFileRepo) Create(ctx context.Context, file *domain.DataFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockDataFileRepo) GetByID(ctx context.Context, kind domain.FileKind, id int64) (*domain.DataFile, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataFile), args.Error(1)
}

func (m *MockDataFileRepo) List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.DataFile), args.Int(1), args.Error(2)
}

func (m *MockDataFileRepo) Update(ctx context.Context, file *domain.DataFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockDataFileRepo) Delete(ctx context.Context, kind domain.FileKind, id int64) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockDataFileRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
