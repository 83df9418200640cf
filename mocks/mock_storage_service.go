package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
	"hydromet/internal/service"
)

// MockStorageService is a mock implementation of service.StorageService.
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) PresignStorm(ctx context.Context, input service.PresignStormInput) (*domain.PresignResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresignResult), args.Error(1)
}

func (m *MockStorageService) PresignReservoir(ctx context.Context, input service.PresignReservoirInput) (*domain.PresignResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresignResult), args.Error(1)
}

func (m *MockStorageService) PresignGeneric(ctx context.Context, input service.PresignGenericInput) (*domain.PresignResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PresignResult), args.Error(1)
}

func (m *MockStorageService) CommitStorm(ctx context.Context, input service.CommitStormInput) (*domain.CommitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommitResult), args.Error(1)
}

func (m *MockStorageService) CommitReservoir(ctx context.Context, input service.CommitReservoirInput) (*domain.CommitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommitResult), args.Error(1)
}

func (m *MockStorageService) LegacyUpload(ctx context.Context, input service.LegacyUploadInput) (*domain.LegacyUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LegacyUploadResult), args.Error(1)
}
