package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
)

// MockUploadSessionRepo is a mock implementation of port.UploadSessionRepository.
type MockUploadSessionRepo struct {
	mock.Mock
}

func (m *MockUploadSessionRepo) Create(ctx context.Context, session *domain.UploadSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockUploadSessionRepo) GetByKey(ctx context.Context, key string) (*domain.UploadSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadSession), args.Error(1)
}

func (m *MockUploadSessionRepo) CommitWithFiles(ctx context.Context, key string, files []domain.DataFile) ([]domain.DataFile, error) {
	args := m.Called(ctx, key, files)
	if fn, ok := args.Get(0).(func(context.Context, string, []domain.DataFile) []domain.DataFile); ok {
		return fn(ctx, key, files), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DataFile), args.Error(1)
}

func (m *MockUploadSessionRepo) ClaimExpired(ctx context.Context, before time.Time, limit int) ([]domain.UploadSession, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UploadSession), args.Error(1)
}

func (m *MockUploadSessionRepo) UpdateStatus(ctx context.Context, key string, status domain.UploadSessionStatus) error {
	args := m.Called(ctx, key, status)
	return args.Error(0)
}
