package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
	"hydromet/internal/service"
)

// MockDataFileService is a mock implementation of service.DataFileService.
type MockDataFileService struct {
	mock.Mock
}

func (m *MockDataFileService) List(ctx context.Context, filter domain.DataFileFilter) ([]domain.DataFile, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.DataFile), args.Int(1), args.Error(2)
}

func (m *MockDataFileService) Create(ctx context.Context, kind domain.FileKind, input service.DataFileInput) (*domain.DataFile, error) {
	args := m.Called(ctx, kind, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataFile), args.Error(1)
}

func (m *MockDataFileService) Get(ctx context.Context, kind domain.FileKind, id int64) (*service.DataFileWithURL, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DataFileWithURL), args.Error(1)
}

func (m *MockDataFileService) Update(ctx context.Context, kind domain.FileKind, id int64, input service.DataFileInput) (*domain.DataFile, error) {
	args := m.Called(ctx, kind, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataFile), args.Error(1)
}

func (m *MockDataFileService) Delete(ctx context.Context, kind domain.FileKind, id int64) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockDataFileService) Export(ctx context.Context, filter domain.DataFileFilter, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, filter, format, w)
	return args.Error(0)
}
