package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hydromet/internal/upload"
)

// MockTransferer is a mock implementation of upload.Transferer.
type MockTransferer struct {
	mock.Mock
}

func (m *MockTransferer) Put(ctx context.Context, target *upload.Target, file *upload.File, onProgress upload.ProgressFunc) error {
	args := m.Called(ctx, target, file, onProgress)
	return args.Error(0)
}

// ReportProgress returns a Run hook that feeds the given native percents to
// the pipeline's progress callback, scaled to a 100-byte file.
func ReportProgress(percents ...int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		onProgress := args.Get(3).(upload.ProgressFunc)
		for _, p := range percents {
			onProgress(p, 100)
		}
	}
}
