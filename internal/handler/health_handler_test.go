package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hydromet/internal/handler"
	"hydromet/mocks"
)

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		storageErr error
		want       int
	}{
		{"ready", nil, nil, http.StatusOK},
		{"database down", errors.New("refused"), nil, http.StatusServiceUnavailable},
		{"bucket missing", nil, errors.New("no bucket"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := new(mocks.MockDataFileRepo)
			storage := new(mocks.MockObjectStorage)
			files.On("Ping", mock.Anything).Return(tt.dbErr)
			storage.On("Ping", mock.Anything, "hydromet-data").Return(tt.storageErr)
			h := handler.NewHealthHandler(files, storage, "hydromet-data")

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", nil)

			h.Readiness(c)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := handler.NewHealthHandler(nil, nil, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/healthz", nil)

	h.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
