package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hydromet/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	files   port.DataFileRepository
	storage port.ObjectStorage
	bucket  string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(files port.DataFileRepository, storage port.ObjectStorage, bucket string) *HealthHandler {
	return &HealthHandler{files: files, storage: storage, bucket: bucket}
}

// Liveness handles GET /healthz
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness probe
// @Description Checks the database and the storage bucket
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.files.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
		return
	}
	if err := h.storage.Ping(c.Request.Context(), h.bucket); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "storage not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
