package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hydromet/internal/domain"
	"hydromet/internal/service"
)

// StorageHandler handles the presign, commit and legacy upload endpoints.
type StorageHandler struct {
	storageService service.StorageService
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(storageService service.StorageService) *StorageHandler {
	return &StorageHandler{storageService: storageService}
}

// PresignStorms handles POST /api/v1/storage/presign/storms
// @Summary Presign a storm data upload
// @Description Issue a single-use PUT URL and key for an NWP, HRES or BESTTRACK file
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param filename formData string true "File name"
// @Param content_type formData string false "MIME type" default(application/octet-stream)
// @Param size formData int false "File size in bytes"
// @Param storm_id formData int true "Storm ID"
// @Param issued_date formData string true "Issued hour (YYYYMMDDHH, UTC)"
// @Param data_type formData string true "NWP, HRES or BESTTRACK"
// @Success 200 {object} Response{data=domain.PresignResult} "Upload target"
// @Failure 400 {object} ErrorResponseBody "Invalid context"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Router /storage/presign/storms [post]
func (h *StorageHandler) PresignStorms(c *gin.Context) {
	stormID, err := strconv.ParseInt(c.PostForm("storm_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", "storm_id must be an integer")
		return
	}
	file, ok := presignFileFields(c)
	if !ok {
		return
	}

	result, err := h.storageService.PresignStorm(c.Request.Context(), service.PresignStormInput{
		PresignInput: file,
		StormID:      stormID,
		IssuedDate:   c.PostForm("issued_date"),
		DataType:     c.PostForm("data_type"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// PresignReservoirs handles POST /api/v1/storage/presign/reservoirs
// @Summary Presign a reservoir operation file upload
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param filename formData string true "File name"
// @Param content_type formData string false "MIME type"
// @Param size formData int false "File size in bytes"
// @Param reservoir_id formData int false "Reservoir ID"
// @Success 200 {object} Response{data=domain.PresignResult} "Upload target with issuedDate"
// @Failure 400 {object} ErrorResponseBody "Invalid context"
// @Router /storage/presign/reservoirs [post]
func (h *StorageHandler) PresignReservoirs(c *gin.Context) {
	file, ok := presignFileFields(c)
	if !ok {
		return
	}
	reservoirID, err := formInt64(c, "reservoir_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", err.Error())
		return
	}

	result, err := h.storageService.PresignReservoir(c.Request.Context(), service.PresignReservoirInput{
		PresignInput: file,
		ReservoirID:  reservoirID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// PresignGeneric handles POST /api/v1/storage/presign
// @Summary Presign an upload under an arbitrary path
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param filename formData string true "File name"
// @Param content_type formData string false "MIME type"
// @Param size formData int false "File size in bytes"
// @Param path formData string false "Key prefix" default(uploads)
// @Param storm_id formData int false "Storm ID"
// @Param reservoir_id formData int false "Reservoir ID"
// @Param issued_date formData string false "Issued hour (YYYYMMDDHH)"
// @Param data_type formData string false "Data type tag"
// @Success 200 {object} Response{data=domain.PresignResult} "Upload target"
// @Failure 400 {object} ErrorResponseBody "Invalid path"
// @Router /storage/presign [post]
func (h *StorageHandler) PresignGeneric(c *gin.Context) {
	file, ok := presignFileFields(c)
	if !ok {
		return
	}
	stormID, err := formInt64(c, "storm_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", err.Error())
		return
	}
	reservoirID, err := formInt64(c, "reservoir_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", err.Error())
		return
	}

	result, err := h.storageService.PresignGeneric(c.Request.Context(), service.PresignGenericInput{
		PresignInput: file,
		Path:         c.PostForm("path"),
		StormID:      stormID,
		ReservoirID:  reservoirID,
		IssuedDate:   c.PostForm("issued_date"),
		DataType:     c.PostForm("data_type"),
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// CommitStorms handles POST /api/v1/storage/commit/storms
// @Summary Commit an uploaded storm data file
// @Description Record a file that was PUT to a presigned storm target
// @Tags storage
// @Accept json
// @Produce json
// @Param body body CommitStormRequest true "Key and storm context"
// @Success 201 {object} Response{data=domain.CommitResult} "Recorded"
// @Failure 400 {object} ErrorResponseBody "Context mismatch"
// @Failure 404 {object} ErrorResponseBody "Unknown key"
// @Failure 409 {object} ErrorResponseBody "Already committed or object missing"
// @Failure 410 {object} ErrorResponseBody "Upload target expired"
// @Router /storage/commit/storms [post]
func (h *StorageHandler) CommitStorms(c *gin.Context) {
	var input service.CommitStormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.storageService.CommitStorm(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// CommitReservoirs handles POST /api/v1/storage/commit/reservoirs
// @Summary Commit an uploaded reservoir operation file
// @Tags storage
// @Accept json
// @Produce json
// @Param body body CommitReservoirRequest true "Key and optional reservoir context"
// @Success 201 {object} Response{data=domain.CommitResult} "Recorded"
// @Failure 404 {object} ErrorResponseBody "Unknown key"
// @Failure 409 {object} ErrorResponseBody "Already committed or object missing"
// @Router /storage/commit/reservoirs [post]
func (h *StorageHandler) CommitReservoirs(c *gin.Context) {
	var input service.CommitReservoirInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.storageService.CommitReservoir(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// Upload handles POST /api/v1/storage/upload
// @Summary Upload a file in one request (deprecated)
// @Description Streams the file through the API and records it. Prefer presign and commit.
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param data_type formData string true "NWP, HRES, BESTTRACK, RESERVOIR or S2S"
// @Param path formData string false "Key prefix override"
// @Param storm_id formData int false "Storm ID"
// @Param issued_date formData string false "Issued hour (YYYYMMDDHH)"
// @Param reservoir_id formData int false "Reservoir ID"
// @Param from_time formData string false "Operation window start"
// @Param to_time formData string false "Operation window end"
// @Param s2s_id formData int false "S2S forecast ID"
// @Param added_time formData string false "Added time (reservoir or S2S)"
// @Success 201 {object} Response{data=domain.LegacyUploadResult} "Uploaded and recorded"
// @Failure 400 {object} ErrorResponseBody "Missing file or invalid context"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Deprecated
// @Router /storage/upload [post]
func (h *StorageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	input := service.LegacyUploadInput{
		File:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		DataType:    c.PostForm("data_type"),
		Path:        c.PostForm("path"),
		IssuedDate:  c.PostForm("issued_date"),
	}
	var parseErr error
	setID := func(dst **int64, field string) {
		if parseErr == nil {
			*dst, parseErr = formInt64(c, field)
		}
	}
	setTime := func(dst **time.Time, field string) {
		if parseErr == nil {
			*dst, parseErr = formTime(c, field)
		}
	}
	setID(&input.StormID, "storm_id")
	setID(&input.ReservoirID, "reservoir_id")
	setID(&input.S2SID, "s2s_id")
	setTime(&input.FromTime, "from_time")
	setTime(&input.ToTime, "to_time")
	setTime(&input.AddedTime, "added_time")
	if parseErr != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", parseErr.Error())
		return
	}

	result, err := h.storageService.LegacyUpload(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Deprecation", "true")
	RespondCreated(c, result)
}

// presignFileFields reads the file metadata shared by every presign form.
// On failure the error response has already been written.
func presignFileFields(c *gin.Context) (service.PresignInput, bool) {
	input := service.PresignInput{
		FileName:    c.PostForm("filename"),
		ContentType: c.PostForm("content_type"),
	}
	if raw := strings.TrimSpace(c.PostForm("size")); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || size < 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_CONTEXT", "size must be a non-negative integer")
			return input, false
		}
		input.Size = size
	}
	return input, true
}

func formInt64(c *gin.Context, field string) (*int64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", field)
	}
	return &v, nil
}

func formTime(c *gin.Context, field string) (*time.Time, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &t, nil
}
