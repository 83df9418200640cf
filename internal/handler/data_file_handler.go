package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hydromet/internal/domain"
	"hydromet/internal/export"
	"hydromet/internal/service"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 1000
)

// DataFileHandler serves one data-file resource. The router mounts one
// instance per file kind.
type DataFileHandler struct {
	dataFileService service.DataFileService
	kind            domain.FileKind
}

// NewDataFileHandler creates a DataFileHandler bound to kind.
func NewDataFileHandler(dataFileService service.DataFileService, kind domain.FileKind) *DataFileHandler {
	return &DataFileHandler{dataFileService: dataFileService, kind: kind}
}

// List handles GET on a data-file resource collection
// @Summary List data files
// @Description Routes: /storms/nwp-data, /storms/hres-data, /storms/besttrack-files,
// @Description /reservoirs/reservoir-operation-files, /precipitation/s2s-files
// @Tags data-files
// @Produce json
// @Param skip query int false "Records to skip" default(0)
// @Param limit query int false "Page size (max 1000)" default(10)
// @Param search query string false "Substring of file name or path"
// @Param storm_id query int false "Storm ID"
// @Param reservoir_id query int false "Reservoir ID"
// @Param s2s_id query int false "S2S forecast ID"
// @Param data_type query string false "Data type tag"
// @Param start_date query string false "Earliest issued/added time"
// @Param end_date query string false "Latest issued/added time"
// @Success 200 {object} Response{data=[]domain.DataFile,meta=PagMeta} "Page of records"
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Router /storms/nwp-data [get]
func (h *DataFileHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if skip < 0 {
		skip = 0
	}
	filter.Offset = skip
	filter.Limit = limit

	files, total, err := h.dataFileService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	if files == nil {
		files = []domain.DataFile{}
	}

	RespondPaginated(c, files, PagMeta{
		Total:      total,
		Page:       skip/limit + 1,
		TotalPages: (total + limit - 1) / limit,
		Skip:       skip,
		Limit:      limit,
	})
}

// Create handles POST on a data-file resource collection
// @Summary Create a data-file record
// @Description Records metadata. A file_path naming a presigned key commits that upload.
// @Tags data-files
// @Accept json
// @Produce json
// @Param body body service.DataFileInput true "Record fields"
// @Success 201 {object} Response{data=domain.DataFile} "Created"
// @Failure 400 {object} ErrorResponseBody "Missing context"
// @Failure 409 {object} ErrorResponseBody "Key already committed or not uploaded"
// @Router /precipitation/s2s-files [post]
func (h *DataFileHandler) Create(c *gin.Context) {
	var input service.DataFileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	file, err := h.dataFileService.Create(c.Request.Context(), h.kind, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, file)
}

// GetByID handles GET on a single data-file record
// @Summary Get a data-file record
// @Description Returns the record and a time-limited download URL
// @Tags data-files
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} Response{data=service.DataFileWithURL} "Record"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Router /storms/nwp-data/{id} [get]
func (h *DataFileHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	file, err := h.dataFileService.Get(c.Request.Context(), h.kind, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, file)
}

// Update handles PUT on a single data-file record
// @Summary Update a data-file record
// @Tags data-files
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param body body service.DataFileInput true "Fields to change"
// @Success 200 {object} Response{data=domain.DataFile} "Updated"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or context"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Router /storms/nwp-data/{id} [put]
func (h *DataFileHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input service.DataFileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	file, err := h.dataFileService.Update(c.Request.Context(), h.kind, id, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, file)
}

// Delete handles DELETE on a single data-file record
// @Summary Delete a data-file record and its blob
// @Tags data-files
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} Response{data=MessageResponse} "Deleted"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Router /storms/nwp-data/{id} [delete]
func (h *DataFileHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.dataFileService.Delete(c.Request.Context(), h.kind, id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "data file deleted"})
}

// Export handles GET on a data-file resource export
// @Summary Export data-file records
// @Description Streams every record matching the filters as CSV or XLSX
// @Tags data-files
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Param search query string false "Substring of file name or path"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Invalid format"
// @Router /storms/nwp-data/export [get]
func (h *DataFileHandler) Export(c *gin.Context) {
	format, err := domain.ParseExportFormat(c.DefaultQuery("format", string(domain.ExportCSV)))
	if err != nil {
		HandleError(c, err)
		return
	}
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	filename := export.BuildFilename(h.kind, format, time.Now().UTC())
	c.Header("Content-Type", export.ContentType(format))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if err := h.dataFileService.Export(c.Request.Context(), filter, format, c.Writer); err != nil {
		// Headers are already sent.
		_ = c.Error(err)
		c.Abort()
		return
	}
}

// parseFilter reads the list filters. On failure the error response has
// already been written.
func (h *DataFileHandler) parseFilter(c *gin.Context) (domain.DataFileFilter, bool) {
	filter := domain.DataFileFilter{
		Kind:     h.kind,
		Search:   strings.TrimSpace(c.Query("search")),
		DataType: strings.TrimSpace(c.Query("data_type")),
	}
	for field, dst := range map[string]**int64{
		"storm_id":     &filter.StormID,
		"reservoir_id": &filter.ReservoirID,
		"s2s_id":       &filter.S2SID,
	} {
		raw := c.Query(field)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", field+" must be an integer")
			return filter, false
		}
		*dst = &v
	}
	for field, dst := range map[string]**time.Time{
		"start_date": &filter.StartDate,
		"end_date":   &filter.EndDate,
	} {
		raw := c.Query(field)
		if raw == "" {
			continue
		}
		t, err := domain.ParseTimestamp(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILTER", field+" is not a recognised timestamp")
			return filter, false
		}
		*dst = &t
	}
	return filter, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid record ID")
		return 0, false
	}
	return id, true
}
