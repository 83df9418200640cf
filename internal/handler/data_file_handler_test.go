package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hydromet/internal/domain"
	"hydromet/internal/handler"
	"hydromet/internal/service"
	"hydromet/mocks"
)

func newDataFileHandler(kind domain.FileKind) (*handler.DataFileHandler, *mocks.MockDataFileService) {
	mockSvc := new(mocks.MockDataFileService)
	return handler.NewDataFileHandler(mockSvc, kind), mockSvc
}

// --- List ---

func TestDataFileHandler_List_Paginates(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindNWP)
	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f domain.DataFileFilter) bool {
		return f.Kind == domain.FileKindNWP && f.Offset == 20 && f.Limit == 10 &&
			f.StormID != nil && *f.StormID == 7 && f.Search == "gfs" && f.StartDate != nil
	})).Return([]domain.DataFile{{ID: 1}, {ID: 2}}, 25, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet,
		"/api/v1/storms/nwp-data?skip=20&limit=10&storm_id=7&search=gfs&start_date=2024-03-01", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, handler.PagMeta{Total: 25, Page: 3, TotalPages: 3, Skip: 20, Limit: 10}, *resp.Meta)
	mockSvc.AssertExpectations(t)
}

func TestDataFileHandler_List_DefaultsAndEmpty(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindS2S)
	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f domain.DataFileFilter) bool {
		return f.Offset == 0 && f.Limit == 10
	})).Return(nil, 0, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/precipitation/s2s-files?limit=-4", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestDataFileHandler_List_BadFilter(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindReservoirOperation)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/reservoirs/reservoir-operation-files?reservoir_id=abc", nil)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILTER", decodeResponse(t, w).Error.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

// --- Create ---

func TestDataFileHandler_Create_Success(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindS2S)
	mockSvc.On("Create", mock.Anything, domain.FileKindS2S, mock.MatchedBy(func(in service.DataFileInput) bool {
		return in.S2SID != nil && *in.S2SID == 3 && in.FilePath != nil && *in.FilePath == "precipitation/s2s/3/x/f.csv"
	})).Return(&domain.DataFile{ID: 31, Kind: domain.FileKindS2S}, nil)

	body, _ := json.Marshal(map[string]interface{}{"s2s_id": 3, "file_path": "precipitation/s2s/3/x/f.csv"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/precipitation/s2s-files", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDataFileHandler_Create_MissingContext(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindHRES)
	mockSvc.On("Create", mock.Anything, domain.FileKindHRES, mock.Anything).
		Return(nil, errors.Join(domain.ErrInvalidContext, errors.New("storm_id is required")))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/storms/hres-data", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONTEXT", decodeResponse(t, w).Error.Code)
}

// --- Get / Update / Delete ---

func TestDataFileHandler_GetByID(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindBestTrack)
	mockSvc.On("Get", mock.Anything, domain.FileKindBestTrack, int64(4)).
		Return(&service.DataFileWithURL{DataFile: domain.DataFile{ID: 4}, DownloadURL: "https://blob/get"}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/storms/besttrack-files/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://blob/get", decodeResponse(t, w).Data.(map[string]interface{})["download_url"])
}

func TestDataFileHandler_GetByID_InvalidID(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindBestTrack)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/storms/besttrack-files/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestDataFileHandler_Update_NotFound(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindNWP)
	mockSvc.On("Update", mock.Anything, domain.FileKindNWP, int64(9), mock.Anything).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/api/v1/storms/nwp-data/9", bytes.NewReader([]byte(`{"storm_id":2}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "9"}}

	h.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDataFileHandler_Delete(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindNWP)
	mockSvc.On("Delete", mock.Anything, domain.FileKindNWP, int64(9)).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/api/v1/storms/nwp-data/9", nil)
	c.Params = gin.Params{{Key: "id", Value: "9"}}

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

// --- Export ---

func TestDataFileHandler_Export_CSV(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindS2S)
	mockSvc.On("Export", mock.Anything, mock.Anything, domain.ExportCSV, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.WriteString(args.Get(3).(io.Writer), "ID,Kind\n1,s2s\n")
		}).
		Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/precipitation/s2s-files/export", nil)

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="s2s_`)
	assert.Contains(t, w.Body.String(), "1,s2s")
}

func TestDataFileHandler_Export_InvalidFormat(t *testing.T) {
	h, mockSvc := newDataFileHandler(domain.FileKindS2S)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/precipitation/s2s-files/export?format=pdf", nil)

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_EXPORT_FORMAT", decodeResponse(t, w).Error.Code)
	mockSvc.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
