package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hydromet/internal/config"
	"hydromet/internal/domain"
	"hydromet/internal/observability"
	"hydromet/internal/port"
	"hydromet/internal/service"
	"hydromet/mocks"
)

var testNow = time.Date(2024, 3, 15, 12, 34, 0, 0, time.UTC)

type storageFixture struct {
	sessions *mocks.MockUploadSessionRepo
	storage  *mocks.MockObjectStorage
	events   *mocks.MockEventPublisher
	metrics  *observability.Metrics
	clock    *clockwork.FakeClock
	svc      service.StorageService
}

func newStorageFixture() *storageFixture {
	f := &storageFixture{
		sessions: new(mocks.MockUploadSessionRepo),
		storage:  new(mocks.MockObjectStorage),
		events:   new(mocks.MockEventPublisher),
		clock:    clockwork.NewFakeClockAt(testNow),
	}
	f.metrics, _ = observability.NewMetricsForTesting()
	cfg := &config.StorageConfig{Bucket: "hydromet-data", PresignExpiry: 15 * time.Minute, MaxFileSizeMB: 1}
	f.svc = service.NewStorageService(f.sessions, f.storage, f.events, f.metrics, cfg, f.clock, zerolog.Nop())
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func stormSession(key string, status domain.UploadSessionStatus) *domain.UploadSession {
	return &domain.UploadSession{
		Key:         key,
		Kind:        domain.UploadKindStorms,
		FileName:    "run.nc",
		ContentType: "application/x-netcdf",
		Context:     json.RawMessage(`{"storm_id":7,"issued_date":"2024031512","data_type":"HRES"}`),
		Status:      status,
		ExpiresAt:   testNow.Add(10 * time.Minute),
	}
}

func TestStorageService_PresignStorm(t *testing.T) {
	f := newStorageFixture()

	var put port.PresignPutInput
	f.storage.On("PresignPut", mock.Anything, mock.AnythingOfType("port.PresignPutInput")).
		Run(func(args mock.Arguments) { put = args.Get(1).(port.PresignPutInput) }).
		Return("https://blob/x", nil)
	var session *domain.UploadSession
	f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*domain.UploadSession")).
		Run(func(args mock.Arguments) { session = args.Get(1).(*domain.UploadSession) }).
		Return(nil)

	result, err := f.svc.PresignStorm(context.Background(), service.PresignStormInput{
		PresignInput: service.PresignInput{FileName: "run.nc"},
		StormID:      7,
		IssuedDate:   "2024031512",
		DataType:     "hres",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://blob/x", result.UploadURL)
	assert.True(t, strings.HasPrefix(result.Key, "storms/7/hres/2024031512/"), result.Key)
	assert.True(t, strings.HasSuffix(result.Key, "/run.nc"), result.Key)
	assert.Equal(t, testNow.Add(15*time.Minute), result.ExpiresAt)

	assert.Equal(t, "hydromet-data", put.Bucket)
	assert.Equal(t, "application/octet-stream", put.ContentType)
	assert.Equal(t, 15*time.Minute, put.Expiry)

	require.NotNil(t, session)
	assert.Equal(t, result.Key, session.Key)
	assert.Equal(t, domain.UploadSessionPresigned, session.Status)
	uc, err := session.DecodeContext()
	require.NoError(t, err)
	assert.Equal(t, int64(7), *uc.StormID)
	assert.Equal(t, "HRES", uc.DataType)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PresignTotal.WithLabelValues("storms")))
}

func TestStorageService_PresignStorm_FreshKeys(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("PresignPut", mock.Anything, mock.Anything).Return("https://blob/x", nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

	input := service.PresignStormInput{
		PresignInput: service.PresignInput{FileName: "run.nc"},
		StormID:      7, IssuedDate: "2024031512", DataType: "NWP",
	}
	a, err := f.svc.PresignStorm(context.Background(), input)
	require.NoError(t, err)
	b, err := f.svc.PresignStorm(context.Background(), input)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}

func TestStorageService_PresignStorm_Validation(t *testing.T) {
	base := service.PresignStormInput{
		PresignInput: service.PresignInput{FileName: "run.nc"},
		StormID:      7, IssuedDate: "2024031512", DataType: "HRES",
	}
	tests := []struct {
		name   string
		mutate func(*service.PresignStormInput)
		want   error
	}{
		{"bad data type", func(in *service.PresignStormInput) { in.DataType = "RADAR" }, domain.ErrUnsupportedDataType},
		{"missing storm", func(in *service.PresignStormInput) { in.StormID = 0 }, domain.ErrInvalidContext},
		{"bad issued date", func(in *service.PresignStormInput) { in.IssuedDate = "2024-03-15" }, domain.ErrInvalidContext},
		{"empty filename", func(in *service.PresignStormInput) { in.FileName = "  " }, domain.ErrInvalidContext},
		{"wrong extension", func(in *service.PresignStormInput) { in.FileName = "run.csv" }, domain.ErrUnsupportedFileType},
		{"too large", func(in *service.PresignStormInput) { in.Size = 2 << 20 }, domain.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStorageFixture()
			in := base
			tt.mutate(&in)
			_, err := f.svc.PresignStorm(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			f.storage.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything)
		})
	}
}

func TestStorageService_PresignReservoir(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("PresignPut", mock.Anything, mock.Anything).Return("https://blob/r", nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.PresignReservoir(context.Background(), service.PresignReservoirInput{
		PresignInput: service.PresignInput{FileName: "ops.csv", ContentType: "text/csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024031512", result.IssuedDate)
	assert.True(t, strings.HasPrefix(result.Key, "reservoirs/operations/2024031512/"), result.Key)
}

func TestStorageService_PresignGeneric(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("PresignPut", mock.Anything, mock.Anything).Return("https://blob/g", nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.PresignGeneric(context.Background(), service.PresignGenericInput{
		PresignInput: service.PresignInput{FileName: "../../etc/forecast.csv"},
		Path:         "/precipitation/s2s/3/2024031512/",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "precipitation/s2s/3/2024031512/"), result.Key)
	assert.True(t, strings.HasSuffix(result.Key, "/forecast.csv"), result.Key)

	defaulted, err := f.svc.PresignGeneric(context.Background(), service.PresignGenericInput{
		PresignInput: service.PresignInput{FileName: "a.bin"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(defaulted.Key, "uploads/"), defaulted.Key)

	_, err = f.svc.PresignGeneric(context.Background(), service.PresignGenericInput{
		PresignInput: service.PresignInput{FileName: "a.bin"},
		Path:         "uploads/../secrets",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidContext)
}

func TestStorageService_PresignStorageFailure(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("PresignPut", mock.Anything, mock.Anything).Return("", errors.New("credentials expired"))

	_, err := f.svc.PresignGeneric(context.Background(), service.PresignGenericInput{
		PresignInput: service.PresignInput{FileName: "a.bin"},
	})
	assert.ErrorContains(t, err, "credentials expired")
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStorageService_CommitStorm(t *testing.T) {
	f := newStorageFixture()
	key := "storms/7/hres/2024031512/u1/run.nc"
	f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
	f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Key: key, Size: 4096}, nil)

	var recorded []domain.DataFile
	f.sessions.On("CommitWithFiles", mock.Anything, key, mock.AnythingOfType("[]domain.DataFile")).
		Run(func(args mock.Arguments) { recorded = args.Get(2).([]domain.DataFile) }).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			out := append([]domain.DataFile(nil), files...)
			out[0].ID = 42
			return out
		}, nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.MatchedBy(func(e domain.UploadCommitted) bool {
		return e.Key == key && e.RecordID == 42 && e.Kind == domain.FileKindHRES
	})).Return(nil)

	result, err := f.svc.CommitStorm(context.Background(), service.CommitStormInput{
		Key: key, StormID: 7, IssuedDate: "2024031512", DataType: "HRES",
	})
	require.NoError(t, err)

	assert.Equal(t, key, result.Key)
	assert.Equal(t, domain.CommitMeta{Type: domain.FileKindHRES, ID: 42}, result.Meta)
	require.Len(t, result.Items, 1)

	require.Len(t, recorded, 1)
	assert.Equal(t, domain.FileKindHRES, recorded[0].Kind)
	assert.Equal(t, "HRES", recorded[0].DataType)
	assert.Equal(t, int64(4096), recorded[0].FileSize)
	assert.Equal(t, "application/x-netcdf", recorded[0].ContentType)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *recorded[0].IssuedTime)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CommitTotal.WithLabelValues("hres", "success")))
	f.events.AssertExpectations(t)
}

func TestStorageService_CommitStorm_Rejections(t *testing.T) {
	key := "storms/7/hres/2024031512/u1/run.nc"
	tests := []struct {
		name  string
		setup func(f *storageFixture)
		input service.CommitStormInput
		want  error
	}{
		{
			name: "unknown key",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(nil, domain.ErrUploadSessionNotFound)
			},
			want: domain.ErrUploadSessionNotFound,
		},
		{
			name: "reservoir key",
			setup: func(f *storageFixture) {
				s := stormSession(key, domain.UploadSessionPresigned)
				s.Kind = domain.UploadKindReservoirs
				f.sessions.On("GetByKey", mock.Anything, key).Return(s, nil)
			},
			want: domain.ErrKindMismatch,
		},
		{
			name: "already committed",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionCommitted), nil)
			},
			want: domain.ErrAlreadyCommitted,
		},
		{
			name: "claimed by sweeper",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionSweeping), nil)
			},
			want: domain.ErrUploadBusy,
		},
		{
			name: "expired and never uploaded",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
				f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(nil, domain.ErrObjectMissing)
				f.clock.Advance(time.Hour)
			},
			want: domain.ErrUploadExpired,
		},
		{
			name: "object missing",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
				f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(nil, domain.ErrObjectMissing)
			},
			want: domain.ErrObjectMissing,
		},
		{
			name: "context mismatch",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
				f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 1}, nil)
			},
			input: service.CommitStormInput{StormID: 8},
			want:  domain.ErrInvalidContext,
		},
		{
			name: "lost race",
			setup: func(f *storageFixture) {
				f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
				f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 1}, nil)
				f.sessions.On("CommitWithFiles", mock.Anything, key, mock.Anything).Return(nil, domain.ErrAlreadyCommitted)
			},
			want: domain.ErrAlreadyCommitted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStorageFixture()
			tt.setup(f)
			in := tt.input
			in.Key = key
			_, err := f.svc.CommitStorm(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			f.events.AssertNotCalled(t, "PublishUploadCommitted", mock.Anything, mock.Anything)
		})
	}
}

func TestStorageService_CommitReservoir(t *testing.T) {
	f := newStorageFixture()
	key := "reservoirs/operations/2024031512/u1/ops.csv"
	f.sessions.On("GetByKey", mock.Anything, key).Return(&domain.UploadSession{
		Key: key, Kind: domain.UploadKindReservoirs, FileName: "ops.csv", ContentType: "text/csv",
		Context: json.RawMessage(`{"issued_date":"2024031512"}`), Status: domain.UploadSessionOrphaned,
		ExpiresAt: testNow.Add(-time.Hour),
	}, nil)
	f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 10, ContentType: "text/csv"}, nil)
	f.sessions.On("CommitWithFiles", mock.Anything, key, mock.Anything).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			out := append([]domain.DataFile(nil), files...)
			out[0].ID = 9
			return out
		}, nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	result, err := f.svc.CommitReservoir(context.Background(), service.CommitReservoirInput{
		Key: key, ReservoirID: int64Ptr(3),
	})
	require.NoError(t, err, "publish failures must not fail the commit")
	assert.Equal(t, domain.CommitMeta{Type: domain.FileKindReservoirOperation, ID: 9}, result.Meta)
	assert.Equal(t, int64(3), *result.Items[0].ReservoirID)
	assert.Equal(t, testNow, *result.Items[0].AddedTime)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventPublishFails))
}

func TestStorageService_CommitReservoir_KeepsAddedTime(t *testing.T) {
	f := newStorageFixture()
	key := "reservoirs/operations/2024031512/u2/ops.csv"
	f.sessions.On("GetByKey", mock.Anything, key).Return(&domain.UploadSession{
		Key: key, Kind: domain.UploadKindReservoirs, FileName: "ops.csv",
		Status: domain.UploadSessionPresigned, ExpiresAt: testNow.Add(time.Hour),
	}, nil)
	f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 10}, nil)
	f.sessions.On("CommitWithFiles", mock.Anything, key, mock.Anything).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			return append([]domain.DataFile(nil), files...)
		}, nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.Anything).Return(nil)

	added := time.Date(2024, 3, 14, 6, 0, 0, 0, time.UTC)
	result, err := f.svc.CommitReservoir(context.Background(), service.CommitReservoirInput{
		Key: key, ReservoirID: int64Ptr(3), AddedTime: &added,
	})
	require.NoError(t, err)

	assert.Equal(t, added, *result.Items[0].AddedTime)
	assert.Equal(t, testNow, *result.Items[0].UpdatedTime)
}

func TestStorageService_LegacyUpload(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.HasPrefix(in.Key, "precipitation/s2s/5/2024031500/") && in.ContentType == "text/csv"
	})).Return(&port.UploadOutput{}, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CommitWithFiles", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			out := append([]domain.DataFile(nil), files...)
			out[0].ID = 77
			return out
		}, nil)
	f.storage.On("GetPresignedURL", mock.Anything, "hydromet-data", mock.Anything, int64(900)).
		Return("https://blob/get", nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.MatchedBy(func(e domain.UploadCommitted) bool {
		return e.Legacy
	})).Return(nil)

	added := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.LegacyUpload(context.Background(), service.LegacyUploadInput{
		File:        strings.NewReader("a,b\n1,2\n"),
		FileName:    "forecast.csv",
		ContentType: "text/csv",
		Size:        8,
		DataType:    "S2S",
		S2SID:       int64Ptr(5),
		AddedTime:   &added,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://blob/get", result.URL)
	assert.Equal(t, domain.CommitMeta{Type: domain.FileKindS2S, ID: 77}, result.Meta)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LegacyUploads))
}

func TestStorageService_LegacyUpload_StorageFailure(t *testing.T) {
	f := newStorageFixture()
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := f.svc.LegacyUpload(context.Background(), service.LegacyUploadInput{
		File: strings.NewReader("x"), FileName: "run.nc", Size: 1,
		DataType: "NWP", StormID: int64Ptr(7), IssuedDate: "2024031512",
	})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
