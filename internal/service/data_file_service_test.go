package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
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

type dataFileFixture struct {
	files    *mocks.MockDataFileRepo
	sessions *mocks.MockUploadSessionRepo
	storage  *mocks.MockObjectStorage
	events   *mocks.MockEventPublisher
	metrics  *observability.Metrics
	svc      service.DataFileService
}

func newDataFileFixture() *dataFileFixture {
	f := &dataFileFixture{
		files:    new(mocks.MockDataFileRepo),
		sessions: new(mocks.MockUploadSessionRepo),
		storage:  new(mocks.MockObjectStorage),
		events:   new(mocks.MockEventPublisher),
	}
	f.metrics, _ = observability.NewMetricsForTesting()
	cfg := &config.StorageConfig{Bucket: "hydromet-data", PresignExpiry: 15 * time.Minute}
	f.svc = service.NewDataFileService(f.files, f.sessions, f.storage, f.events, f.metrics, cfg,
		clockwork.NewFakeClockAt(testNow), zerolog.Nop())
	return f
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestDataFileService_Create_MetadataOnly(t *testing.T) {
	f := newDataFileFixture()
	f.files.On("Create", mock.Anything, mock.AnythingOfType("*domain.DataFile")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.DataFile).ID = 5 }).
		Return(nil)

	created, err := f.svc.Create(context.Background(), domain.FileKindNWP, service.DataFileInput{
		StormID:  int64Ptr(7),
		DataType: strPtr("hres"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, "NWP", created.DataType, "storm data type follows the resource kind")
	f.sessions.AssertNotCalled(t, "GetByKey", mock.Anything, mock.Anything)
}

func TestDataFileService_Create_RequiresContext(t *testing.T) {
	tests := []struct {
		kind domain.FileKind
		in   service.DataFileInput
	}{
		{domain.FileKindBestTrack, service.DataFileInput{}},
		{domain.FileKindBestTrack, service.DataFileInput{StormID: int64Ptr(7)}},
		{domain.FileKindReservoirOperation, service.DataFileInput{StormID: int64Ptr(1)}},
		{domain.FileKindS2S, service.DataFileInput{S2SID: int64Ptr(0)}},
		{domain.FileKindReservoirOperation, service.DataFileInput{
			ReservoirID: int64Ptr(1),
			FromTime:    &testNow,
			ToTime:      func() *time.Time { v := testNow.Add(-time.Hour); return &v }(),
		}},
		{domain.FileKindS2S, service.DataFileInput{S2SID: int64Ptr(1), FilePath: strPtr("a/../../b.csv")}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.kind, i), func(t *testing.T) {
			f := newDataFileFixture()
			_, err := f.svc.Create(context.Background(), tt.kind, tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidContext)
			f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestDataFileService_Create_UnknownKind(t *testing.T) {
	f := newDataFileFixture()
	_, err := f.svc.Create(context.Background(), domain.FileKind("radar"), service.DataFileInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDataFileService_Create_CommitsPresignedKey(t *testing.T) {
	f := newDataFileFixture()
	key := "precipitation/s2s/3/2024031512/u1/forecast.csv"
	f.sessions.On("GetByKey", mock.Anything, key).Return(&domain.UploadSession{
		Key: key, Kind: domain.UploadKindGeneric, FileName: "forecast.csv", ContentType: "text/csv",
		Status: domain.UploadSessionPresigned,
	}, nil)
	f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 2048}, nil)

	var recorded domain.DataFile
	f.sessions.On("CommitWithFiles", mock.Anything, key, mock.Anything).
		Run(func(args mock.Arguments) { recorded = args.Get(2).([]domain.DataFile)[0] }).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			out := append([]domain.DataFile(nil), files...)
			out[0].ID = 31
			return out
		}, nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.MatchedBy(func(e domain.UploadCommitted) bool {
		return e.Key == key && e.Kind == domain.FileKindS2S && *e.S2SID == 3 && !e.Legacy
	})).Return(nil)

	created, err := f.svc.Create(context.Background(), domain.FileKindS2S, service.DataFileInput{
		S2SID:    int64Ptr(3),
		FilePath: strPtr("/" + key),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(31), created.ID)
	assert.Equal(t, key, recorded.FilePath)
	assert.Equal(t, "forecast.csv", recorded.FileName)
	assert.Equal(t, int64(2048), recorded.FileSize)
	assert.Equal(t, testNow, *recorded.AddedTime)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CommitTotal.WithLabelValues("s2s", "success")))
	f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.events.AssertExpectations(t)
}

func TestDataFileService_Create_CommittedKeyRejected(t *testing.T) {
	f := newDataFileFixture()
	key := "uploads/u1/forecast.csv"
	f.sessions.On("GetByKey", mock.Anything, key).Return(&domain.UploadSession{
		Key: key, Kind: domain.UploadKindGeneric, Status: domain.UploadSessionCommitted,
	}, nil)

	_, err := f.svc.Create(context.Background(), domain.FileKindS2S, service.DataFileInput{
		S2SID: int64Ptr(3), FilePath: strPtr(key),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyCommitted)
}

func TestDataFileService_Create_SessionMustMatchResource(t *testing.T) {
	stormKey := "storms/7/hres/2024031512/u1/run.nc"
	tests := []struct {
		name    string
		session *domain.UploadSession
		kind    domain.FileKind
		input   service.DataFileInput
		want    error
	}{
		{
			name:    "storm key claimed as s2s",
			session: stormSession(stormKey, domain.UploadSessionPresigned),
			kind:    domain.FileKindS2S,
			input:   service.DataFileInput{S2SID: int64Ptr(3)},
			want:    domain.ErrKindMismatch,
		},
		{
			name:    "storm key claimed as reservoir operation",
			session: stormSession(stormKey, domain.UploadSessionPresigned),
			kind:    domain.FileKindReservoirOperation,
			input:   service.DataFileInput{ReservoirID: int64Ptr(2)},
			want:    domain.ErrKindMismatch,
		},
		{
			name:    "hres key claimed as nwp",
			session: stormSession(stormKey, domain.UploadSessionPresigned),
			kind:    domain.FileKindNWP,
			input:   service.DataFileInput{StormID: int64Ptr(7)},
			want:    domain.ErrKindMismatch,
		},
		{
			name:    "different storm",
			session: stormSession(stormKey, domain.UploadSessionPresigned),
			kind:    domain.FileKindHRES,
			input:   service.DataFileInput{StormID: int64Ptr(8)},
			want:    domain.ErrInvalidContext,
		},
		{
			name:    "different issued hour",
			session: stormSession(stormKey, domain.UploadSessionPresigned),
			kind:    domain.FileKindHRES,
			input: service.DataFileInput{
				StormID:    int64Ptr(7),
				IssuedTime: timePtr(time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)),
			},
			want: domain.ErrInvalidContext,
		},
		{
			name:    "claimed by sweeper",
			session: stormSession(stormKey, domain.UploadSessionSweeping),
			kind:    domain.FileKindHRES,
			input:   service.DataFileInput{StormID: int64Ptr(7)},
			want:    domain.ErrUploadBusy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDataFileFixture()
			f.sessions.On("GetByKey", mock.Anything, stormKey).Return(tt.session, nil)

			in := tt.input
			in.FilePath = strPtr(stormKey)
			_, err := f.svc.Create(context.Background(), tt.kind, in)

			assert.ErrorIs(t, err, tt.want)
			f.sessions.AssertNotCalled(t, "CommitWithFiles", mock.Anything, mock.Anything, mock.Anything)
			f.storage.AssertNotCalled(t, "Stat", mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CommitTotal.WithLabelValues(string(tt.kind), "error")))
		})
	}
}

func TestDataFileService_Create_StormKeyTakesPresignedIssuedHour(t *testing.T) {
	f := newDataFileFixture()
	key := "storms/7/hres/2024031512/u1/run.nc"
	f.sessions.On("GetByKey", mock.Anything, key).Return(stormSession(key, domain.UploadSessionPresigned), nil)
	f.storage.On("Stat", mock.Anything, "hydromet-data", key).Return(&port.ObjectInfo{Size: 64}, nil)

	var recorded domain.DataFile
	f.sessions.On("CommitWithFiles", mock.Anything, key, mock.Anything).
		Run(func(args mock.Arguments) { recorded = args.Get(2).([]domain.DataFile)[0] }).
		Return(func(_ context.Context, _ string, files []domain.DataFile) []domain.DataFile {
			return append([]domain.DataFile(nil), files...)
		}, nil)
	f.events.On("PublishUploadCommitted", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Create(context.Background(), domain.FileKindHRES, service.DataFileInput{
		StormID: int64Ptr(7), FilePath: strPtr(key),
	})
	require.NoError(t, err)

	assert.Equal(t, "HRES", recorded.DataType)
	require.NotNil(t, recorded.IssuedTime)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *recorded.IssuedTime)
}

func TestDataFileService_Create_ExternalKey(t *testing.T) {
	f := newDataFileFixture()
	key := "archive/2019/forecast.csv"
	f.sessions.On("GetByKey", mock.Anything, key).Return(nil, domain.ErrUploadSessionNotFound)
	f.files.On("Create", mock.Anything, mock.MatchedBy(func(file *domain.DataFile) bool {
		return file.FilePath == key && file.FileName == "forecast.csv"
	})).Return(nil)

	_, err := f.svc.Create(context.Background(), domain.FileKindS2S, service.DataFileInput{
		S2SID: int64Ptr(3), FilePath: strPtr(key),
	})
	require.NoError(t, err)
	f.storage.AssertNotCalled(t, "Stat", mock.Anything, mock.Anything, mock.Anything)
}

func TestDataFileService_Get(t *testing.T) {
	f := newDataFileFixture()
	f.files.On("GetByID", mock.Anything, domain.FileKindHRES, int64(4)).
		Return(&domain.DataFile{ID: 4, Kind: domain.FileKindHRES, FilePath: "storms/1/hres/x/run.nc"}, nil)
	f.storage.On("GetPresignedURL", mock.Anything, "hydromet-data", "storms/1/hres/x/run.nc", int64(900)).
		Return("https://blob/get", nil)

	got, err := f.svc.Get(context.Background(), domain.FileKindHRES, 4)
	require.NoError(t, err)
	assert.Equal(t, "https://blob/get", got.DownloadURL)

	f.files.On("GetByID", mock.Anything, domain.FileKindHRES, int64(5)).Return(nil, domain.ErrNotFound)
	_, err = f.svc.Get(context.Background(), domain.FileKindHRES, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDataFileService_Update(t *testing.T) {
	f := newDataFileFixture()
	added := testNow.Add(-48 * time.Hour)
	f.files.On("GetByID", mock.Anything, domain.FileKindReservoirOperation, int64(8)).
		Return(&domain.DataFile{ID: 8, Kind: domain.FileKindReservoirOperation, ReservoirID: int64Ptr(2), AddedTime: &added}, nil)
	f.files.On("Update", mock.Anything, mock.Anything).Return(nil)

	to := testNow.Add(6 * time.Hour)
	updated, err := f.svc.Update(context.Background(), domain.FileKindReservoirOperation, 8, service.DataFileInput{
		ToTime: &to,
	})
	require.NoError(t, err)
	assert.Equal(t, to, *updated.ToTime)
	assert.Equal(t, int64(2), *updated.ReservoirID)
	assert.Equal(t, added, *updated.AddedTime, "added_time is kept on update")
	assert.Equal(t, testNow, *updated.UpdatedTime)
}

func TestDataFileService_Delete(t *testing.T) {
	t.Run("removes blob then record", func(t *testing.T) {
		f := newDataFileFixture()
		f.files.On("GetByID", mock.Anything, domain.FileKindNWP, int64(1)).
			Return(&domain.DataFile{ID: 1, FilePath: "storms/1/nwp/x/a.nc"}, nil)
		f.storage.On("Delete", mock.Anything, "hydromet-data", "storms/1/nwp/x/a.nc").Return(nil)
		f.files.On("Delete", mock.Anything, domain.FileKindNWP, int64(1)).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), domain.FileKindNWP, 1))
		f.storage.AssertExpectations(t)
		f.files.AssertExpectations(t)
	})

	t.Run("storage failure keeps record", func(t *testing.T) {
		f := newDataFileFixture()
		f.files.On("GetByID", mock.Anything, domain.FileKindNWP, int64(1)).
			Return(&domain.DataFile{ID: 1, FilePath: "storms/1/nwp/x/a.nc"}, nil)
		f.storage.On("Delete", mock.Anything, "hydromet-data", "storms/1/nwp/x/a.nc").Return(errors.New("denied"))

		err := f.svc.Delete(context.Background(), domain.FileKindNWP, 1)
		assert.ErrorContains(t, err, "denied")
		f.files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDataFileService_Export_Pages(t *testing.T) {
	f := newDataFileFixture()
	first := make([]domain.DataFile, 500)
	for i := range first {
		first[i] = domain.DataFile{ID: int64(i + 1), Kind: domain.FileKindS2S, FileName: fmt.Sprintf("f%03d.csv", i)}
	}
	second := []domain.DataFile{{ID: 501, Kind: domain.FileKindS2S, FileName: "last.csv"}}

	f.files.On("List", mock.Anything, mock.MatchedBy(func(fl domain.DataFileFilter) bool { return fl.Offset == 0 })).
		Return(first, 501, nil)
	f.files.On("List", mock.Anything, mock.MatchedBy(func(fl domain.DataFileFilter) bool { return fl.Offset == 500 })).
		Return(second, 501, nil)

	var buf bytes.Buffer
	err := f.svc.Export(context.Background(), domain.DataFileFilter{Kind: domain.FileKindS2S}, domain.ExportCSV, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "f000.csv")
	assert.Contains(t, out, "last.csv")
	assert.Equal(t, 502, strings.Count(out, "\n"), "header plus one line per record")
	f.files.AssertNumberOfCalls(t, "List", 2)
}

func TestDataFileService_Export_BadFormat(t *testing.T) {
	f := newDataFileFixture()
	err := f.svc.Export(context.Background(), domain.DataFileFilter{Kind: domain.FileKindS2S}, "pdf", &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidExportFormat)
}
