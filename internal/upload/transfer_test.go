package upload_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromet/internal/upload"
)

func TestHTTPTransfer_Put(t *testing.T) {
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	var (
		gotMethod string
		gotType   string
		gotLength int64
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var loaded, total int64
	file := upload.NewMemoryFile("nwp.grib", "application/x-grib", payload)

	err := upload.NewHTTPTransfer(srv.Client()).Put(context.Background(),
		&upload.Target{UploadURL: srv.URL + "/bucket/key", Key: "key"}, file,
		func(l, tt int64) {
			mu.Lock()
			defer mu.Unlock()
			loaded, total = l, tt
		})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/x-grib", gotType)
	assert.Equal(t, int64(len(payload)), gotLength)
	assert.Equal(t, payload, gotBody)
	mu.Lock()
	assert.Equal(t, int64(len(payload)), loaded)
	assert.Equal(t, int64(len(payload)), total)
	mu.Unlock()
}

func TestHTTPTransfer_Put_DefaultContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		_, _ = io.Copy(io.Discard, r.Body)
	}))
	defer srv.Close()

	file := &upload.File{
		FileInfo: upload.FileInfo{Name: "blob", Size: 3},
		Open:     upload.NewMemoryFile("blob", "", []byte("abc")).Open,
	}

	err := upload.NewHTTPTransfer(srv.Client()).Put(context.Background(), &upload.Target{UploadURL: srv.URL, Key: "k"}, file, nil)

	require.NoError(t, err)
	assert.Equal(t, upload.DefaultContentType, gotType)
}

func TestHTTPTransfer_Put_RejectedByStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>"))
	}))
	defer srv.Close()

	err := upload.NewHTTPTransfer(srv.Client()).Put(context.Background(),
		&upload.Target{UploadURL: srv.URL, Key: "k"}, upload.NewMemoryFile("a.csv", "text/csv", []byte("a,b\n")), nil)

	var se *upload.BlobStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Contains(t, se.Body, "Request has expired")
}

func TestHTTPTransfer_Put_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := upload.NewHTTPTransfer(srv.Client()).Put(ctx,
		&upload.Target{UploadURL: srv.URL, Key: "k"}, upload.NewMemoryFile("a.csv", "text/csv", []byte("a,b\n")), nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_OverHTTP(t *testing.T) {
	var stored []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stored, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "ops.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,inflow\n2024031512,41.2\n"), 0o600))
	file, err := upload.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ops.csv", file.Name)
	assert.Contains(t, file.ContentType, "text/csv")

	committed := ""
	s := upload.Strategy{
		Name: "reservoir-operation",
		Presign: func(context.Context, upload.FileInfo) (*upload.Target, error) {
			return &upload.Target{UploadURL: srv.URL + "/k9", Key: "k9"}, nil
		},
		Commit: func(_ context.Context, key string) (*upload.CommitResult, error) {
			committed = key
			return &upload.CommitResult{Key: key}, nil
		},
	}
	rec := &recorder{}

	res, err := upload.NewPipeline(upload.NewHTTPTransfer(srv.Client())).Run(context.Background(), file, s, rec.observe)

	require.NoError(t, err)
	assert.Equal(t, "k9", res.Key)
	assert.Equal(t, "k9", committed)
	assert.Equal(t, "time,inflow\n2024031512,41.2\n", string(stored))
	assert.Equal(t, upload.StatusSuccess, rec.last().Status)
}
