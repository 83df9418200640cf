package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ProgressFunc receives cumulative byte counts during a transfer.
type ProgressFunc func(loaded, total int64)

// Transferer moves a file's bytes to a presigned target.
type Transferer interface {
	Put(ctx context.Context, target *Target, file *File, onProgress ProgressFunc) error
}

// BlobStatusError is returned when the blob store answers the PUT with a non-2xx status.
type BlobStatusError struct {
	StatusCode int
	Body       string
}

func (e *BlobStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("blob store returned %d", e.StatusCode)
	}
	return fmt.Sprintf("blob store returned %d: %s", e.StatusCode, e.Body)
}

// HTTPTransfer PUTs the file body straight to the upload URL.
type HTTPTransfer struct {
	client *http.Client
}

// NewHTTPTransfer creates an HTTPTransfer. A nil client means http.DefaultClient.
func NewHTTPTransfer(client *http.Client) *HTTPTransfer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransfer{client: client}
}

func (t *HTTPTransfer) Put(ctx context.Context, target *Target, file *File, onProgress ProgressFunc) error {
	body, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer func() { _ = body.Close() }()

	var reader io.Reader = body
	if onProgress != nil {
		reader = &progressReader{r: body, total: file.Size, onProgress: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, reader)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.ContentLength = file.Size
	req.Header.Set("Content-Type", file.contentType())
	if file.Size == 0 {
		req.Body = http.NoBody
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading to blob store: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &BlobStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

type progressReader struct {
	r          io.Reader
	loaded     int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.onProgress(p.loaded, p.total)
	}
	return n, err
}
