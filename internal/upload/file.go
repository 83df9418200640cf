package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// DefaultContentType is sent when a file's MIME type is unknown.
const DefaultContentType = "application/octet-stream"

// FileInfo is the metadata the presign service needs.
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// File is a local file handle. Open is called once per attempt so retries
// re-read from the start.
type File struct {
	FileInfo
	Open func() (io.ReadCloser, error)
}

// OpenFile describes the file at path, guessing its MIME type from the extension.
func OpenFile(path string) (*File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		FileInfo: FileInfo{
			Name:        filepath.Base(path),
			ContentType: ContentTypeFor(path),
			Size:        st.Size(),
		},
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// NewMemoryFile wraps an in-memory payload.
func NewMemoryFile(name, contentType string, data []byte) *File {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &File{
		FileInfo: FileInfo{Name: name, ContentType: contentType, Size: int64(len(data))},
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ContentTypeFor returns the MIME type registered for name's extension.
func ContentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".nc":
		return "application/x-netcdf"
	case ".grib", ".grb", ".grib2":
		return "application/x-grib"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return DefaultContentType
}

func (f FileInfo) contentType() string {
	if f.ContentType == "" {
		return DefaultContentType
	}
	return f.ContentType
}
