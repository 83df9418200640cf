// Package export renders data-file listings as CSV or XLSX.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hydromet/internal/domain"
)

// RowWriter writes a header followed by batches of data-file rows.
type RowWriter interface {
	WriteHeader() error
	WriteFiles(files []domain.DataFile) error
	// Close flushes buffered output. It must be called exactly once.
	Close() error
}

// New returns the writer for format, bound to the columns of kind.
func New(format domain.ExportFormat, kind domain.FileKind, w io.Writer) (RowWriter, error) {
	switch format {
	case domain.ExportCSV:
		return NewCSVWriter(kind, w), nil
	case domain.ExportXLSX:
		return NewXLSXWriter(kind, w)
	default:
		return nil, domain.ErrInvalidExportFormat
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format domain.ExportFormat) string {
	if format == domain.ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type column struct {
	header string
	value  func(f *domain.DataFile) string
}

var (
	leadingColumns = []column{
		{"ID", func(f *domain.DataFile) string { return strconv.FormatInt(f.ID, 10) }},
		{"Kind", func(f *domain.DataFile) string { return string(f.Kind) }},
	}
	trailingColumns = []column{
		{"File Name", func(f *domain.DataFile) string { return f.FileName }},
		{"File Path", func(f *domain.DataFile) string { return f.FilePath }},
		{"Content Type", func(f *domain.DataFile) string { return f.ContentType }},
		{"Size (bytes)", func(f *domain.DataFile) string { return strconv.FormatInt(f.FileSize, 10) }},
		{"Created At", func(f *domain.DataFile) string { return f.CreatedAt.UTC().Format(time.RFC3339) }},
	}
	stormColumns = []column{
		{"Storm ID", func(f *domain.DataFile) string { return formatID(f.StormID) }},
		{"Data Type", func(f *domain.DataFile) string { return f.DataType }},
		{"Issued Time", func(f *domain.DataFile) string { return formatTime(f.IssuedTime) }},
	}
	reservoirColumns = []column{
		{"Reservoir ID", func(f *domain.DataFile) string { return formatID(f.ReservoirID) }},
		{"From Time", func(f *domain.DataFile) string { return formatTime(f.FromTime) }},
		{"To Time", func(f *domain.DataFile) string { return formatTime(f.ToTime) }},
		{"Added Time", func(f *domain.DataFile) string { return formatTime(f.AddedTime) }},
		{"Updated Time", func(f *domain.DataFile) string { return formatTime(f.UpdatedTime) }},
	}
	s2sColumns = []column{
		{"S2S ID", func(f *domain.DataFile) string { return formatID(f.S2SID) }},
		{"Added Time", func(f *domain.DataFile) string { return formatTime(f.AddedTime) }},
		{"Updated Time", func(f *domain.DataFile) string { return formatTime(f.UpdatedTime) }},
	}
)

func columnsFor(kind domain.FileKind) []column {
	var middle []column
	switch {
	case kind.IsStorm():
		middle = stormColumns
	case kind == domain.FileKindReservoirOperation:
		middle = reservoirColumns
	case kind == domain.FileKindS2S:
		middle = s2sColumns
	}
	cols := make([]column, 0, len(leadingColumns)+len(middle)+len(trailingColumns))
	cols = append(cols, leadingColumns...)
	cols = append(cols, middle...)
	return append(cols, trailingColumns...)
}

func headers(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func fileToRow(cols []column, f *domain.DataFile) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = c.value(f)
	}
	return row
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {kind}_{YYYY-MM-DD}.{format} for Content-Disposition.
func BuildFilename(kind domain.FileKind, format domain.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(string(kind)), now.Format("2006-01-02"), format)
}
