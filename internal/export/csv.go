package export

import (
	"encoding/csv"
	"io"

	"hydromet/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel needs to detect encoding on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter wraps csv.Writer for exporting data files as CSV.
type CSVWriter struct {
	out  io.Writer
	csv  *csv.Writer
	cols []column
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(kind domain.FileKind, w io.Writer) *CSVWriter {
	return &CSVWriter{out: w, csv: csv.NewWriter(w), cols: columnsFor(kind)}
}

// WriteHeader writes the BOM and the header row.
func (w *CSVWriter) WriteHeader() error {
	if _, err := w.out.Write(BOM); err != nil {
		return err
	}
	return w.csv.Write(headers(w.cols))
}

// WriteFiles converts a batch of data files to CSV rows and writes them.
func (w *CSVWriter) WriteFiles(files []domain.DataFile) error {
	for i := range files {
		if err := w.csv.Write(fileToRow(w.cols, &files[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) Close() error {
	w.csv.Flush()
	return w.csv.Error()
}
