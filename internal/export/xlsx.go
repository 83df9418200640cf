package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"hydromet/internal/domain"
)

const sheetName = "Files"

// XLSXWriter streams rows into a single-sheet workbook.
type XLSXWriter struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	cols   []column
	row    int
}

// NewXLSXWriter creates an XLSXWriter; the workbook is written to w on Close.
func NewXLSXWriter(kind domain.FileKind, w io.Writer) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx stream writer: %w", err)
	}
	return &XLSXWriter{out: w, file: f, stream: sw, cols: columnsFor(kind), row: 1}, nil
}

func (w *XLSXWriter) WriteHeader() error {
	return w.writeRow(headers(w.cols))
}

func (w *XLSXWriter) WriteFiles(files []domain.DataFile) error {
	for i := range files {
		if err := w.writeRow(fileToRow(w.cols, &files[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *XLSXWriter) writeRow(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := w.stream.SetRow(cell, row); err != nil {
		return fmt.Errorf("xlsx row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

func (w *XLSXWriter) Close() error {
	defer func() { _ = w.file.Close() }()
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if _, err := w.file.WriteTo(w.out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
