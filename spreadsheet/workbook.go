/*
Package spreadsheet parses uploaded quotation workbooks into typed detail
lines, tolerating bad rows.

LAYOUT CONTRACT (template the field teams fill in):
  cell B1    client/provider name, required
  row 3      header, exactly: Nombre Producto | Cantidad | Precio Unitario | Subtotal
             (case-insensitive, surrounding whitespace ignored)
  row 4..n   data rows; rows whose first cell contains "TOTAL" and fully
             blank rows are template footers/spacers, not data

A header mismatch or missing client name fails the whole batch before any
row is looked at. Row-level problems never abort the batch: the normalizer
collects them and keeps going, and the caller decides what to do with a
partial result (zero valid rows is a hard failure).
*/
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExpectedHeader is the exact column sequence row 3 must carry.
var ExpectedHeader = []string{"Nombre Producto", "Cantidad", "Precio Unitario", "Subtotal"}

const (
	headerRow    = 3 // 1-based workbook row holding the header
	firstDataRow = 4
)

var (
	// ErrMissingClient is returned when cell B1 is empty.
	ErrMissingClient = errors.New("client name missing in cell B1")

	// ErrNoValidRows is returned when normalization produced nothing
	// usable; the import persists nothing in that case.
	ErrNoValidRows = errors.New("no valid rows in workbook")

	// ErrEmptyWorkbook is returned for a workbook without sheets or rows.
	ErrEmptyWorkbook = errors.New("workbook has no data")
)

// HeaderError reports a header row that does not match ExpectedHeader.
// It fails the whole batch; no data rows are processed.
type HeaderError struct {
	Got []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("header row mismatch: want %v, got %v", ExpectedHeader, e.Got)
}

// Workbook is the raw content of a parsed upload: the client name from B1
// and the data rows, each padded to the header width. Row numbers in
// emitted RowErrors are offset by FirstRow.
type Workbook struct {
	Client   string
	Rows     [][]string
	FirstRow int
}

// ParseWorkbook reads an xlsx upload and validates the template structure.
func ParseWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < headerRow {
		return nil, ErrEmptyWorkbook
	}

	client, err := f.GetCellValue(sheets[0], "B1")
	if err != nil {
		return nil, fmt.Errorf("read cell B1: %w", err)
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return nil, ErrMissingClient
	}

	if err := validateHeader(rows[headerRow-1]); err != nil {
		return nil, err
	}

	// Pad every data row to the header width so cell access never
	// depends on how excelize trimmed trailing blanks.
	var data [][]string
	for _, row := range rows[firstDataRow-1:] {
		padded := make([]string, len(ExpectedHeader))
		copy(padded, row)
		data = append(data, padded)
	}

	return &Workbook{Client: client, Rows: data, FirstRow: firstDataRow}, nil
}

func validateHeader(row []string) error {
	if len(row) < len(ExpectedHeader) {
		return &HeaderError{Got: row}
	}
	for i, want := range ExpectedHeader {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return &HeaderError{Got: row[:len(ExpectedHeader)]}
		}
	}
	return nil
}
