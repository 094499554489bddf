package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildXLSX renders the template shape in memory: client in B1, header in
// row 3, data from row 4.
func buildXLSX(t *testing.T, client string, header []string, rows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if client != "" {
		if err := f.SetCellValue(sheet, "B1", client); err != nil {
			t.Fatalf("set B1: %v", err)
		}
	}
	for col, v := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, 4+i)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseWorkbook_TemplateShape(t *testing.T) {
	// GIVEN: a well-formed template upload
	r := buildXLSX(t, "Constructora Andina SAC", ExpectedHeader, [][]any{
		{"Cemento Sol x 42.5 kg", 30, 47.5, 1425.0},
		{"Arena Gruesa", 3, 55, 165},
	})

	// WHEN: parsing
	wb, err := ParseWorkbook(r)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}

	// THEN: client and data rows come through, padded to header width
	if wb.Client != "Constructora Andina SAC" {
		t.Errorf("Client = %q", wb.Client)
	}
	if wb.FirstRow != 4 {
		t.Errorf("FirstRow = %d, want 4", wb.FirstRow)
	}
	if len(wb.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(wb.Rows))
	}
	for i, row := range wb.Rows {
		if len(row) != len(ExpectedHeader) {
			t.Errorf("row %d width = %d, want %d", i, len(row), len(ExpectedHeader))
		}
	}
	if wb.Rows[0][0] != "Cemento Sol x 42.5 kg" {
		t.Errorf("Rows[0][0] = %q", wb.Rows[0][0])
	}
}

func TestParseWorkbook_HeaderIsCaseInsensitive(t *testing.T) {
	r := buildXLSX(t, "Cliente", []string{"  nombre producto ", "CANTIDAD", "precio unitario", "subtotal"}, [][]any{
		{"Arena Gruesa", 1, 10, 10},
	})

	if _, err := ParseWorkbook(r); err != nil {
		t.Fatalf("ParseWorkbook rejected an equivalent header: %v", err)
	}
}

func TestParseWorkbook_HeaderMismatchFailsWholeBatch(t *testing.T) {
	// GIVEN: a workbook with a reordered header
	r := buildXLSX(t, "Cliente", []string{"Cantidad", "Nombre Producto", "Precio Unitario", "Subtotal"}, [][]any{
		{"Arena Gruesa", 1, 10, 10},
	})

	_, err := ParseWorkbook(r)

	var headerErr *HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("ParseWorkbook = %v, want HeaderError", err)
	}
}

func TestParseWorkbook_MissingClient(t *testing.T) {
	r := buildXLSX(t, "", ExpectedHeader, [][]any{
		{"Arena Gruesa", 1, 10, 10},
	})

	if _, err := ParseWorkbook(r); !errors.Is(err, ErrMissingClient) {
		t.Fatalf("ParseWorkbook = %v, want ErrMissingClient", err)
	}
}

func TestParseWorkbook_EmptySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	if _, err := ParseWorkbook(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrEmptyWorkbook) {
		t.Fatalf("ParseWorkbook = %v, want ErrEmptyWorkbook", err)
	}
}

func TestParseWorkbook_NotAWorkbook(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewReader([]byte("definitely not a zip")))
	if err == nil {
		t.Fatal("ParseWorkbook accepted garbage bytes")
	}
}

func TestParseWorkbook_ManyRows(t *testing.T) {
	var rows [][]any
	for i := 0; i < 50; i++ {
		rows = append(rows, []any{fmt.Sprintf("Producto %d", i), i + 1, 10.5, 0})
	}
	r := buildXLSX(t, "Cliente", ExpectedHeader, rows)

	wb, err := ParseWorkbook(r)
	if err != nil {
		t.Fatalf("ParseWorkbook failed: %v", err)
	}
	if len(wb.Rows) != 50 {
		t.Errorf("Rows = %d, want 50", len(wb.Rows))
	}
}
