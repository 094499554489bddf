package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/anta/backoffice/catalog"
)

// Line is a normalized, validated data row ready to become a detail line.
type Line struct {
	Product   catalog.Product
	Quantity  int64
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// RowError is one skipped row and the reason, phrased for end users.
type RowError struct {
	Row     int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Normalize converts raw data rows into Lines, resolving product names
// against the index. Processing is in row order and never stops at a bad
// row: each failure becomes a RowError and the row is skipped. Template
// artifacts (blank rows, "TOTAL" footers) are skipped silently.
//
// Lookup is exact match after name normalization; a miss is an error
// naming the product, not an invitation to guess.
func Normalize(wb *Workbook, index catalog.ProductIndex) ([]Line, []RowError) {
	var lines []Line
	var rowErrs []RowError

	for i, row := range wb.Rows {
		rowNum := wb.FirstRow + i

		if isBlank(row) || isTotalFooter(row) {
			continue
		}

		name := strings.TrimSpace(row[0])
		if name == "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "product name required"})
			continue
		}

		product, ok := index.Lookup(name)
		if !ok {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: fmt.Sprintf("product %q not found", name)})
			continue
		}

		qty, err := parseQuantity(row[1])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: fmt.Sprintf("invalid quantity for %q: %v", name, err)})
			continue
		}

		price, err := parsePrice(row[2])
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: fmt.Sprintf("invalid unit price for %q: %v", name, err)})
			continue
		}

		lines = append(lines, Line{
			Product:   product,
			Quantity:  qty,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(qty)),
		})
	}

	return lines, rowErrs
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isTotalFooter matches the template's footer rows, whose first cell
// contains the literal token TOTAL in any casing.
func isTotalFooter(row []string) bool {
	return strings.Contains(strings.ToUpper(row[0]), "TOTAL")
}

// cleanNumeric strips currency and thousands formatting the template
// applies to numeric cells: dollar and sol markers, grouping commas,
// regular and non-breaking spaces.
func cleanNumeric(cell string) string {
	s := strings.TrimSpace(cell)
	for _, marker := range []string{"S/.", "S/", "$"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, " ", "")
}

func parseQuantity(cell string) (int64, error) {
	s := cleanNumeric(cell)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("must be a whole number")
	}
	n := d.IntPart()
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return n, nil
}

func parsePrice(cell string) (decimal.Decimal, error) {
	s := cleanNumeric(cell)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return d, nil
}
