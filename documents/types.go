package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anta/backoffice/sequence"
)

// Type distinguishes the two commercial document classes. Each maps to
// its own number series.
type Type string

const (
	TypeQuotation     Type = "quotation"
	TypePurchaseOrder Type = "purchase_order"
)

// SeriesPrefix returns the number series a document type allocates from.
func (t Type) SeriesPrefix() string {
	if t == TypePurchaseOrder {
		return sequence.PurchaseOrders
	}
	return sequence.Quotations
}

// Document is a quotation or purchase order. Total is derived from the
// detail lines and recomputed on every write; it is never authoritative
// on its own.
type Document struct {
	ID          int64
	Type        Type
	Number      string
	Client      string
	Description string
	Total       decimal.Decimal
	CreatedAt   time.Time
}

// DetailLine is one product/quantity/price row owned by exactly one
// document. Subtotal always equals Quantity x UnitPrice at rest.
type DetailLine struct {
	ID         int64
	DocumentID int64
	ProductID  int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	Subtotal   decimal.Decimal
	Brand      string
}

// DetailInput is a caller-supplied line for create and update operations.
// A zero LineID marks an insert candidate; a non-zero LineID targets an
// existing line under the same document.
type DetailInput struct {
	LineID    int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Brand     string
}

// Subtotal computes Quantity x UnitPrice for the input.
func (in DetailInput) Subtotal() decimal.Decimal {
	return in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity))
}

// NewDocument is the input to Service.Create.
type NewDocument struct {
	Type        Type
	Client      string
	Description string
	Details     []DetailInput
}

// UpdateDocument is the input to Service.Update.
type UpdateDocument struct {
	Client      string
	Description string
	Details     []DetailInput
}

// TotalOf sums the subtotals of the given lines.
func TotalOf(lines []DetailLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
