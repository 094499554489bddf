package documents

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface for documents and their detail lines.
// Implemented by store/sqlite.
//
// WithTx executes fn against a transaction-scoped Store; fn returning an
// error rolls everything back. NextNumber must be called inside WithTx so
// the counter increment commits or rolls back with the document insert.
type Store interface {
	// WithTx executes fn within one transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	// NextNumber increments the series counter and returns its new value.
	NextNumber(ctx context.Context, prefix string) (int64, error)

	// AdvanceSeries moves the series counter to at least past. Never
	// moves it backwards. Called outside WithTx after a number collision:
	// the rollback undoes the counter increment, so the counter must be
	// pushed past the taken value before the allocation is retried.
	AdvanceSeries(ctx context.Context, prefix string, past int64) error

	InsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context, docType Type) ([]Document, error)
	// DeleteDocument removes a document; details cascade.
	DeleteDocument(ctx context.Context, id int64) error
	UpdateHeader(ctx context.Context, id int64, client, description string) error
	SetTotal(ctx context.Context, id int64, total decimal.Decimal) error

	InsertDetail(ctx context.Context, line *DetailLine) error
	UpdateDetail(ctx context.Context, line DetailLine) error
	DeleteDetail(ctx context.Context, id int64) error
	GetDetails(ctx context.Context, documentID int64) ([]DetailLine, error)

	// ProductExists reports whether a catalog product id is valid.
	ProductExists(ctx context.Context, productID int64) (bool, error)
}
