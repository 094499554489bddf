/*
errors.go - Error taxonomy for document writes

Three families, matching how callers must react:

  ValidationError          caller-fixable input problems, surfaced per field
  ReconciliationConflict   an update targets a line that no longer exists
                           under the parent; the whole write is rolled back
  ErrNumberTaken           the formatted sequence number collided with a
                           concurrent writer; the service retries allocation

Sentinel errors compose with errors.Is; structured errors carry the
identifiers a client needs to repair its request.
*/
package documents

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrNoDetailLines is returned when a create or update carries zero
	// detail lines. A document always has at least one.
	ErrNoDetailLines = errors.New("document requires at least one detail line")

	// ErrNumberTaken is returned by the store when the unique index on
	// the formatted document number rejects an insert. The service
	// retries allocation a bounded number of times.
	ErrNumberTaken = errors.New("document number already taken")

	// ErrSequenceExhausted is returned when allocation retries run out.
	ErrSequenceExhausted = errors.New("sequence allocation retries exhausted")
)

// ValidationError is a caller-fixable problem with one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UnknownProductError is returned when a detail line references a product
// that does not exist.
type UnknownProductError struct {
	ProductID int64
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// ReconciliationConflictError is returned when an incoming line carries an
// identifier that is not among the document's existing lines. The whole
// write fails; nothing is applied.
type ReconciliationConflictError struct {
	DocumentID int64
	LineID     int64
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("detail line %d does not belong to document %d", e.LineID, e.DocumentID)
}

// IsClientError reports whether the error is the caller's to fix.
func IsClientError(err error) bool {
	var ve *ValidationError
	var up *UnknownProductError
	return errors.As(err, &ve) || errors.As(err, &up) || errors.Is(err, ErrNoDetailLines)
}

// IsConflict reports whether the error is a concurrent or stale-state
// conflict rather than bad input.
func IsConflict(err error) bool {
	var rc *ReconciliationConflictError
	return errors.As(err, &rc) || errors.Is(err, ErrSequenceExhausted)
}
