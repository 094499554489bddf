/*
service.go - Document write operations

Create and Update are the only paths that touch a document's detail set,
and both run as a single store transaction:

  Create:  allocate number -> insert document -> insert details -> total
  Update:  load details -> reconcile -> apply plan -> recompute total

Number allocation uses the per-series counter inside the same transaction
as the document insert, so concurrent creators get consecutive numbers.
If the unique index on the formatted number still fires (counters seeded
behind legacy data), the rollback also undoes the counter increment, so
Create first pushes the counter past the taken value and then retries the
whole transaction, a bounded number of times before giving up with
ErrSequenceExhausted.
*/
package documents

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/anta/backoffice/sequence"
)

// allocationRetries bounds number-collision retries per create.
const allocationRetries = 3

// Service owns document write semantics on top of a Store.
type Service struct {
	store Store
	log   *logrus.Logger
}

// NewService creates a document service. A nil logger falls back to the
// logrus standard logger.
func NewService(store Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log}
}

// Create validates the input, allocates the next number in the document
// type's series, and persists the document with its detail lines and
// derived total, all in one transaction.
func (s *Service) Create(ctx context.Context, input NewDocument) (*Document, []DetailLine, error) {
	if err := validateClient(input.Client); err != nil {
		return nil, nil, err
	}
	if err := s.validateDetails(ctx, input.Details); err != nil {
		return nil, nil, err
	}

	prefix := input.Type.SeriesPrefix()

	var doc *Document
	var lines []DetailLine
	var n int64

	for attempt := 1; ; attempt++ {
		err := s.store.WithTx(ctx, func(tx Store) error {
			var err error
			n, err = tx.NextNumber(ctx, prefix)
			if err != nil {
				return err
			}

			doc = &Document{
				Type:        input.Type,
				Number:      sequence.Format(prefix, n),
				Client:      input.Client,
				Description: input.Description,
			}
			if err := tx.InsertDocument(ctx, doc); err != nil {
				return err
			}

			lines = lines[:0]
			for _, in := range input.Details {
				line := DetailLine{
					DocumentID: doc.ID,
					ProductID:  in.ProductID,
					Quantity:   in.Quantity,
					UnitPrice:  in.UnitPrice,
					Subtotal:   in.Subtotal(),
					Brand:      in.Brand,
				}
				if err := tx.InsertDetail(ctx, &line); err != nil {
					return err
				}
				lines = append(lines, line)
			}

			doc.Total = TotalOf(lines)
			return tx.SetTotal(ctx, doc.ID, doc.Total)
		})
		if err == nil {
			return doc, lines, nil
		}
		if !errors.Is(err, ErrNumberTaken) {
			return nil, nil, err
		}
		if attempt >= allocationRetries {
			s.log.WithFields(logrus.Fields{
				"series":   prefix,
				"attempts": attempt,
			}).Error("sequence allocation kept colliding")
			return nil, nil, ErrSequenceExhausted
		}
		// The rollback undid the counter increment; retrying as-is would
		// recompute the same number. Push the counter past the taken
		// value first.
		if err := s.store.AdvanceSeries(ctx, prefix, n); err != nil {
			return nil, nil, err
		}
		s.log.WithFields(logrus.Fields{
			"series": prefix,
			"taken":  sequence.Format(prefix, n),
		}).Warn("document number collision, retrying")
	}
}

// Update reconciles the stored detail set against the incoming one and
// applies the resulting plan plus the recomputed total atomically.
func (s *Service) Update(ctx context.Context, id int64, input UpdateDocument) (*Document, []DetailLine, error) {
	if err := validateClient(input.Client); err != nil {
		return nil, nil, err
	}
	if err := s.validateDetails(ctx, input.Details); err != nil {
		return nil, nil, err
	}

	var doc *Document
	var lines []DetailLine

	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		doc, err = tx.GetDocument(ctx, id)
		if err != nil {
			return err
		}

		existing, err := tx.GetDetails(ctx, id)
		if err != nil {
			return err
		}

		plan, err := Reconcile(id, existing, input.Details)
		if err != nil {
			return err
		}

		for _, l := range plan.ToDelete {
			if err := tx.DeleteDetail(ctx, l.ID); err != nil {
				return err
			}
		}
		for _, l := range plan.ToUpdate {
			if err := tx.UpdateDetail(ctx, l); err != nil {
				return err
			}
		}
		for i := range plan.ToInsert {
			if err := tx.InsertDetail(ctx, &plan.ToInsert[i]); err != nil {
				return err
			}
		}

		doc.Client = input.Client
		doc.Description = input.Description
		if err := tx.UpdateHeader(ctx, id, doc.Client, doc.Description); err != nil {
			return err
		}

		lines, err = tx.GetDetails(ctx, id)
		if err != nil {
			return err
		}
		doc.Total = TotalOf(lines)
		return tx.SetTotal(ctx, id, doc.Total)
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// Get returns a document with its detail lines.
func (s *Service) Get(ctx context.Context, id int64) (*Document, []DetailLine, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.GetDetails(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// List returns all documents of one type, newest first.
func (s *Service) List(ctx context.Context, docType Type) ([]Document, error) {
	return s.store.ListDocuments(ctx, docType)
}

// Delete removes a document; the store cascades to its details.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteDocument(ctx, id)
}

func validateClient(client string) error {
	if client == "" {
		return &ValidationError{Field: "cliente", Message: "required"}
	}
	return nil
}

// validateDetails enforces the line-level invariants before any write:
// at least one line, quantity >= 1, price >= 0, product exists.
func (s *Service) validateDetails(ctx context.Context, details []DetailInput) error {
	if len(details) == 0 {
		return ErrNoDetailLines
	}
	for _, in := range details {
		if in.Quantity < 1 {
			return &ValidationError{Field: "cantidad", Message: "must be at least 1"}
		}
		if in.UnitPrice.IsNegative() {
			return &ValidationError{Field: "precio_unitario", Message: "must not be negative"}
		}
		ok, err := s.store.ProductExists(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			return &UnknownProductError{ProductID: in.ProductID}
		}
	}
	return nil
}
