package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anta/backoffice/documents"
)

// documentStore implements documents.Store. A nil tx runs against the
// database directly; WithTx hands out a transaction-scoped copy.
type documentStore struct {
	s  *Store
	tx *sql.Tx
}

func (d *documentStore) q() querier {
	if d.tx != nil {
		return d.tx
	}
	return d.s.db
}

// WithTx executes fn within one transaction. Calls on an already
// transaction-scoped store reuse the open transaction.
func (d *documentStore) WithTx(ctx context.Context, fn func(documents.Store) error) error {
	if d.tx != nil {
		return fn(d)
	}

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	tx, err := d.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&documentStore{s: d.s, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// NextNumber increments the series counter and returns its new value.
// The UPSERT creates the counter row on first use of a series.
func (d *documentStore) NextNumber(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := d.q().QueryRowContext(ctx, `
		INSERT INTO document_series (prefix, last_value) VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment series %s: %w", prefix, err)
	}
	return n, nil
}

// AdvanceSeries pushes the series counter to at least past, so the next
// NextNumber returns past+1. Used after a collision with a number stored
// by the legacy system outside the counter.
func (d *documentStore) AdvanceSeries(ctx context.Context, prefix string, past int64) error {
	_, err := d.q().ExecContext(ctx, `
		INSERT INTO document_series (prefix, last_value) VALUES (?, ?)
		ON CONFLICT(prefix) DO UPDATE SET last_value = MAX(last_value, excluded.last_value)
	`, prefix, past)
	if err != nil {
		return fmt.Errorf("advance series %s: %w", prefix, err)
	}
	return nil
}

func (d *documentStore) InsertDocument(ctx context.Context, doc *documents.Document) error {
	now := time.Now().UTC()
	res, err := d.q().ExecContext(ctx, `
		INSERT INTO documents (doc_type, number, client, description, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(doc.Type), doc.Number, doc.Client, doc.Description,
		doc.Total.String(), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) && constraintOn(err, "documents.number") {
			return documents.ErrNumberTaken
		}
		return fmt.Errorf("insert document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	doc.CreatedAt = now
	return err
}

func (d *documentStore) GetDocument(ctx context.Context, id int64) (*documents.Document, error) {
	row := d.q().QueryRowContext(ctx, `
		SELECT id, doc_type, number, client, description, total, created_at
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, documents.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *documentStore) ListDocuments(ctx context.Context, docType documents.Type) ([]documents.Document, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT id, doc_type, number, client, description, total, created_at
		FROM documents WHERE doc_type = ?
		ORDER BY created_at DESC, id DESC
	`, string(docType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []documents.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (d *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	res, err := d.q().ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return documents.ErrNotFound
	}
	return nil
}

func (d *documentStore) UpdateHeader(ctx context.Context, id int64, client, description string) error {
	_, err := d.q().ExecContext(ctx,
		"UPDATE documents SET client = ?, description = ? WHERE id = ?",
		client, description, id)
	return err
}

func (d *documentStore) SetTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	_, err := d.q().ExecContext(ctx,
		"UPDATE documents SET total = ? WHERE id = ?", total.String(), id)
	return err
}

func (d *documentStore) InsertDetail(ctx context.Context, line *documents.DetailLine) error {
	res, err := d.q().ExecContext(ctx, `
		INSERT INTO document_details (document_id, product_id, quantity, unit_price, subtotal, brand)
		VALUES (?, ?, ?, ?, ?, ?)
	`, line.DocumentID, line.ProductID, line.Quantity,
		line.UnitPrice.String(), line.Subtotal.String(), line.Brand)
	if err != nil {
		return fmt.Errorf("insert detail: %w", err)
	}
	line.ID, err = res.LastInsertId()
	return err
}

func (d *documentStore) UpdateDetail(ctx context.Context, line documents.DetailLine) error {
	_, err := d.q().ExecContext(ctx, `
		UPDATE document_details
		SET product_id = ?, quantity = ?, unit_price = ?, subtotal = ?, brand = ?
		WHERE id = ? AND document_id = ?
	`, line.ProductID, line.Quantity, line.UnitPrice.String(),
		line.Subtotal.String(), line.Brand, line.ID, line.DocumentID)
	return err
}

func (d *documentStore) DeleteDetail(ctx context.Context, id int64) error {
	_, err := d.q().ExecContext(ctx, "DELETE FROM document_details WHERE id = ?", id)
	return err
}

func (d *documentStore) GetDetails(ctx context.Context, documentID int64) ([]documents.DetailLine, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT id, document_id, product_id, quantity, unit_price, subtotal, brand
		FROM document_details WHERE document_id = ?
		ORDER BY id ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []documents.DetailLine
	for rows.Next() {
		var l documents.DetailLine
		var unitPrice, subtotal string
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Quantity,
			&unitPrice, &subtotal, &l.Brand); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = parseDecimal(unitPrice); err != nil {
			return nil, fmt.Errorf("detail %d unit_price: %w", l.ID, err)
		}
		if l.Subtotal, err = parseDecimal(subtotal); err != nil {
			return nil, fmt.Errorf("detail %d subtotal: %w", l.ID, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (d *documentStore) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var count int
	err := d.q().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE id = ?", productID).Scan(&count)
	return count > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*documents.Document, error) {
	var doc documents.Document
	var docType, total, createdAt string
	if err := row.Scan(&doc.ID, &docType, &doc.Number, &doc.Client,
		&doc.Description, &total, &createdAt); err != nil {
		return nil, err
	}
	doc.Type = documents.Type(docType)
	var err error
	if doc.Total, err = parseDecimal(total); err != nil {
		return nil, fmt.Errorf("document %d total: %w", doc.ID, err)
	}
	doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &doc, nil
}
