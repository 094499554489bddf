package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/anta/backoffice/attendance"
)

// attendanceStore implements attendance.Store.
type attendanceStore struct {
	s  *Store
	tx *sql.Tx
}

func (a *attendanceStore) q() querier {
	if a.tx != nil {
		return a.tx
	}
	return a.s.db
}

// InTx executes fn within one transaction. Calls on an already
// transaction-scoped store reuse the open transaction.
func (a *attendanceStore) InTx(ctx context.Context, fn func(attendance.Store) error) error {
	if a.tx != nil {
		return fn(a)
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	tx, err := a.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&attendanceStore{s: a.s, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// ExistingRecords bulk-loads the stored records for the given keys in one
// query. Keys are matched as (employee_id, date) pairs.
func (a *attendanceStore) ExistingRecords(ctx context.Context, keys []attendance.Key) (map[attendance.Key]attendance.Record, error) {
	out := make(map[attendance.Key]attendance.Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		placeholders = append(placeholders, "(?, ?)")
		args = append(args, k.EmployeeID, k.Date)
	}

	query := `
		SELECT employee_id, date, state, note
		FROM attendance_records
		WHERE (employee_id, date) IN (VALUES ` + strings.Join(placeholders, ", ") + `)`

	rows, err := a.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec attendance.Record
		var date, state string
		if err := rows.Scan(&rec.EmployeeID, &date, &state, &rec.Note); err != nil {
			return nil, err
		}
		rec.Date, _ = time.Parse(attendance.DateLayout, date)
		rec.State = attendance.State(state)
		out[rec.KeyOf()] = rec
	}
	return out, rows.Err()
}

func (a *attendanceStore) InsertRecord(ctx context.Context, rec attendance.Record) error {
	now := nowRFC3339()
	_, err := a.q().ExecContext(ctx, `
		INSERT INTO attendance_records (employee_id, date, state, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.EmployeeID, rec.Date.Format(attendance.DateLayout),
		string(rec.State), rec.Note, now, now)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func (a *attendanceStore) UpdateRecord(ctx context.Context, rec attendance.Record) error {
	_, err := a.q().ExecContext(ctx, `
		UPDATE attendance_records SET state = ?, note = ?, updated_at = ?
		WHERE employee_id = ? AND date = ?
	`, string(rec.State), rec.Note, nowRFC3339(),
		rec.EmployeeID, rec.Date.Format(attendance.DateLayout))
	return err
}

// MissingEmployees returns which of the given ids have no employee row.
func (a *attendanceStore) MissingEmployees(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := a.q().QueryContext(ctx,
		"SELECT id FROM employees WHERE id IN ("+strings.Join(placeholders, ",")+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// RecordsByEmployee returns an employee's stored matrix in a date range,
// oldest first. Used by the attendance read-back endpoint.
func (s *Store) RecordsByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, date, state, note
		FROM attendance_records
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, employeeID, from.Format(attendance.DateLayout), to.Format(attendance.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		var date, state string
		if err := rows.Scan(&rec.EmployeeID, &date, &state, &rec.Note); err != nil {
			return nil, err
		}
		rec.Date, _ = time.Parse(attendance.DateLayout, date)
		rec.State = attendance.State(state)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
