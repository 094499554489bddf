/*
Package attendance applies batches of (employee, date, state) cells to the
stored attendance matrix as one atomic create-or-update operation.

The central invariant is at most one record per (employee, date). The
upserter preserves it by keying every decision on that pair: one bulk read
of the touched keys, then per cell either an insert (created) or a
state/note overwrite (updated). Existing records are never deleted here.

Batches carrying two cells for the same key are rejected before any write,
so the outcome never depends on processing order.
*/
package attendance

import (
	"errors"
	"fmt"
	"time"
)

// State is the recorded attendance outcome for one employee-day.
type State string

const (
	StatePresent State = "PRESENT"
	StateAbsent  State = "ABSENT"
	StateLate    State = "LATE"
	StateExcused State = "EXCUSED"
)

// ParseState validates a wire-format state value.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateAbsent, StateLate, StateExcused:
		return State(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// DateLayout is the wire and storage format for attendance dates.
const DateLayout = "2006-01-02"

// Key is the natural key of an attendance record. Date is held in
// DateLayout form so Keys compare by calendar day, not instant.
type Key struct {
	EmployeeID int64
	Date       string
}

// Record is one stored employee-day fact.
type Record struct {
	EmployeeID int64
	Date       time.Time
	State      State
	Note       string
}

// KeyOf returns the record's natural key.
func (r Record) KeyOf() Key {
	return Key{EmployeeID: r.EmployeeID, Date: r.Date.Format(DateLayout)}
}

// Cell is one caller-supplied mutation: set the state for an employee-day.
type Cell struct {
	EmployeeID int64
	Date       time.Time
	State      State
	Note       string
}

// KeyOf returns the cell's natural key.
func (c Cell) KeyOf() Key {
	return Key{EmployeeID: c.EmployeeID, Date: c.Date.Format(DateLayout)}
}

// Result reports what a batch did.
type Result struct {
	Created int
	Updated int
}

var (
	// ErrEmptyBatch is returned for a batch with no cells.
	ErrEmptyBatch = errors.New("attendance batch is empty")

	// ErrInvalidState is returned for a state outside the known set.
	ErrInvalidState = errors.New("invalid attendance state")
)

// DuplicateCellError is returned when one batch carries two cells for the
// same (employee, date) key. Applying such a batch would make the final
// state depend on processing order, so it is rejected up front.
type DuplicateCellError struct {
	Key Key
}

func (e *DuplicateCellError) Error() string {
	return fmt.Sprintf("duplicate cell for employee %d on %s", e.Key.EmployeeID, e.Key.Date)
}

// UnknownEmployeeError is returned when a cell references an employee id
// that does not exist. The whole batch rolls back.
type UnknownEmployeeError struct {
	EmployeeID int64
}

func (e *UnknownEmployeeError) Error() string {
	return fmt.Sprintf("employee %d not found", e.EmployeeID)
}

// IsClientError reports whether the error is the caller's to fix.
func IsClientError(err error) bool {
	var dup *DuplicateCellError
	var unk *UnknownEmployeeError
	return errors.As(err, &dup) || errors.As(err, &unk) ||
		errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrInvalidState)
}
