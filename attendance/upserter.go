package attendance

import "context"

// Store is the persistence surface the upserter needs. Implemented by
// store/sqlite. InTx executes fn against a transaction-scoped Store.
type Store interface {
	// InTx executes fn within one transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// ExistingRecords bulk-loads the stored records for the given keys.
	ExistingRecords(ctx context.Context, keys []Key) (map[Key]Record, error)

	InsertRecord(ctx context.Context, rec Record) error
	UpdateRecord(ctx context.Context, rec Record) error

	// MissingEmployees returns which of the given employee ids do not exist.
	MissingEmployees(ctx context.Context, ids []int64) ([]int64, error)
}

// Upserter applies attendance batches atomically.
type Upserter struct {
	store Store
}

// NewUpserter creates an upserter over the given store.
func NewUpserter(store Store) *Upserter {
	return &Upserter{store: store}
}

// Apply creates-or-updates every cell in one transaction and reports how
// many records were created versus updated. Any failure rolls back the
// whole batch; callers must not assume per-cell independence.
func (u *Upserter) Apply(ctx context.Context, cells []Cell) (Result, error) {
	if len(cells) == 0 {
		return Result{}, ErrEmptyBatch
	}

	// Reject intra-batch duplicate keys before touching the store.
	seen := make(map[Key]bool, len(cells))
	keys := make([]Key, 0, len(cells))
	employeeSet := make(map[int64]bool)
	for _, c := range cells {
		if _, err := ParseState(string(c.State)); err != nil {
			return Result{}, err
		}
		k := c.KeyOf()
		if seen[k] {
			return Result{}, &DuplicateCellError{Key: k}
		}
		seen[k] = true
		keys = append(keys, k)
		employeeSet[c.EmployeeID] = true
	}

	var result Result
	err := u.store.InTx(ctx, func(tx Store) error {
		employeeIDs := make([]int64, 0, len(employeeSet))
		for id := range employeeSet {
			employeeIDs = append(employeeIDs, id)
		}
		missing, err := tx.MissingEmployees(ctx, employeeIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &UnknownEmployeeError{EmployeeID: missing[0]}
		}

		existing, err := tx.ExistingRecords(ctx, keys)
		if err != nil {
			return err
		}

		for _, c := range cells {
			rec := Record{
				EmployeeID: c.EmployeeID,
				Date:       c.Date,
				State:      c.State,
				Note:       c.Note,
			}
			if _, ok := existing[c.KeyOf()]; ok {
				// Last write wins, even when the stored state differs
				// from what the client believed it was overwriting.
				if err := tx.UpdateRecord(ctx, rec); err != nil {
					return err
				}
				result.Updated++
			} else {
				if err := tx.InsertRecord(ctx, rec); err != nil {
					return err
				}
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
