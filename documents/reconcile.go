/*
reconcile.go - Detail-set reconciliation

Computes the insert/update/delete plan that transforms a document's stored
detail lines into the incoming edited set. Pure: no store access, no side
effects. The service applies the plan inside one transaction together with
the total recomputation, so a partial failure leaves the document unchanged.

PARTITIONING:
  incoming with LineID   -> update candidates (must exist under the parent)
  incoming without       -> inserts
  existing not targeted  -> deletes (the caller dropped them from the form)

After applying the plan, the surviving detail set content-equals the
incoming set, with fresh identifiers for the inserts.
*/
package documents

// Plan is the outcome of reconciling existing lines against incoming ones.
type Plan struct {
	ToInsert []DetailLine
	ToUpdate []DetailLine
	ToDelete []DetailLine
}

// Reconcile computes the minimal operation sets for a document's details.
// An incoming LineID that is not among the existing lines yields a
// ReconciliationConflictError and no plan.
func Reconcile(documentID int64, existing []DetailLine, incoming []DetailInput) (Plan, error) {
	byID := make(map[int64]DetailLine, len(existing))
	for _, l := range existing {
		byID[l.ID] = l
	}

	var plan Plan
	kept := make(map[int64]bool, len(incoming))

	for _, in := range incoming {
		line := DetailLine{
			DocumentID: documentID,
			ProductID:  in.ProductID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			Subtotal:   in.Subtotal(),
			Brand:      in.Brand,
		}
		if in.LineID == 0 {
			plan.ToInsert = append(plan.ToInsert, line)
			continue
		}
		if _, ok := byID[in.LineID]; !ok {
			return Plan{}, &ReconciliationConflictError{DocumentID: documentID, LineID: in.LineID}
		}
		line.ID = in.LineID
		kept[in.LineID] = true
		plan.ToUpdate = append(plan.ToUpdate, line)
	}

	for _, l := range existing {
		if !kept[l.ID] {
			plan.ToDelete = append(plan.ToDelete, l)
		}
	}

	return plan, nil
}

// Survivors returns the detail set that will be stored once the plan is
// applied: updates plus inserts, in incoming order within each group.
func (p Plan) Survivors() []DetailLine {
	out := make([]DetailLine, 0, len(p.ToUpdate)+len(p.ToInsert))
	out = append(out, p.ToUpdate...)
	out = append(out, p.ToInsert...)
	return out
}
