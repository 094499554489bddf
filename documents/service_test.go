package documents_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anta/backoffice/catalog"
	"github.com/anta/backoffice/documents"
	"github.com/anta/backoffice/sequence"
	"github.com/anta/backoffice/store/sqlite"
)

func newTestService(t *testing.T) (*documents.Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { store.Close() })

	// A small catalog for detail lines to reference.
	ctx := context.Background()
	for i, name := range []string{"Cemento Sol x 42.5 kg", "Arena Gruesa", "Fierro 1/2\""} {
		p := catalog.Product{Name: name, Code: fmt.Sprintf("P-%03d", i+1)}
		require.NoError(t, store.Catalog().CreateProduct(ctx, &p))
	}

	return documents.NewService(store.Documents(), nil), store
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreate_AllocatesConsecutiveNumbers(t *testing.T) {
	// GIVEN: an empty quotation series
	svc, _ := newTestService(t)
	ctx := context.Background()

	// WHEN: two quotations are created
	for i, want := range []string{"COT-ANTA-000001", "COT-ANTA-000002"} {
		doc, _, err := svc.Create(ctx, documents.NewDocument{
			Type:   documents.TypeQuotation,
			Client: fmt.Sprintf("Cliente %d", i+1),
			Details: []documents.DetailInput{
				{ProductID: 1, Quantity: 1, UnitPrice: price("10")},
			},
		})
		require.NoError(t, err)

		// THEN: numbers come out consecutive and zero-padded
		assert.Equal(t, want, doc.Number)
	}
}

func TestCreate_SeriesAreIndependent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	details := []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}}

	q, _, err := svc.Create(ctx, documents.NewDocument{Type: documents.TypeQuotation, Client: "A", Details: details})
	require.NoError(t, err)
	po, _, err := svc.Create(ctx, documents.NewDocument{Type: documents.TypePurchaseOrder, Client: "B", Details: details})
	require.NoError(t, err)

	assert.Equal(t, "COT-ANTA-000001", q.Number)
	assert.Equal(t, "OC-ANTA-000001", po.Number)
}

func TestCreate_SkipsPastLegacyNumbers(t *testing.T) {
	// GIVEN: legacy rows occupying the first two numbers of the series,
	// written by the old system without touching the counter
	svc, store := newTestService(t)
	ctx := context.Background()
	for _, number := range []string{"COT-ANTA-000001", "COT-ANTA-000002"} {
		legacy := documents.Document{
			Type:   documents.TypeQuotation,
			Number: number,
			Client: "Cliente Legado",
		}
		require.NoError(t, store.Documents().InsertDocument(ctx, &legacy))
	}

	// WHEN: a document is created through the service
	doc, _, err := svc.Create(ctx, documents.NewDocument{
		Type:   documents.TypeQuotation,
		Client: "Cliente Nuevo",
		Details: []documents.DetailInput{
			{ProductID: 1, Quantity: 1, UnitPrice: price("10")},
		},
	})

	// THEN: allocation walks past the occupied numbers instead of
	// colliding forever
	require.NoError(t, err)
	assert.Equal(t, "COT-ANTA-000003", doc.Number)

	// AND: the counter stays ahead afterwards
	next, _, err := svc.Create(ctx, documents.NewDocument{
		Type:   documents.TypeQuotation,
		Client: "Cliente Nuevo",
		Details: []documents.DetailInput{
			{ProductID: 1, Quantity: 1, UnitPrice: price("10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "COT-ANTA-000004", next.Number)
}

func TestCreate_TotalEqualsSumOfSubtotals(t *testing.T) {
	// GIVEN: lines whose subtotals are exact decimals
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, lines, err := svc.Create(ctx, documents.NewDocument{
		Type:   documents.TypeQuotation,
		Client: "Constructora Andina",
		Details: []documents.DetailInput{
			{ProductID: 1, Quantity: 30, UnitPrice: price("47.50")}, // 1425.00
			{ProductID: 2, Quantity: 3, UnitPrice: price("19.90")},  // 59.70
		},
	})
	require.NoError(t, err)

	// THEN: the stored total is the exact decimal sum
	assert.True(t, doc.Total.Equal(price("1484.70")), "Total = %s", doc.Total)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Subtotal.Equal(price("1425.00")))
	assert.True(t, lines[1].Subtotal.Equal(price("59.70")))
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input documents.NewDocument
	}{
		{
			name:  "missing client",
			input: documents.NewDocument{Type: documents.TypeQuotation, Details: []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}}},
		},
		{
			name:  "no detail lines",
			input: documents.NewDocument{Type: documents.TypeQuotation, Client: "A"},
		},
		{
			name:  "zero quantity",
			input: documents.NewDocument{Type: documents.TypeQuotation, Client: "A", Details: []documents.DetailInput{{ProductID: 1, Quantity: 0, UnitPrice: price("10")}}},
		},
		{
			name:  "negative price",
			input: documents.NewDocument{Type: documents.TypeQuotation, Client: "A", Details: []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("-1")}}},
		},
		{
			name:  "unknown product",
			input: documents.NewDocument{Type: documents.TypeQuotation, Client: "A", Details: []documents.DetailInput{{ProductID: 999, Quantity: 1, UnitPrice: price("10")}}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, c.input)
			require.Error(t, err)
			assert.True(t, documents.IsClientError(err), "want client error, got %v", err)
		})
	}

	// AND: nothing was persisted, the next successful create is 000001
	doc, _, err := svc.Create(ctx, documents.NewDocument{
		Type:    documents.TypeQuotation,
		Client:  "A",
		Details: []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "COT-ANTA-000001", doc.Number)
}

func TestCreate_ConcurrentCreatorsGetDistinctNumbers(t *testing.T) {
	// GIVEN: many goroutines creating quotations at once
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 20
	numbers := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, _, err := svc.Create(ctx, documents.NewDocument{
				Type:    documents.TypeQuotation,
				Client:  fmt.Sprintf("Cliente %d", i),
				Details: []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
			})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = doc.Number
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "creator %d failed", i)
	}

	// THEN: every creator got a distinct number and the set is exactly
	// 000001..0000NN with no gaps
	sort.Strings(numbers)
	for i, number := range numbers {
		assert.Equal(t, sequence.Format(sequence.Quotations, int64(i+1)), number)
	}
}

func TestUpdate_ReconcilesDetailSet(t *testing.T) {
	// GIVEN: a stored quotation with two lines
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, lines, err := svc.Create(ctx, documents.NewDocument{
		Type:   documents.TypeQuotation,
		Client: "Cliente Original",
		Details: []documents.DetailInput{
			{ProductID: 1, Quantity: 2, UnitPrice: price("50")},
			{ProductID: 2, Quantity: 1, UnitPrice: price("120")},
		},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// WHEN: the edit keeps the first line with a new quantity, drops the
	// second, and adds a third product
	updated, newLines, err := svc.Update(ctx, doc.ID, documents.UpdateDocument{
		Client:      "Cliente Renombrado",
		Description: "revisado",
		Details: []documents.DetailInput{
			{LineID: lines[0].ID, ProductID: 1, Quantity: 5, UnitPrice: price("50")},
			{ProductID: 3, Quantity: 2, UnitPrice: price("8.50")},
		},
	})
	require.NoError(t, err)

	// THEN: header, surviving set, and total all reflect the edit
	assert.Equal(t, "Cliente Renombrado", updated.Client)
	assert.Equal(t, doc.Number, updated.Number, "number must never change on update")
	require.Len(t, newLines, 2)
	assert.True(t, updated.Total.Equal(price("267.00")), "Total = %s", updated.Total)

	// AND: the kept line retained its identifier
	ids := map[int64]bool{newLines[0].ID: true, newLines[1].ID: true}
	assert.True(t, ids[lines[0].ID], "kept line lost its id")
	assert.False(t, ids[lines[1].ID], "dropped line survived")

	// AND: the change is visible on re-read
	reread, rereadLines, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cliente Renombrado", reread.Client)
	assert.Len(t, rereadLines, 2)
}

func TestUpdate_StaleLineRollsBackEverything(t *testing.T) {
	// GIVEN: a stored quotation
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, _, err := svc.Create(ctx, documents.NewDocument{
		Type:    documents.TypeQuotation,
		Client:  "Cliente",
		Details: []documents.DetailInput{{ProductID: 1, Quantity: 2, UnitPrice: price("50")}},
	})
	require.NoError(t, err)

	// WHEN: the edit targets a detail line id that does not exist
	_, _, err = svc.Update(ctx, doc.ID, documents.UpdateDocument{
		Client: "Otro Cliente",
		Details: []documents.DetailInput{
			{LineID: 9999, ProductID: 1, Quantity: 1, UnitPrice: price("50")},
		},
	})

	// THEN: the update fails as a conflict and nothing changed
	var conflict *documents.ReconciliationConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, documents.IsConflict(err))

	reread, lines, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cliente", reread.Client)
	assert.Len(t, lines, 1)
	assert.True(t, reread.Total.Equal(price("100")))
}

func TestUpdate_MissingDocument(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Update(context.Background(), 404, documents.UpdateDocument{
		Client:  "Nadie",
		Details: []documents.DetailInput{{ProductID: 1, Quantity: 1, UnitPrice: price("10")}},
	})
	assert.True(t, errors.Is(err, documents.ErrNotFound), "err = %v", err)
}

func TestDelete_CascadesToDetails(t *testing.T) {
	// GIVEN: a stored quotation with lines
	svc, store := newTestService(t)
	ctx := context.Background()

	doc, _, err := svc.Create(ctx, documents.NewDocument{
		Type:   documents.TypeQuotation,
		Client: "Cliente",
		Details: []documents.DetailInput{
			{ProductID: 1, Quantity: 2, UnitPrice: price("50")},
			{ProductID: 2, Quantity: 1, UnitPrice: price("120")},
		},
	})
	require.NoError(t, err)

	// WHEN: it is deleted
	require.NoError(t, svc.Delete(ctx, doc.ID))

	// THEN: document and details are both gone
	_, _, err = svc.Get(ctx, doc.ID)
	assert.True(t, errors.Is(err, documents.ErrNotFound))

	lines, err := store.Documents().GetDetails(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// AND: deleting again reports not found
	assert.True(t, errors.Is(svc.Delete(ctx, doc.ID), documents.ErrNotFound))
}
