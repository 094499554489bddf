/*
Package catalog holds the read-mostly reference data the reconciliation
core resolves against: products and employees.

Products are looked up, never mutated, by document and import operations.
The ProductIndex gives the import path an exact-match lookup keyed by
normalized display name; it is built from a single store read per request,
so imports never scan the product table row by row.
*/
package catalog

import (
	"strings"
	"time"
)

// Product is a catalog entry. Name and Code are unique across the catalog.
type Product struct {
	ID         int64
	Name       string
	Code       string
	CategoryID int64
	CreatedAt  time.Time
}

// Employee is referenced by attendance records and never mutated here.
type Employee struct {
	ID        int64
	Name      string
	Position  string
	CreatedAt time.Time
}

// NormalizeName canonicalizes a product display name for index lookups:
// surrounding whitespace dropped, inner runs of whitespace collapsed,
// upper-cased. Lookup is exact match after normalization; there is no
// similarity or typo correction.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// ProductIndex maps normalized product names to products.
type ProductIndex map[string]Product

// NewProductIndex builds an index over the given products. Later entries
// with the same normalized name win, though the store's unique constraint
// on product names makes collisions impossible in practice.
func NewProductIndex(products []Product) ProductIndex {
	idx := make(ProductIndex, len(products))
	for _, p := range products {
		idx[NormalizeName(p.Name)] = p
	}
	return idx
}

// Lookup resolves a raw display name against the index.
func (idx ProductIndex) Lookup(name string) (Product, bool) {
	p, ok := idx[NormalizeName(name)]
	return p, ok
}
