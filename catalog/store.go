package catalog

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateProduct is returned when a product name or code is
	// already taken.
	ErrDuplicateProduct = errors.New("product name or code already exists")

	// ErrEmployeeNotFound is returned for an unknown employee id.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Store is the persistence surface for catalog reference data.
// Implemented by store/sqlite.
type Store interface {
	CreateProduct(ctx context.Context, p *Product) error
	ListProducts(ctx context.Context) ([]Product, error)

	CreateEmployee(ctx context.Context, e *Employee) error
	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
}
