package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anta/backoffice/catalog"
)

// catalogStore implements catalog.Store. Catalog writes are single
// statements; no transaction view is needed.
type catalogStore struct {
	s *Store
}

func (c *catalogStore) CreateProduct(ctx context.Context, p *catalog.Product) error {
	now := time.Now().UTC()
	res, err := c.s.db.ExecContext(ctx, `
		INSERT INTO products (name, code, category_id, created_at)
		VALUES (?, ?, ?, ?)
	`, p.Name, p.Code, p.CategoryID, now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return catalog.ErrDuplicateProduct
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID, err = res.LastInsertId()
	p.CreatedAt = now
	return err
}

func (c *catalogStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := c.s.db.QueryContext(ctx,
		"SELECT id, name, code, category_id, created_at FROM products ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.CategoryID, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

func (c *catalogStore) CreateEmployee(ctx context.Context, e *catalog.Employee) error {
	now := time.Now().UTC()
	res, err := c.s.db.ExecContext(ctx, `
		INSERT INTO employees (name, position, created_at) VALUES (?, ?, ?)
	`, e.Name, e.Position, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	e.CreatedAt = now
	return err
}

func (c *catalogStore) ListEmployees(ctx context.Context) ([]catalog.Employee, error) {
	rows, err := c.s.db.QueryContext(ctx,
		"SELECT id, name, position, created_at FROM employees ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []catalog.Employee
	for rows.Next() {
		var e catalog.Employee
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (c *catalogStore) GetEmployee(ctx context.Context, id int64) (*catalog.Employee, error) {
	var e catalog.Employee
	var createdAt string
	err := c.s.db.QueryRowContext(ctx,
		"SELECT id, name, position, created_at FROM employees WHERE id = ?", id,
	).Scan(&e.ID, &e.Name, &e.Position, &createdAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}
