package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested catalog row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrDuplicate indicates a unique constraint violation on insert.
var ErrDuplicate = errors.New("catalog: duplicate entry")

const uniqueViolation = "23505"

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrDuplicate)
	}
	return err
}

// Store persists products and finishing options.
type Store struct {
	Pool *pgxpool.Pool
}

// CreateProduct inserts a new product with its rules payload.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	rules, err := json.Marshal(p.Rules)
	if err != nil {
		return Product{}, fmt.Errorf("encode pricing rules: %w", err)
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Active = true
	const q = `
INSERT INTO products (id, name, category, unit, rules, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = s.Pool.Exec(ctx, q, p.ID, p.Name, nullable(p.Category), nullable(p.Unit), rules, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", mapPgError(err))
	}
	return p, nil
}

// UpdateProduct replaces the mutable fields of a product.
func (s *Store) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	rules, err := json.Marshal(p.Rules)
	if err != nil {
		return Product{}, fmt.Errorf("encode pricing rules: %w", err)
	}
	p.UpdatedAt = time.Now()
	const q = `
UPDATE products SET name = $2, category = $3, unit = $4, rules = $5, active = $6, updated_at = $7
WHERE id = $1`
	tag, err := s.Pool.Exec(ctx, q, p.ID, p.Name, nullable(p.Category), nullable(p.Unit), rules, p.Active, p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// GetProduct loads one product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	const q = `
SELECT id, name, category, unit, rules, active, created_at, updated_at
FROM products WHERE id = $1`
	p, err := scanProduct(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListProducts returns active products, optionally filtered by category.
func (s *Store) ListProducts(ctx context.Context, category string, includeInactive bool) ([]Product, error) {
	const q = `
SELECT id, name, category, unit, rules, active, created_at, updated_at
FROM products
WHERE ($1::text IS NULL OR category = $1)
  AND ($2::bool OR active)
ORDER BY name`
	var filter *string
	if category != "" {
		filter = &category
	}
	rows, err := s.Pool.Query(ctx, q, filter, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetFinishing loads one finishing option by id.
func (s *Store) GetFinishing(ctx context.Context, id string) (Finishing, error) {
	const q = `
SELECT id, name, category, price, per_unit, min_qty, active
FROM finishing_options WHERE id = $1`
	f, err := scanFinishing(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Finishing{}, ErrNotFound
		}
		return Finishing{}, err
	}
	return f, nil
}

// ListFinishings returns all active finishing options.
func (s *Store) ListFinishings(ctx context.Context) ([]Finishing, error) {
	const q = `
SELECT id, name, category, price, per_unit, min_qty, active
FROM finishing_options WHERE active ORDER BY name`
	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Finishing
	for rows.Next() {
		f, err := scanFinishing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateFinishing inserts a finishing option.
func (s *Store) CreateFinishing(ctx context.Context, f Finishing) (Finishing, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Active = true
	const q = `
INSERT INTO finishing_options (id, name, category, price, per_unit, min_qty, active)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.Pool.Exec(ctx, q, f.ID, f.Name, nullable(f.Category), f.Price, f.PerUnit, f.MinQty, f.Active)
	if err != nil {
		return Finishing{}, fmt.Errorf("insert finishing: %w", mapPgError(err))
	}
	return f, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		category pgtype.Text
		unit     pgtype.Text
		rules    []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &category, &unit, &rules, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	p.Category = category.String
	p.Unit = unit.String
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &p.Rules); err != nil {
			return Product{}, fmt.Errorf("decode pricing rules for %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func scanFinishing(row pgx.Row) (Finishing, error) {
	var (
		f        Finishing
		category pgtype.Text
	)
	if err := row.Scan(&f.ID, &f.Name, &category, &f.Price, &f.PerUnit, &f.MinQty, &f.Active); err != nil {
		return Finishing{}, err
	}
	f.Category = category.String
	return f, nil
}

func nullable(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
