package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no employee matches the given code.
var ErrNotFound = errors.New("auth: employee not found")

// Employee is one staff account. PINs are stored as argon2id hashes.
type Employee struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PINHash   string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Store loads employee accounts.
type Store struct {
	Pool *pgxpool.Pool
}

// ByCode loads an active employee by login code.
func (s *Store) ByCode(ctx context.Context, code string) (Employee, error) {
	const q = `
SELECT id, code, name, role, pin_hash, active, created_at
FROM employees WHERE code = $1 AND active`
	var e Employee
	err := s.Pool.QueryRow(ctx, q, code).
		Scan(&e.ID, &e.Code, &e.Name, &e.Role, &e.PINHash, &e.Active, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// ByID loads an employee by primary key, active or not.
func (s *Store) ByID(ctx context.Context, id string) (Employee, error) {
	const q = `
SELECT id, code, name, role, pin_hash, active, created_at
FROM employees WHERE id = $1`
	var e Employee
	err := s.Pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Code, &e.Name, &e.Role, &e.PINHash, &e.Active, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}
