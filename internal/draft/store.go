package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists drafts. Claims are conditional updates so two cashiers
// racing for the same draft resolve at the database, not in memory.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create inserts a new pending draft.
func (s *Store) Create(ctx context.Context, payload json.RawMessage, label, createdBy string) (Draft, error) {
	d := Draft{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Payload:   payload,
		Label:     label,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	d.UpdatedAt = d.CreatedAt
	const q = `
INSERT INTO drafts (id, status, payload, label, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.Pool.Exec(ctx, q, d.ID, string(d.Status), []byte(d.Payload), nullable(d.Label), nullable(d.CreatedBy), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return Draft{}, fmt.Errorf("insert draft: %w", err)
	}
	return d, nil
}

// Get loads one draft.
func (s *Store) Get(ctx context.Context, id string) (Draft, error) {
	const q = `
SELECT id, status, payload, label, claimed_by, claimed_at, expires_at, created_by, created_at, updated_at
FROM drafts WHERE id = $1`
	d, err := scanDraft(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Draft{}, ErrNotFound
		}
		return Draft{}, err
	}
	return d, nil
}

// List returns drafts that are still editable, oldest first.
func (s *Store) List(ctx context.Context) ([]Draft, error) {
	const q = `
SELECT id, status, payload, label, claimed_by, claimed_at, expires_at, created_by, created_at, updated_at
FROM drafts WHERE status IN ('PENDING','ACTIVE') ORDER BY created_at`
	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Claim atomically takes a pending draft for the given cashier. Losing the
// race returns ErrAlreadyClaimed.
func (s *Store) Claim(ctx context.Context, id, cashier string, ttl time.Duration) (Draft, error) {
	now := s.now()
	expires := now.Add(ttl)
	const q = `
UPDATE drafts
SET status = 'ACTIVE', claimed_by = $2, claimed_at = $3, expires_at = $4, updated_at = $3
WHERE id = $1 AND status = 'PENDING'`
	tag, err := s.Pool.Exec(ctx, q, id, cashier, now, expires)
	if err != nil {
		return Draft{}, err
	}
	if tag.RowsAffected() == 0 {
		d, err := s.Get(ctx, id)
		if err != nil {
			return Draft{}, err
		}
		if d.Status == StatusActive {
			return Draft{}, fmt.Errorf("held by %s: %w", d.ClaimedBy, ErrAlreadyClaimed)
		}
		return Draft{}, ErrClosed
	}
	return s.Get(ctx, id)
}

// Release reopens a claimed draft. When force is false the release only
// applies if the claim has expired; holders release their own claim with
// force set.
func (s *Store) Release(ctx context.Context, id string, force bool) (bool, error) {
	now := s.now()
	const q = `
UPDATE drafts
SET status = 'PENDING', claimed_by = NULL, claimed_at = NULL, expires_at = NULL, updated_at = $2
WHERE id = $1 AND status = 'ACTIVE' AND ($3::bool OR expires_at <= $2)`
	tag, err := s.Pool.Exec(ctx, q, id, now, force)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Close marks a draft finalized or discarded.
func (s *Store) Close(ctx context.Context, id string, status Status) error {
	const q = `
UPDATE drafts SET status = $2, updated_at = $3
WHERE id = $1 AND status IN ('PENDING','ACTIVE')`
	tag, err := s.Pool.Exec(ctx, q, id, string(status), s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClosed
	}
	return nil
}

func scanDraft(row pgx.Row) (Draft, error) {
	var (
		d         Draft
		status    string
		payload   []byte
		label     pgtype.Text
		claimedBy pgtype.Text
		claimedAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
		createdBy pgtype.Text
	)
	if err := row.Scan(&d.ID, &status, &payload, &label, &claimedBy, &claimedAt, &expiresAt, &createdBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Draft{}, err
	}
	d.Status = Status(status)
	d.Payload = payload
	d.Label = label.String
	d.ClaimedBy = claimedBy.String
	d.CreatedBy = createdBy.String
	if claimedAt.Valid {
		t := claimedAt.Time
		d.ClaimedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		d.ExpiresAt = &t
	}
	return d, nil
}

func nullable(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
