package draft

import (
	"encoding/json"
	"errors"
	"time"
)

// Status tracks a draft through its editing lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusFinalized Status = "FINALIZED"
	StatusDiscarded Status = "DISCARDED"
)

var (
	// ErrNotFound indicates the draft does not exist.
	ErrNotFound = errors.New("draft: not found")
	// ErrAlreadyClaimed indicates another cashier holds the draft.
	ErrAlreadyClaimed = errors.New("draft: already claimed")
	// ErrNotClaimedByCaller indicates a mutation by someone other than the
	// claim holder.
	ErrNotClaimedByCaller = errors.New("draft: not claimed by caller")
	// ErrClosed indicates the draft was already finalized or discarded.
	ErrClosed = errors.New("draft: already closed")
)

// Draft is a saved, not yet checked out order. Payload holds the full
// checkout request so the editing client can restore it verbatim.
type Draft struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	Label     string          `json:"label,omitempty"`
	ClaimedBy string          `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time      `json:"claimed_at,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedBy string          `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
