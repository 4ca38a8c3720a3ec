// Package storage defines persistence for drafting-session snapshots.
// The pipeline state is stored opaquely: the store never interprets the
// snapshot beyond the columns needed for listings.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a draft id does not exist.
var ErrNotFound = errors.New("draft not found")

// Draft is one persisted drafting session. State is the serialized pipeline
// snapshot; Step and ContractType are denormalized for listings.
type Draft struct {
	ID           string    `db:"id"`
	CabinetID    string    `db:"cabinet_id"`
	ContractType string    `db:"contract_type"`
	Step         string    `db:"step"`
	State        []byte    `db:"state"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// DraftStore persists and retrieves drafting sessions.
type DraftStore interface {
	// SaveDraft inserts or replaces the draft snapshot.
	SaveDraft(ctx context.Context, draft *Draft) error

	// GetDraft returns the draft by id, or ErrNotFound.
	GetDraft(ctx context.Context, id string) (*Draft, error)

	// ListDrafts returns all drafts belonging to a cabinet, most recently
	// updated first.
	ListDrafts(ctx context.Context, cabinetID string) ([]*Draft, error)

	// DeleteDraft removes an abandoned draft. Deleting an unknown id is not
	// an error.
	DeleteDraft(ctx context.Context, id string) error

	// Close releases underlying resources.
	Close() error
}
