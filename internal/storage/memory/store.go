// Package memory provides an in-memory DraftStore for tests and ephemeral
// deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nmorel/lexidraft/internal/storage"
)

// Store is an in-memory implementation of storage.DraftStore.
type Store struct {
	mu     sync.RWMutex
	drafts map[string]*storage.Draft
}

var _ storage.DraftStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		drafts: make(map[string]*storage.Draft),
	}
}

func (s *Store) SaveDraft(ctx context.Context, draft *storage.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *draft
	cp.State = append([]byte(nil), draft.State...)
	s.drafts[draft.ID] = &cp
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*storage.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *draft
	cp.State = append([]byte(nil), draft.State...)
	return &cp, nil
}

func (s *Store) ListDrafts(ctx context.Context, cabinetID string) ([]*storage.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drafts []*storage.Draft
	for _, draft := range s.drafts {
		if draft.CabinetID != cabinetID {
			continue
		}
		cp := *draft
		cp.State = append([]byte(nil), draft.State...)
		drafts = append(drafts, &cp)
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	return drafts, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, id)
	return nil
}

func (s *Store) Close() error {
	return nil
}
