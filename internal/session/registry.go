package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nmorel/lexidraft/internal/contract"
	"github.com/nmorel/lexidraft/internal/pipeline"
	"github.com/nmorel/lexidraft/internal/storage"
)

// ErrForbidden is returned when a cabinet asks for a draft it does not own.
var ErrForbidden = fmt.Errorf("draft belongs to another cabinet")

const defaultCacheSize = 256

// Registry keeps recently active sessions in memory, LRU-evicted. Evicted
// drafts are not lost: every operation persists, so Get transparently reloads
// them from the store.
type Registry struct {
	store   storage.DraftStore
	service contract.DraftingService
	logger  *slog.Logger
	counter tokenCounter
	model   string

	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
}

type tokenCounter interface {
	Count(model, text string) (int, bool, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithTokenCounter enables local token counting for generated contracts.
func WithTokenCounter(counter tokenCounter, model string) RegistryOption {
	return func(r *Registry) {
		r.counter = counter
		r.model = model
	}
}

// NewRegistry creates a session registry over the given store and service.
func NewRegistry(store storage.DraftStore, service contract.DraftingService, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		store:   store,
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	cache, err := lru.New[string, *Session](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Create starts a new drafting session for a cabinet and persists its
// initial state.
func (r *Registry) Create(ctx context.Context, cabinetID, role, contractType, request string) (*Session, error) {
	machine := pipeline.New(contractType, request, r.service,
		pipeline.WithStore(r.store),
		pipeline.WithLogger(r.logger))

	s := r.wrap(cabinetID, role, machine)
	s.save(ctx)

	r.mu.Lock()
	r.cache.Add(s.ID(), s)
	r.mu.Unlock()

	r.logger.Info("drafting session created",
		slog.String("draft_id", s.ID()),
		slog.String("cabinet_id", cabinetID),
		slog.String("contract_type", contractType))
	return s, nil
}

// Get returns the live session for a draft, reloading it from the store when
// it has been evicted or the process restarted. Ownership is enforced here.
// Role is the drafting role to use on resume; it lives in cabinet
// configuration, not in the persisted state.
func (r *Registry) Get(ctx context.Context, cabinetID, role, id string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.cache.Get(id); ok {
		r.mu.Unlock()
		if s.CabinetID != cabinetID {
			return nil, ErrForbidden
		}
		return s, nil
	}
	r.mu.Unlock()

	draft, err := r.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.CabinetID != cabinetID {
		return nil, ErrForbidden
	}

	machine, err := pipeline.Load(ctx, r.store, id, r.service,
		pipeline.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	s := r.wrap(cabinetID, role, machine)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have loaded the same draft concurrently; keep the
	// first session so every caller shares one mutex.
	if existing, ok := r.cache.Get(id); ok {
		return existing, nil
	}
	r.cache.Add(id, s)
	return s, nil
}

// List returns the persisted drafts of a cabinet, most recent first.
func (r *Registry) List(ctx context.Context, cabinetID string) ([]*storage.Draft, error) {
	return r.store.ListDrafts(ctx, cabinetID)
}

// Delete removes a draft from the cache and the store.
func (r *Registry) Delete(ctx context.Context, cabinetID, id string) error {
	draft, err := r.store.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	if draft.CabinetID != cabinetID {
		return ErrForbidden
	}

	r.mu.Lock()
	r.cache.Remove(id)
	r.mu.Unlock()

	return r.store.DeleteDraft(ctx, id)
}

func (r *Registry) wrap(cabinetID, role string, machine *pipeline.Machine) *Session {
	s := newSession(cabinetID, role, machine, r.logger)
	s.counter = r.counter
	s.model = r.model
	return s
}
