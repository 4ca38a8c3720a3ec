// Package session manages live drafting sessions: one pipeline machine per
// draft, serialized access, persistence after every operation and snapshot
// fan-out to watchers.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nmorel/lexidraft/internal/contract"
	"github.com/nmorel/lexidraft/internal/pipeline"
)

// Session wraps a machine with the serialization the pipeline requires.
// All operations hold the session mutex, so concurrent requests against the
// same draft execute one at a time.
type Session struct {
	CabinetID string
	Role      string

	mu      sync.Mutex
	machine *pipeline.Machine
	logger  *slog.Logger
	counter tokenCounter
	model   string

	subMu sync.Mutex
	subs  map[chan *pipeline.State]struct{}
}

func newSession(cabinetID, role string, machine *pipeline.Machine, logger *slog.Logger) *Session {
	s := &Session{
		CabinetID: cabinetID,
		Role:      role,
		machine:   machine,
		logger:    logger,
		subs:      make(map[chan *pipeline.State]struct{}),
	}
	machine.SetObserver(s.broadcast)
	return s
}

// ID returns the draft id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot().ID
}

// Snapshot returns a copy of the current pipeline state.
func (s *Session) Snapshot() *pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// Subscribe registers a watcher. The returned channel receives a snapshot
// after every mutation; slow watchers miss intermediate snapshots instead of
// blocking the pipeline. The cancel function must be called when done.
func (s *Session) Subscribe() (<-chan *pipeline.State, func()) {
	ch := make(chan *pipeline.State, 8)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcast(state *pipeline.State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// Clarify runs the clarification stage and persists the result.
func (s *Session) Clarify(ctx context.Context) (*pipeline.ClarifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.machine.Clarify(ctx, s.Role)
	if err != nil {
		return nil, err
	}
	s.save(ctx)
	return result, nil
}

// SubmitAnswers merges client answers and persists the result.
func (s *Session) SubmitAnswers(ctx context.Context, answers map[string]string) (*pipeline.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.SubmitClientAnswers(ctx, answers, s.Role); err != nil {
		return nil, err
	}
	s.save(ctx)
	return s.machine.Snapshot(), nil
}

// GenerateSchema runs schema generation and persists the result.
func (s *Session) GenerateSchema(ctx context.Context) (*contract.FormSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, err := s.machine.GenerateFormSchema(ctx, s.Role)
	if err != nil {
		return nil, err
	}
	s.save(ctx)
	return schema, nil
}

// Audit runs the bounded audit loop and persists the result.
func (s *Session) Audit(ctx context.Context) (*pipeline.AuditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.machine.AuditFormSchema(ctx, s.Role)
	if err != nil {
		return nil, err
	}
	s.save(ctx)
	return result, nil
}

// Validate checks form data against the schema and persists the result.
func (s *Session) Validate(ctx context.Context, formData map[string]any) (*contract.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.machine.ValidateFormData(formData)
	if err != nil {
		return nil, err
	}
	s.save(ctx)
	return result, nil
}

// Finalize generates the contract and persists the terminal state.
func (s *Session) Finalize(ctx context.Context, formData, clientInfo map[string]any, attachments []contract.Attachment) (*pipeline.FinalContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	final, err := s.machine.GenerateFinalContract(ctx, formData, clientInfo, attachments)
	if err != nil {
		return nil, err
	}

	// The assistant usually reports usage; count locally when it does not.
	if final.Metadata.Tokens == nil && s.counter != nil {
		if count, _, err := s.counter.Count(s.model, final.Contract); err == nil {
			final.Metadata.Tokens = &contract.TokenUsage{OutputTokens: count}
		}
	}

	s.save(ctx)
	return final, nil
}

// save persists the current state. Persistence failures are logged, not
// returned: the in-memory session stays authoritative and the next operation
// retries the write.
func (s *Session) save(ctx context.Context) {
	if _, err := s.machine.SaveState(ctx, s.CabinetID); err != nil {
		s.logger.Error("failed to persist draft",
			slog.String("cabinet_id", s.CabinetID),
			slog.String("error", err.Error()))
	}
}
