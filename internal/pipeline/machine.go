// Package pipeline implements the contract-drafting state machine: a bounded
// sequence of external reasoning calls interleaved with deterministic
// validation, from free-text request to generated contract.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nmorel/lexidraft/internal/contract"
	"github.com/nmorel/lexidraft/internal/storage"
	"github.com/nmorel/lexidraft/internal/validation"
)

// MaxAuditIterations bounds the internal audit-correction loop. Reaching the
// bound with issues remaining is a warning, not a failure: a form with known
// residual issues beats a pipeline that never completes.
const MaxAuditIterations = 3

// ObserverFunc receives an immutable snapshot of the whole state after every
// mutating operation. It is invoked synchronously, exactly once per mutation.
type ObserverFunc func(*State)

// Machine owns one State and advances it through the drafting stages.
// Operations must not be invoked concurrently against the same Machine;
// callers serialize (see session package).
type Machine struct {
	state   *State
	service contract.DraftingService
	store   storage.DraftStore
	logger  *slog.Logger

	onStateChange ObserverFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithStore enables SaveState.
func WithStore(store storage.DraftStore) Option {
	return func(m *Machine) { m.store = store }
}

// WithObserver registers the state-change callback.
func WithObserver(fn ObserverFunc) Option {
	return func(m *Machine) { m.onStateChange = fn }
}

// New creates a machine for a fresh drafting session.
func New(contractType, originalRequest string, service contract.DraftingService, opts ...Option) *Machine {
	now := time.Now().UTC()
	m := &Machine{
		state: &State{
			ID:              uuid.New().String(),
			Step:            contract.StepClarification,
			ContractType:    contractType,
			OriginalRequest: originalRequest,
			ClientAnswers:   make(map[string]string),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetObserver replaces the state-change callback. Intended for rebinding a
// loaded machine; it does not fire.
func (m *Machine) SetObserver(fn ObserverFunc) {
	m.onStateChange = fn
}

// Snapshot returns an immutable copy of the current state.
func (m *Machine) Snapshot() *State {
	return m.state.Clone()
}

// commit finalizes a mutating operation: it stamps UpdatedAt, appends the
// single history entry for the action and notifies the observer.
func (m *Machine) commit(action string, data map[string]any) {
	now := time.Now().UTC()
	m.state.UpdatedAt = now
	m.state.History = append(m.state.History, HistoryEntry{
		Step:      m.state.Step,
		Timestamp: now,
		Action:    action,
		Data:      data,
	})
	if m.onStateChange != nil {
		m.onStateChange(m.state.Clone())
	}
}

// ClarifyResult is the caller-facing outcome of the clarification stage.
type ClarifyResult struct {
	Brief         *contract.Brief     `json:"brief"`
	NeedsMoreInfo bool                `json:"needs_more_info"`
	Questions     []contract.Question `json:"questions,omitempty"`
}

// Clarify runs the clarification capability over the original request plus
// any answers accumulated so far. When the response still needs information
// it parks the machine on missing_info_questions; otherwise it moves straight
// to form_schema. On external failure the state is left untouched.
func (m *Machine) Clarify(ctx context.Context, role string) (*ClarifyResult, error) {
	req := &contract.ClarifyRequest{
		ContractType: m.state.ContractType,
		Description:  m.state.OriginalRequest,
		Role:         role,
	}
	if len(m.state.ClientAnswers) > 0 {
		req.ExistingAnswers = cloneStringMap(m.state.ClientAnswers)
	}

	resp, err := m.service.Clarify(ctx, req)
	if err != nil {
		perr := contract.NewPipelineError(contract.StageClarify, err)
		m.logger.Error("clarification failed",
			slog.String("draft_id", m.state.ID),
			slog.String("contract_type", m.state.ContractType),
			slog.String("error", err.Error()))
		return nil, perr
	}

	m.state.Brief = resp.Brief
	needsMore := resp.NeedsMoreInfo && len(resp.Questions) > 0
	if needsMore {
		m.state.Step = contract.StepMissingInfoQuestions
		m.state.Questions = resp.Questions
	} else {
		m.state.Step = contract.StepFormSchema
		m.state.Questions = nil
	}
	m.commit("clarify", map[string]any{
		"needs_more_info": needsMore,
		"questions":       len(resp.Questions),
	})

	return &ClarifyResult{
		Brief:         m.state.Brief,
		NeedsMoreInfo: needsMore,
		Questions:     resp.Questions,
	}, nil
}

// SubmitClientAnswers merges answers into the brief and closes the matching
// gaps; presence in the merged ProvidedInfo is the authoritative "gap closed"
// rule. If a bloquant gap remains it re-runs Clarify with the accumulated
// answers to regenerate the question set, converging over multiple rounds.
func (m *Machine) SubmitClientAnswers(ctx context.Context, answers map[string]string, role string) error {
	if m.state.Brief == nil {
		return contract.ErrBriefMissing
	}

	if m.state.ClientAnswers == nil {
		m.state.ClientAnswers = make(map[string]string)
	}
	if m.state.Brief.ProvidedInfo == nil {
		m.state.Brief.ProvidedInfo = make(map[string]string)
	}
	for field, value := range answers {
		m.state.ClientAnswers[field] = value
		m.state.Brief.ProvidedInfo[field] = value
	}

	remaining := m.state.Brief.MissingInfo[:0]
	for _, mi := range m.state.Brief.MissingInfo {
		if _, answered := m.state.Brief.ProvidedInfo[mi.Field]; !answered {
			remaining = append(remaining, mi)
		}
	}
	m.state.Brief.MissingInfo = remaining

	if m.state.Brief.HasBlocking() {
		m.commit("submit_client_answers", map[string]any{
			"answers":       len(answers),
			"blocking_gaps": true,
		})
		_, err := m.Clarify(ctx, role)
		return err
	}

	m.state.Step = contract.StepFormSchema
	m.state.Questions = nil
	m.commit("submit_client_answers", map[string]any{
		"answers":       len(answers),
		"blocking_gaps": false,
	})
	return nil
}

// GenerateFormSchema asks the schema capability for a fillable form, feeding
// it the original request enriched with everything the brief collected.
func (m *Machine) GenerateFormSchema(ctx context.Context, role string) (*contract.FormSchema, error) {
	if m.state.Brief == nil {
		return nil, contract.ErrBriefMissing
	}

	resp, err := m.service.GenerateSchema(ctx, &contract.SchemaRequest{
		ContractType: m.state.ContractType,
		Description:  enrichedDescription(m.state.OriginalRequest, m.state.Brief),
		Role:         role,
		Brief:        m.state.Brief,
	})
	if err != nil {
		perr := contract.NewPipelineError(contract.StageSchema, err)
		m.logger.Error("schema generation failed",
			slog.String("draft_id", m.state.ID),
			slog.String("error", err.Error()))
		return nil, perr
	}
	if resp == nil || resp.Schema == nil {
		return nil, contract.ErrInvalidSchema
	}

	m.state.FormSchema = resp.Schema
	m.state.Step = contract.StepAudit
	m.commit("generate_form_schema", map[string]any{
		"fields": len(resp.Schema.Fields),
		"rules":  len(resp.Schema.ValidationRules),
	})
	return m.state.FormSchema, nil
}

// AuditResult is the caller-facing outcome of the audit stage. ShouldRetry is
// always false: correction retries are fully internal to the machine and the
// caller never drives the loop.
type AuditResult struct {
	Report      *contract.AuditReport `json:"report"`
	ShouldRetry bool                  `json:"should_retry"`
}

// AuditFormSchema reviews the generated schema against the brief, adopting
// any corrected schema the audit supplies and re-auditing until the report is
// clean or MaxAuditIterations is reached. The bound is loop state, not call
// depth, so termination is independent of the stack. In every terminal case
// the machine proceeds to form_filling.
func (m *Machine) AuditFormSchema(ctx context.Context, role string) (*AuditResult, error) {
	if m.state.FormSchema == nil {
		return nil, contract.ErrSchemaMissing
	}
	if m.state.Brief == nil {
		return nil, contract.ErrBriefMissing
	}

	for {
		resp, err := m.service.AuditSchema(ctx, &contract.AuditRequest{
			Schema:       m.state.FormSchema,
			Brief:        m.state.Brief,
			ContractType: m.state.ContractType,
			Role:         role,
		})
		if err != nil {
			perr := contract.NewPipelineError(contract.StageAudit, err)
			m.logger.Error("schema audit failed",
				slog.String("draft_id", m.state.ID),
				slog.Int("iteration", m.state.AuditIterations),
				slog.String("error", err.Error()))
			return nil, perr
		}
		if resp == nil || resp.Report == nil {
			return nil, contract.ErrInvalidAudit
		}
		report := resp.Report

		m.state.AuditIterations++
		m.state.AuditReport = report
		// A corrected schema is adopted even on the final bounded pass.
		if report.CorrectedSchema != nil {
			m.state.FormSchema = report.CorrectedSchema
		}

		if report.ShouldRetry && report.CorrectedSchema != nil && m.state.AuditIterations < MaxAuditIterations {
			m.commit("audit_form_schema", map[string]any{
				"iteration": m.state.AuditIterations,
				"issues":    len(report.Issues),
				"retried":   true,
			})
			continue
		}

		if report.ShouldRetry && m.state.AuditIterations >= MaxAuditIterations {
			m.logger.Warn("audit iteration bound reached, proceeding with residual issues",
				slog.String("draft_id", m.state.ID),
				slog.Int("iterations", m.state.AuditIterations),
				slog.Int("issues", len(report.Issues)))
		}

		m.state.Step = contract.StepFormFilling
		m.commit("audit_form_schema", map[string]any{
			"iteration": m.state.AuditIterations,
			"issues":    len(report.Issues),
			"retried":   false,
		})
		return &AuditResult{Report: report, ShouldRetry: false}, nil
	}
}

// ValidateFormData runs the deterministic validation engine over user input.
// Valid data advances to final_validation; invalid data reverts to
// form_filling, the only backward transition in the machine, so repeated
// invalid submissions never disturb AuditIterations or re-trigger AI calls.
func (m *Machine) ValidateFormData(formData map[string]any) (*contract.ValidationResult, error) {
	if m.state.FormSchema == nil {
		return nil, contract.ErrSchemaMissing
	}

	result := validation.Validate(formData, m.state.FormSchema)
	m.state.FormData = cloneAnyMap(formData)
	m.state.ValidationResult = result
	if result.IsValid {
		m.state.Step = contract.StepFinalValidation
	} else {
		m.state.Step = contract.StepFormFilling
	}
	m.commit("validate_form_data", map[string]any{
		"is_valid": result.IsValid,
		"errors":   len(result.Errors),
	})
	return result, nil
}

// ContractMetadata describes a generated contract.
type ContractMetadata struct {
	ContractType string               `json:"contract_type"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Tokens       *contract.TokenUsage `json:"tokens,omitempty"`
}

// FinalContract is the product of the last pipeline stage.
type FinalContract struct {
	Contract string           `json:"contract"`
	Metadata ContractMetadata `json:"metadata"`
}

// GenerateFinalContract re-validates formData (a stale IsValid flag is never
// trusted), then calls the document capability and finishes the pipeline.
func (m *Machine) GenerateFinalContract(ctx context.Context, formData map[string]any, clientInfo map[string]any, attachments []contract.Attachment) (*FinalContract, error) {
	result, err := m.ValidateFormData(formData)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, fmt.Errorf("%w: %d erreur(s) de validation", contract.ErrInvalidData, len(result.Errors))
	}

	resp, err := m.service.GenerateDocument(ctx, &contract.DocumentRequest{
		ContractType: m.state.ContractType,
		FormData:     formData,
		ClientInfo:   clientInfo,
		Attachments:  attachments,
	})
	if err != nil {
		perr := contract.NewPipelineError(contract.StageDocument, err)
		m.logger.Error("contract generation failed",
			slog.String("draft_id", m.state.ID),
			slog.String("error", err.Error()))
		return nil, perr
	}

	m.state.Step = contract.StepContractGeneration
	m.commit("generate_final_contract", map[string]any{
		"contract_length": len(resp.Contract),
		"attachments":     len(attachments),
	})

	return &FinalContract{
		Contract: resp.Contract,
		Metadata: ContractMetadata{
			ContractType: m.state.ContractType,
			GeneratedAt:  m.state.UpdatedAt,
			Tokens:       resp.Tokens,
		},
	}, nil
}

// SaveState persists an opaque snapshot of the whole state for resume-later.
func (m *Machine) SaveState(ctx context.Context, ownerID string) (string, error) {
	if m.store == nil {
		return "", fmt.Errorf("no draft store configured")
	}
	blob, err := json.Marshal(m.state)
	if err != nil {
		return "", fmt.Errorf("failed to serialize pipeline state: %w", err)
	}
	draft := &storage.Draft{
		ID:           m.state.ID,
		CabinetID:    ownerID,
		ContractType: m.state.ContractType,
		Step:         string(m.state.Step),
		State:        blob,
		CreatedAt:    m.state.CreatedAt,
		UpdatedAt:    m.state.UpdatedAt,
	}
	if err := m.store.SaveDraft(ctx, draft); err != nil {
		return "", fmt.Errorf("failed to persist draft %s: %w", m.state.ID, err)
	}
	return m.state.ID, nil
}

// Load rebinds a persisted snapshot to a fresh machine. The observer is not
// invoked for the loaded state.
func Load(ctx context.Context, store storage.DraftStore, id string, service contract.DraftingService, opts ...Option) (*Machine, error) {
	draft, err := store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(draft.State, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize draft %s: %w", id, err)
	}
	if state.ClientAnswers == nil {
		state.ClientAnswers = make(map[string]string)
	}
	m := &Machine{
		state:   &state,
		service: service,
		store:   store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// enrichedDescription concatenates the original request with everything the
// brief knows, serialized verbatim, so the schema capability sees the full
// picture. ProvidedInfo is emitted in sorted order for reproducible prompts.
func enrichedDescription(original string, brief *contract.Brief) string {
	var b strings.Builder
	b.WriteString(original)
	if brief.Context != "" {
		b.WriteString("\n\nContexte: ")
		b.WriteString(brief.Context)
	}
	if brief.Objectif != "" {
		b.WriteString("\nObjectif: ")
		b.WriteString(brief.Objectif)
	}
	if len(brief.PointsSensibles) > 0 {
		b.WriteString("\nPoints sensibles: ")
		b.WriteString(strings.Join(brief.PointsSensibles, "; "))
	}
	if len(brief.ProvidedInfo) > 0 {
		b.WriteString("\nInformations fournies:")
		keys := make([]string, 0, len(brief.ProvidedInfo))
		for k := range brief.ProvidedInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n- %s: %s", k, brief.ProvidedInfo[k]))
		}
	}
	return b.String()
}
