package pipeline

import (
	"time"

	"github.com/nmorel/lexidraft/internal/contract"
)

// HistoryEntry records one pipeline action. History is append-only and never
// consulted for control flow.
type HistoryEntry struct {
	Step      contract.Step  `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
}

// State is the single mutable record of a drafting session. It is owned
// exclusively by one Machine; observers only ever see snapshots.
type State struct {
	ID               string                      `json:"id"`
	Step             contract.Step               `json:"step"`
	ContractType     string                      `json:"contract_type"`
	OriginalRequest  string                      `json:"original_request"`
	Brief            *contract.Brief             `json:"brief,omitempty"`
	Questions        []contract.Question         `json:"questions,omitempty"`
	ClientAnswers    map[string]string           `json:"client_answers,omitempty"`
	FormSchema       *contract.FormSchema        `json:"form_schema,omitempty"`
	AuditReport      *contract.AuditReport       `json:"audit_report,omitempty"`
	AuditIterations  int                         `json:"audit_iterations"`
	FormData         map[string]any              `json:"form_data,omitempty"`
	ValidationResult *contract.ValidationResult  `json:"validation_result,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
	History          []HistoryEntry              `json:"history"`
}

// Clone returns a snapshot deep enough that observers cannot reach the
// machine's own containers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Brief = cloneBrief(s.Brief)
	cp.Questions = append([]contract.Question(nil), s.Questions...)
	cp.ClientAnswers = cloneStringMap(s.ClientAnswers)
	cp.FormSchema = cloneSchema(s.FormSchema)
	cp.AuditReport = cloneReport(s.AuditReport)
	cp.FormData = cloneAnyMap(s.FormData)
	cp.ValidationResult = cloneResult(s.ValidationResult)
	cp.History = make([]HistoryEntry, len(s.History))
	for i, h := range s.History {
		cp.History[i] = h
		cp.History[i].Data = cloneAnyMap(h.Data)
	}
	return &cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneBrief(b *contract.Brief) *contract.Brief {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Parties = append([]string(nil), b.Parties...)
	cp.PointsSensibles = append([]string(nil), b.PointsSensibles...)
	cp.ProvidedInfo = cloneStringMap(b.ProvidedInfo)
	cp.MissingInfo = append([]contract.MissingInfo(nil), b.MissingInfo...)
	return &cp
}

func cloneSchema(s *contract.FormSchema) *contract.FormSchema {
	if s == nil {
		return nil
	}
	cp := &contract.FormSchema{
		Fields:          make([]contract.FormField, len(s.Fields)),
		ValidationRules: append([]contract.ValidationRule(nil), s.ValidationRules...),
	}
	for i, f := range s.Fields {
		cp.Fields[i] = f
		cp.Fields[i].Options = append([]string(nil), f.Options...)
		if f.Validation != nil {
			v := *f.Validation
			cp.Fields[i].Validation = &v
		}
		if f.ConditionalOn != nil {
			c := *f.ConditionalOn
			cp.Fields[i].ConditionalOn = &c
		}
	}
	for i, r := range s.ValidationRules {
		cp.ValidationRules[i].Fields = append([]string(nil), r.Fields...)
	}
	return cp
}

func cloneReport(r *contract.AuditReport) *contract.AuditReport {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Issues = append([]contract.AuditIssue(nil), r.Issues...)
	cp.CorrectedSchema = cloneSchema(r.CorrectedSchema)
	return &cp
}

func cloneResult(r *contract.ValidationResult) *contract.ValidationResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Errors = append([]contract.ValidationError(nil), r.Errors...)
	cp.Warnings = append([]string(nil), r.Warnings...)
	return &cp
}
