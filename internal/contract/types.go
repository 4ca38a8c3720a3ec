// Package contract defines the shared data model for the contract-drafting
// pipeline: the brief produced by clarification, generated form schemas,
// audit reports and validation results.
package contract

// Step identifies a stage of the drafting pipeline.
type Step string

const (
	StepClarification        Step = "clarification"
	StepMissingInfoQuestions Step = "missing_info_questions"
	StepFormSchema           Step = "form_schema"
	StepAudit                Step = "audit"
	StepFormFilling          Step = "form_filling"
	StepFinalValidation      Step = "final_validation"
	StepContractGeneration   Step = "contract_generation"
)

// Priority qualifies how blocking a missing-information gap or audit issue is.
type Priority string

const (
	PriorityBloquant  Priority = "bloquant"
	PriorityImportant Priority = "important"
	PriorityMineur    Priority = "mineur"
)

// Brief is the structured summary of a drafting request produced by the
// clarification capability. ProvidedInfo accumulates across question rounds;
// MissingInfo shrinks as answers come in.
type Brief struct {
	Context         string            `json:"context"`
	Objectif        string            `json:"objectif"`
	Parties         []string          `json:"parties,omitempty"`
	PointsSensibles []string          `json:"points_sensibles,omitempty"`
	ProvidedInfo    map[string]string `json:"provided_info,omitempty"`
	MissingInfo     []MissingInfo     `json:"missing_info,omitempty"`
}

// MissingInfo flags a field the brief still lacks.
type MissingInfo struct {
	Field    string   `json:"field"`
	Priority Priority `json:"priority"`
}

// HasBlocking reports whether any remaining gap is bloquant.
func (b *Brief) HasBlocking() bool {
	if b == nil {
		return false
	}
	for _, mi := range b.MissingInfo {
		if mi.Priority == PriorityBloquant {
			return true
		}
	}
	return false
}

// Question is a single prompt presented to the user to close a gap in the brief.
type Question struct {
	ID        string   `json:"id"`
	FieldName string   `json:"field_name"`
	Question  string   `json:"question"`
	InputType string   `json:"input_type"` // text, textarea, select, radio, date, number
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required"`
	Priority  Priority `json:"priority"`
	Hint      string   `json:"hint,omitempty"`
}

// FormSchema is the generated, fillable contract form definition.
type FormSchema struct {
	Fields          []FormField      `json:"fields"`
	ValidationRules []ValidationRule `json:"validation_rules,omitempty"`
}

// Field returns the field with the given id, or nil.
func (s *FormSchema) Field(id string) *FormField {
	if s == nil {
		return nil
	}
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}
	return nil
}

// FormField describes one input of the generated form.
type FormField struct {
	ID            string           `json:"id"`
	Label         string           `json:"label"`
	Type          string           `json:"type"` // text, textarea, select, radio, date, number
	Required      bool             `json:"required"`
	Options       []string         `json:"options,omitempty"`
	Validation    *FieldValidation `json:"validation,omitempty"`
	ConditionalOn *Condition       `json:"conditional_on,omitempty"`
}

// FieldValidation carries per-field numeric bounds and a pattern constraint.
type FieldValidation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// Condition gates a field on another field holding a specific value.
type Condition struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// RuleType discriminates declarative validation rules.
type RuleType string

const (
	RuleRequired   RuleType = "required"
	RuleComparison RuleType = "comparison"
	RuleCoherence  RuleType = "coherence"
)

// ValidationRule is a declarative business rule attached to a schema.
// Comparison rules carry a "field1 OP field2" expression in Rule.
type ValidationRule struct {
	Type         RuleType `json:"type"`
	Fields       []string `json:"fields,omitempty"`
	Rule         string   `json:"rule,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// AuditReport is the result of the automated schema review.
type AuditReport struct {
	Issues            []AuditIssue `json:"issues"`
	Suggestions       string       `json:"suggestions,omitempty"`
	HasCriticalIssues bool         `json:"has_critical_issues"`
	ShouldRetry       bool         `json:"should_retry"`
	CorrectedSchema   *FormSchema  `json:"corrected_schema,omitempty"`
}

// AuditIssue is one finding of the audit capability.
type AuditIssue struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Priority `json:"severity"`
}

// ErrorType categorizes a validation error.
type ErrorType string

const (
	ErrorRequired     ErrorType = "required"
	ErrorFormat       ErrorType = "format"
	ErrorCoherence    ErrorType = "coherence"
	ErrorBusinessRule ErrorType = "business_rule"
)

// ValidationError is a single per-field validation failure.
type ValidationError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Type    ErrorType `json:"type"`
}

// ValidationResult is the outcome of running the validation engine over
// submitted form data. Errors is never nil.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings,omitempty"`
}

// TokenUsage is optional usage metadata attached to a generated document.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Attachment references a supporting document passed to final generation.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
