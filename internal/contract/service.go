package contract

import "context"

// ClarifyRequest asks the drafting service to analyze a free-text request.
// ExistingAnswers is set on re-entry so the service only asks about
// remaining gaps.
type ClarifyRequest struct {
	ContractType    string            `json:"contract_type"`
	Description     string            `json:"description"`
	Role            string            `json:"role"`
	ExistingAnswers map[string]string `json:"existing_answers,omitempty"`
}

// ClarifyResponse carries the structured brief and, when information is
// missing, the questions to put to the user.
type ClarifyResponse struct {
	Brief         *Brief     `json:"brief"`
	NeedsMoreInfo bool       `json:"needs_more_info"`
	Questions     []Question `json:"questions,omitempty"`
}

// SchemaRequest asks for a fillable form schema. Description is the
// original request enriched with everything the brief collected.
type SchemaRequest struct {
	ContractType string `json:"contract_type"`
	Description  string `json:"description"`
	Role         string `json:"role"`
	Brief        *Brief `json:"brief"`
}

// SchemaResponse wraps the generated schema. A missing schema is a hard error.
type SchemaResponse struct {
	Schema *FormSchema `json:"schema"`
}

// AuditRequest asks for a review of a generated schema against the brief.
type AuditRequest struct {
	Schema       *FormSchema `json:"schema"`
	Brief        *Brief      `json:"brief"`
	ContractType string      `json:"contract_type"`
	Role         string      `json:"role"`
}

// AuditResponse wraps the audit report.
type AuditResponse struct {
	Report *AuditReport `json:"report"`
}

// DocumentRequest asks for the final contract text from validated form data.
type DocumentRequest struct {
	ContractType string         `json:"contract_type"`
	FormData     map[string]any `json:"form_data"`
	ClientInfo   map[string]any `json:"client_info,omitempty"`
	Attachments  []Attachment   `json:"attachments,omitempty"`
}

// DocumentResponse carries the generated contract and optional usage metadata.
type DocumentResponse struct {
	Contract string      `json:"contract"`
	Tokens   *TokenUsage `json:"tokens,omitempty"`
}

// DraftingService is the set of external reasoning capabilities the pipeline
// consumes. Implementations own transport, timeouts and retries; the pipeline
// never retries a failed call on its own.
type DraftingService interface {
	Clarify(ctx context.Context, req *ClarifyRequest) (*ClarifyResponse, error)
	GenerateSchema(ctx context.Context, req *SchemaRequest) (*SchemaResponse, error)
	AuditSchema(ctx context.Context, req *AuditRequest) (*AuditResponse, error)
	GenerateDocument(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error)
}
