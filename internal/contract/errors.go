package contract

import (
	"errors"
	"fmt"
)

// Precondition errors signal a caller-side sequencing bug: they are raised
// before any external call and are never retried automatically.
var (
	ErrBriefMissing  = errors.New("brief manquant: lancez d'abord la clarification")
	ErrSchemaMissing = errors.New("schéma de formulaire manquant: générez d'abord le formulaire")
	ErrInvalidSchema = errors.New("schéma invalide renvoyé par le service de rédaction")
	ErrInvalidAudit  = errors.New("rapport d'audit invalide renvoyé par le service de rédaction")
	ErrInvalidData   = errors.New("impossible de générer le contrat à partir de données invalides")
)

// Stage identifies the pipeline operation an external-capability error
// occurred in.
type Stage string

const (
	StageClarify  Stage = "clarify"
	StageSchema   Stage = "generate_form_schema"
	StageAudit    Stage = "audit_form_schema"
	StageDocument Stage = "generate_final_contract"
)

var stageLabels = map[Stage]string{
	StageClarify:  "Erreur lors de la clarification",
	StageSchema:   "Erreur lors de la génération du formulaire",
	StageAudit:    "Erreur lors de l'audit du formulaire",
	StageDocument: "Erreur lors de la génération du contrat",
}

// PipelineError wraps an external-capability failure with its stage.
// The in-memory pipeline state is guaranteed untouched by the failing call,
// so the same operation can be retried.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	label, ok := stageLabels[e.Stage]
	if !ok {
		label = fmt.Sprintf("Erreur à l'étape %s", e.Stage)
	}
	return fmt.Sprintf("%s: %v", label, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with the given stage.
func NewPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

// IsPipelineError reports whether err is a stage-level external failure.
func IsPipelineError(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe)
}

// IsPrecondition reports whether err is one of the sequencing errors.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrBriefMissing) ||
		errors.Is(err, ErrSchemaMissing) ||
		errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, ErrInvalidAudit) ||
		errors.Is(err, ErrInvalidData)
}
