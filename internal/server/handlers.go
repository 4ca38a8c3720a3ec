package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmorel/lexidraft/internal/contract"
	"github.com/nmorel/lexidraft/internal/session"
	"github.com/nmorel/lexidraft/internal/storage"
)

type handlers struct {
	sessions *session.Registry
}

func (s *Server) mountRoutes(sessions *session.Registry) {
	h := &handlers{sessions: sessions}

	s.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.Router.Route("/v1/drafts", func(r chi.Router) {
		r.Post("/", h.createDraft)
		r.Get("/", h.listDrafts)
		r.Route("/{draftID}", func(r chi.Router) {
			r.Get("/", h.getDraft)
			r.Delete("/", h.deleteDraft)
			r.Post("/clarify", h.clarify)
			r.Post("/answers", h.submitAnswers)
			r.Post("/schema", h.generateSchema)
			r.Post("/audit", h.audit)
			r.Post("/validate", h.validate)
			r.Post("/finalize", h.finalize)
			r.Get("/watch", h.watch)
		})
	})
}

type createDraftRequest struct {
	ContractType string `json:"contract_type"`
	Request      string `json:"request"`
}

type draftSummary struct {
	ID           string `json:"id"`
	ContractType string `json:"contract_type"`
	Step         string `json:"step"`
}

func (h *handlers) createDraft(w http.ResponseWriter, r *http.Request) {
	cab := GetCabinet(r.Context())

	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "corps de requête invalide")
		return
	}
	if req.ContractType == "" || req.Request == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contract_type et request sont obligatoires")
		return
	}

	sess, err := h.sessions.Create(r.Context(), cab.ID, cab.Role, req.ContractType, req.Request)
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}

	st := sess.Snapshot()
	writeJSON(w, http.StatusCreated, draftSummary{
		ID:           st.ID,
		ContractType: st.ContractType,
		Step:         string(st.Step),
	})
}

func (h *handlers) listDrafts(w http.ResponseWriter, r *http.Request) {
	cab := GetCabinet(r.Context())

	drafts, err := h.sessions.List(r.Context(), cab.ID)
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}

	out := make([]draftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftSummary{
			ID:           d.ID,
			ContractType: d.ContractType,
			Step:         d.Step,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": out})
}

func (h *handlers) getDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *handlers) deleteDraft(w http.ResponseWriter, r *http.Request) {
	cab := GetCabinet(r.Context())

	if err := h.sessions.Delete(r.Context(), cab.ID, chi.URLParam(r, "draftID")); err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) clarify(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Clarify(r.Context())
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) submitAnswers(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "corps de requête invalide")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "answers est obligatoire")
		return
	}

	st, err := sess.SubmitAnswers(r.Context(), req.Answers)
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"step":      st.Step,
		"brief":     st.Brief,
		"questions": st.Questions,
	})
}

func (h *handlers) generateSchema(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	schema, err := sess.GenerateSchema(r.Context())
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": schema})
}

func (h *handlers) audit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Audit(r.Context())
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) validate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		FormData map[string]any `json:"form_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "corps de requête invalide")
		return
	}

	// Validation failures are data, not errors: the client renders them
	// against the form.
	result, err := sess.Validate(r.Context(), req.FormData)
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		FormData    map[string]any        `json:"form_data"`
		ClientInfo  map[string]any        `json:"client_info"`
		Attachments []contract.Attachment `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "corps de requête invalide")
		return
	}

	final, err := sess.Finalize(r.Context(), req.FormData, req.ClientInfo, req.Attachments)
	if err != nil {
		h.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, final)
}

// session resolves the draft session for the request, writing the error
// response itself when the draft is missing or owned by another cabinet.
func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	cab := GetCabinet(r.Context())

	sess, err := h.sessions.Get(r.Context(), cab.ID, cab.Role, chi.URLParam(r, "draftID"))
	if err != nil {
		h.writeOperationError(w, r, err)
		return nil, false
	}
	return sess, true
}

// writeOperationError maps pipeline and storage errors onto HTTP statuses.
func (h *handlers) writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, session.ErrForbidden):
		// Drafts of other cabinets are indistinguishable from missing ones.
		writeError(w, http.StatusNotFound, "not_found", "brouillon introuvable")
	case errors.Is(err, contract.ErrInvalidData):
		writeError(w, http.StatusUnprocessableEntity, "invalid_data", err.Error())
	case contract.IsPrecondition(err):
		writeError(w, http.StatusConflict, "precondition_failed", err.Error())
	case contract.IsPipelineError(err):
		writeError(w, http.StatusBadGateway, "assistant_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Type: errType, Message: message}})
}
