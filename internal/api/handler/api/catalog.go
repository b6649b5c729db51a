package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"go.uber.org/zap"
)

// CatalogHandler serves banks and their occurrence reasons.
type CatalogHandler struct {
	banks   storage.BankRepository
	reasons storage.OccurrenceRepository
	logger  *zap.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(banks storage.BankRepository, reasons storage.OccurrenceRepository, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{banks: banks, reasons: reasons, logger: orNop(logger)}
}

// CreateReasonRequest is the body of POST /api/bancos/ocorrencias/motivos.
type CreateReasonRequest struct {
	BankID      uuid.UUID `json:"bankId"`
	Occurrence  string    `json:"occurrence"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	Note        *string   `json:"note"`
}

// Banks handles GET /api/bancos
func (h *CatalogHandler) Banks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, banks)
}

// Bank handles GET /api/bancos/{bancoId}
func (h *CatalogHandler) Bank(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "bancoId")
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	bank, err := h.banks.ByID(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, bank)
}

func reasonKey(r *http.Request) (core.OccurrenceReasonKey, error) {
	bankID, err := pathUUID(r, "bancoId")
	if err != nil {
		return core.OccurrenceReasonKey{}, err
	}
	key := core.OccurrenceReasonKey{
		BankID:     bankID,
		Occurrence: strings.TrimSpace(r.PathValue("ocorrencia")),
		Reason:     strings.TrimSpace(r.PathValue("motivo")),
	}
	if key.Occurrence == "" {
		return key, core.Validation("occurrence is required")
	}
	return key, nil
}

// Reasons handles GET /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos
func (h *CatalogHandler) Reasons(w http.ResponseWriter, r *http.Request) {
	key, err := reasonKey(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	items, err := h.reasons.List(r.Context(), key.BankID, key.Occurrence)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

// Reason handles GET /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos/{motivo}
func (h *CatalogHandler) Reason(w http.ResponseWriter, r *http.Request) {
	key, err := reasonKey(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	item, err := h.reasons.Get(r.Context(), key)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

// CreateReason handles POST /api/bancos/ocorrencias/motivos
func (h *CatalogHandler) CreateReason(w http.ResponseWriter, r *http.Request) {
	var req CreateReasonRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	reason := core.OccurrenceReason{
		ID:          uuid.New(),
		BankID:      req.BankID,
		Occurrence:  strings.TrimSpace(req.Occurrence),
		Reason:      strings.TrimSpace(req.Reason),
		Description: strings.TrimSpace(req.Description),
	}
	switch {
	case reason.BankID == uuid.Nil:
		fail(w, r, h.logger, core.Validation("bankId is required"))
		return
	case reason.Occurrence == "":
		fail(w, r, h.logger, core.Validation("occurrence is required"))
		return
	case reason.Reason == "":
		fail(w, r, h.logger, core.Validation("reason is required"))
		return
	}
	if req.Note != nil {
		if note := strings.TrimSpace(*req.Note); note != "" {
			reason.Note = &note
		}
	}

	if _, err := h.banks.ByID(r.Context(), reason.BankID); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	created, err := h.reasons.Create(r.Context(), reason)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/bancos/"+created.BankID.String()+
		"/ocorrencias/"+url.PathEscape(created.Occurrence)+
		"/motivos/"+url.PathEscape(created.Reason))
	response.JSON(w, http.StatusCreated, created)
}

// UpdateReason handles PUT /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos/{motivo}.
// Absent fields keep their stored value.
func (h *CatalogHandler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	key, err := reasonKey(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	var patch core.OccurrenceReasonPatch
	if err := decodeJSON(r, &patch); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	if _, err := h.reasons.Update(r.Context(), key, patch); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
