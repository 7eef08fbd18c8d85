package handlers

import (
	"errors"
	"log"
	"net/http"
	"trip-console/internal/api/dto"
	"trip-console/internal/domain"
	"trip-console/internal/services"
	"trip-console/internal/view"

	"github.com/go-chi/chi/v5"
)

// Console is the orchestrator surface the handlers drive.
type Console interface {
	Snapshot() services.State
	UpdateField(key, raw string) error
	Recalculate() (uint64, error)
}

type TripHandler struct {
	Console Console
}

// Get returns the formatted console state.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, view.Build(h.Console.Snapshot()))
}

// UpdateField stores one raw field value. The value is not validated here.
func (h *TripHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var req dto.FieldUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, r, http.StatusBadRequest, "value is required")
		return
	}

	field := chi.URLParam(r, "field")
	if err := h.Console.UpdateField(field, *req.Value); err != nil {
		if errors.Is(err, services.ErrUnknownField) {
			writeError(w, r, http.StatusNotFound, "unknown field "+field)
			return
		}
		log.Printf("update field failed: field=%s err=%v", field, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recalculate starts a new planning cycle and returns its generation.
// Responses arrive asynchronously; poll Get or listen on the websocket.
func (h *TripHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	gen, err := h.Console.Recalculate()
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, r, http.StatusUnprocessableEntity, validationResponse(verr))
		case errors.Is(err, services.ErrClosed):
			writeError(w, r, http.StatusServiceUnavailable, "console is shutting down")
		default:
			log.Printf("recalculate failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.RecalculateResponse{Generation: gen})
}

func validationResponse(verr *domain.ValidationError) dto.ValidationErrorResponse {
	res := dto.ValidationErrorResponse{
		Error:  "invalid trip input",
		Fields: make(map[string]string, len(verr.Fields)),
	}
	for k, msg := range verr.ByField() {
		res.Fields[string(k)] = msg
	}
	return res
}
