package api

import (
	"net/http"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/engine"
)

// HandleGetPositions возвращает позиции всех сессий и обновляет кэш
// метаданных для последующих close/convert
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, h.engine.Positions(r.Context(), user))
}

// HandleClosePositions закрывает позиции списком
func (h *Handler) HandleClosePositions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Positions []engine.CloseItem `json:"positions"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Positions) == 0 {
		h.respondError(w, http.StatusBadRequest, "positions list required")
		return
	}

	messages := h.engine.ClosePositions(r.Context(), user, req.Positions)

	h.respondJSON(w, http.StatusOK, map[string]any{"message": messages})
}

// HandleConvertPositions конвертирует позиции списком
func (h *Handler) HandleConvertPositions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Positions []engine.ConvertItem `json:"positions"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Positions) == 0 {
		h.respondError(w, http.StatusBadRequest, "No positions received for conversion")
		return
	}

	messages := h.engine.ConvertPositions(r.Context(), user, req.Positions)

	h.respondJSON(w, http.StatusOK, map[string]any{"message": messages})
}
