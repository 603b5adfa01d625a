package api

import (
	"net/http"

	"mt_trader/internal/api/middleware"
)

// HandleGetHoldings возвращает DP холдинги и сводки по аккаунтам
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, h.engine.Holdings(r.Context(), user))
}

// HandleGetSummary отдаёт сводку последнего вызова holdings,
// без новых походов к брокеру
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"summary": h.engine.Summary(user)})
}
