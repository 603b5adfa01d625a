package api

import (
	"net/http"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/engine"
	"mt_trader/internal/notify"
)

// HandlePlaceOrder разворачивает торговый запрос в fanout по аккаунтам
func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req engine.PlaceRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.PlaceOrders(r.Context(), user, req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	failed := 0
	for _, outcome := range result.Responses {
		if o, isLocal := outcome.(engine.Outcome); isLocal && o.Status == engine.StatusError {
			failed++
		}
	}
	h.notifier.Notify(notify.FanoutSummary(user, result.BatchID, len(result.Responses), failed))

	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":          "completed",
		"batch_id":        result.BatchID,
		"order_responses": result.Responses,
	})
}

// HandleCancelOrders отменяет заявки списком
func (h *Handler) HandleCancelOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Orders []engine.CancelItem `json:"orders"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Orders) == 0 {
		h.respondError(w, http.StatusBadRequest, "No orders received for cancellation")
		return
	}

	messages := h.engine.CancelOrders(r.Context(), user, req.Orders)

	h.respondJSON(w, http.StatusOK, map[string]any{"message": messages})
}

// HandleGetOrders возвращает книги заявок всех сессий по вёдрам статуса
func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, h.engine.Orders(r.Context(), user))
}
