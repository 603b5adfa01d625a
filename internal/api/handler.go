// Package api - HTTP-слой: маршрутизация, аутентификация и разбор
// запросов. Вся торговая логика живёт в engine/sessions/copytrade,
// handlers только достают пользователя из контекста и транслируют
// запросы вниз.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"mt_trader/internal/auth"
	"mt_trader/internal/copytrade"
	"mt_trader/internal/engine"
	"mt_trader/internal/notify"
	"mt_trader/internal/sessions"
	"mt_trader/internal/store"
	"mt_trader/internal/symbols"
)

// Handler обрабатывает API запросы
type Handler struct {
	store       store.DocStore
	authService *auth.Service
	hub         *sessions.Hub
	engine      *engine.Engine
	setups      *copytrade.Setups
	resolver    *copytrade.Resolver
	symbols     *symbols.Index
	notifier    notify.Notifier
	events      *EventFeed
	logger      *slog.Logger
}

func New(
	docStore store.DocStore,
	authService *auth.Service,
	hub *sessions.Hub,
	eng *engine.Engine,
	setups *copytrade.Setups,
	resolver *copytrade.Resolver,
	symbolIndex *symbols.Index,
	notifier notify.Notifier,
	events *EventFeed,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		store:       docStore,
		authService: authService,
		hub:         hub,
		engine:      eng,
		setups:      setups,
		resolver:    resolver,
		symbols:     symbolIndex,
		notifier:    notifier,
		events:      events,
		logger:      logger,
	}
}

// Helper функции для JSON ответов

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func (h *Handler) respondSuccess(w http.ResponseWriter, message string, data any) {
	h.respondJSON(w, http.StatusOK, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	return true
}
