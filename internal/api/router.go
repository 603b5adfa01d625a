package api

import (
	"net/http"

	"github.com/gorilla/mux"

	apimw "mt_trader/internal/api/middleware"
	"mt_trader/internal/middleware"
)

// SetupRouter настраивает роутинг для API
func (h *Handler) SetupRouter(origins []string) *mux.Router {
	r := mux.NewRouter()

	// Применяем CORS middleware ко всем маршрутам
	r.Use(middleware.CORS(origins))

	// Публичные маршруты (не требуют аутентификации)
	r.HandleFunc("/api/auth/login", h.HandleLogin).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/register", h.HandleRegister).Methods("POST", "OPTIONS")
	r.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Защищенные маршруты (требуют аутентификации)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(apimw.AuthMiddleware(h.authService))

	// Clients
	api.HandleFunc("/clients", h.HandleGetClients).Methods("GET")
	api.HandleFunc("/clients", h.HandleAddClient).Methods("POST")
	api.HandleFunc("/clients/{id}/login", h.HandleClientLogin).Methods("POST")
	api.HandleFunc("/clients/{id}", h.HandleDeleteClient).Methods("DELETE")

	// Groups
	api.HandleFunc("/groups", h.HandleGetGroups).Methods("GET")
	api.HandleFunc("/groups", h.HandleSaveGroup).Methods("POST")
	api.HandleFunc("/groups/{name}", h.HandleDeleteGroup).Methods("DELETE")

	// Copy setups
	api.HandleFunc("/copy-setups", h.HandleGetCopySetups).Methods("GET")
	api.HandleFunc("/copy-setups", h.HandleSaveCopySetup).Methods("POST")
	api.HandleFunc("/copy-setups/{id}/enable", h.HandleEnableCopySetup).Methods("POST")
	api.HandleFunc("/copy-setups/{id}/disable", h.HandleDisableCopySetup).Methods("POST")
	api.HandleFunc("/copy-setups/{id}", h.HandleDeleteCopySetup).Methods("DELETE")

	// Trading
	api.HandleFunc("/orders/place", h.HandlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", h.HandleCancelOrders).Methods("POST")
	api.HandleFunc("/orders", h.HandleGetOrders).Methods("GET")

	// Positions
	api.HandleFunc("/positions", h.HandleGetPositions).Methods("GET")
	api.HandleFunc("/positions/close", h.HandleClosePositions).Methods("POST")
	api.HandleFunc("/positions/convert", h.HandleConvertPositions).Methods("POST")

	// Holdings
	api.HandleFunc("/holdings", h.HandleGetHoldings).Methods("GET")
	api.HandleFunc("/summary", h.HandleGetSummary).Methods("GET")

	// Symbols
	api.HandleFunc("/symbols/search", h.HandleSearchSymbols).Methods("GET")

	// Event feed
	api.HandleFunc("/events/ws", h.HandleEventsWS).Methods("GET")

	return r
}

// HandleHealth возвращает статус здоровья сервиса
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "OK", map[string]string{
		"status": "healthy",
	})
}
