package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

// HandleAddClient сохраняет брокерский аккаунт и запускает фоновый
// логин. Ответ не ждёт брокера: session_active появится в документе,
// когда логин завершится.
func (h *Handler) HandleAddClient(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var doc models.Document
	if !h.decodeBody(w, r, &doc) {
		return
	}

	accountID := doc.Str("userid", "client_id")
	if accountID == "" {
		h.respondError(w, http.StatusBadRequest, "userid is required")
		return
	}

	if err := h.store.Write(r.Context(), store.ClientPath(user, accountID), doc); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to save client")
		return
	}

	// Fire-and-forget: логин не держит запрос
	go h.hub.Login(context.Background(), user, doc)

	h.respondSuccess(w, "Client saved, login started", map[string]string{"userid": accountID})
}

// HandleGetClients возвращает аккаунты пользователя. Текущее состояние
// сессий накладывается поверх сохранённого флага session_active.
func (h *Handler) HandleGetClients(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	names, err := h.store.List(r.Context(), store.ClientsDir(user))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list clients")
		return
	}

	live := h.hub.LoggedInAccounts(user)

	clients := make([]models.Document, 0, len(names))
	for _, name := range names {
		doc, err := h.store.Read(r.Context(), store.ClientsDir(user)+"/"+name)
		if err != nil || len(doc) == 0 {
			continue
		}

		accountID := doc.Str("userid", "client_id")

		status := "pending"
		if live[accountID] || doc.Bool("session_active") {
			status = "Logged in"
		}
		doc["session_status"] = status
		delete(doc, "password")
		delete(doc, "totpkey")
		delete(doc, "apikey")

		clients = append(clients, doc)
	}

	h.respondSuccess(w, "", clients)
}

// HandleClientLogin повторяет фоновый логин сохранённого аккаунта
func (h *Handler) HandleClientLogin(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID := mux.Vars(r)["id"]

	doc, err := h.store.Read(r.Context(), store.ClientPath(user, accountID))
	if err != nil || len(doc) == 0 {
		h.respondError(w, http.StatusNotFound, "Client not found")
		return
	}

	go h.hub.Login(context.Background(), user, doc)

	h.respondSuccess(w, "Login started", nil)
}

// HandleDeleteClient удаляет аккаунт: документ в хранилище, все живые
// сессии с этим account id и запись кэша капитала
func (h *Handler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), store.ClientPath(user, accountID)); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete client")
		return
	}

	dropped := h.hub.Drop(user, accountID)
	h.hub.DropCapital(user, accountID)

	h.respondSuccess(w, "Client deleted", map[string]int{"sessions_dropped": dropped})
}
