package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/models"
)

// HandleSaveCopySetup создаёт copy-trading сетап
func (h *Handler) HandleSaveCopySetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var setup models.CopySetup
	if !h.decodeBody(w, r, &setup) {
		return
	}

	setupID, err := h.setups.Save(r.Context(), user, setup)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondSuccess(w, "Setup saved", map[string]string{"setup_id": setupID})
}

// HandleGetCopySetups возвращает все сетапы пользователя
func (h *Handler) HandleGetCopySetups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	setups, err := h.setups.List(r.Context(), user)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list setups")
		return
	}

	h.respondSuccess(w, "", setups)
}

// HandleEnableCopySetup включает сетап и стартует зеркалирование
func (h *Handler) HandleEnableCopySetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.resolver.Enable(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.respondSuccess(w, "Setup enabled", nil)
}

// HandleDisableCopySetup выключает сетап и гасит зеркалирование
func (h *Handler) HandleDisableCopySetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.resolver.Disable(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.respondSuccess(w, "Setup disabled", nil)
}

// HandleDeleteCopySetup удаляет сетап (сперва останавливая вотчер)
func (h *Handler) HandleDeleteCopySetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	setupID := mux.Vars(r)["id"]

	// Выключение идемпотентно: для невключённого сетапа это no-op
	if _, found, _ := h.setups.Get(r.Context(), user, setupID); found {
		h.resolver.Disable(r.Context(), user, setupID) //nolint:errcheck
	}

	if err := h.setups.Delete(r.Context(), user, setupID); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete setup")
		return
	}

	h.respondSuccess(w, "Setup deleted", nil)
}
