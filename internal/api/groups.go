package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

type groupRequest struct {
	GroupName  string   `json:"group_name"`
	Members    []string `json:"members"`
	Multiplier int      `json:"multiplier"`
}

// HandleSaveGroup создаёт или перезаписывает группу аккаунтов
func (h *Handler) HandleSaveGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req groupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.GroupName = strings.TrimSpace(req.GroupName)
	if req.GroupName == "" || len(req.Members) == 0 {
		h.respondError(w, http.StatusBadRequest, "group_name and members are required")
		return
	}
	if req.Multiplier <= 0 {
		req.Multiplier = 1
	}

	doc := models.Document{
		"group_name": req.GroupName,
		"members":    req.Members,
		"multiplier": req.Multiplier,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.store.Write(r.Context(), store.GroupPath(user, req.GroupName), doc); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to save group")
		return
	}

	h.respondSuccess(w, "Group saved", nil)
}

// HandleGetGroups возвращает все группы пользователя
func (h *Handler) HandleGetGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	names, err := h.store.List(r.Context(), store.GroupsDir(user))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list groups")
		return
	}

	groups := make([]models.Document, 0, len(names))
	for _, name := range names {
		doc, err := h.store.Read(r.Context(), store.GroupsDir(user)+"/"+name)
		if err != nil || len(doc) == 0 {
			continue
		}
		groups = append(groups, doc)
	}

	h.respondSuccess(w, "", groups)
}

// HandleDeleteGroup удаляет группу
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.store.Delete(r.Context(), store.GroupPath(user, name)); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete group")
		return
	}

	h.respondSuccess(w, "Group deleted", nil)
}
