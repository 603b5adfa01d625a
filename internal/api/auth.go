package api

import (
	"net/http"
	"strings"
	"time"

	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister регистрирует пользователя платформы. Профиль с
// bcrypt-хешем пароля живёт в документном хранилище.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	path := store.ProfilePath(req.Username)

	existing, err := h.store.Read(r.Context(), path)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Storage error")
		return
	}
	if len(existing) > 0 {
		h.respondError(w, http.StatusConflict, "User already exists")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	doc := models.Document{
		"username":      req.Username,
		"password_hash": hash,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.store.Write(r.Context(), path, doc); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	h.respondSuccess(w, "User registered", nil)
}

// HandleLogin аутентифицирует пользователя и выдаёт JWT
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	doc, err := h.store.Read(r.Context(), store.ProfilePath(strings.TrimSpace(req.Username)))
	if err != nil || len(doc) == 0 {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	var profile models.UserProfile
	if err := doc.Decode(&profile); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Profile malformed")
		return
	}

	if err := h.authService.VerifyPassword(profile.PasswordHash, req.Password); err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(profile.Username)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": profile.Username,
	})
}
