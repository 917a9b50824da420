package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/internal/auth"
	"chat-relay/internal/models"
	"chat-relay/internal/services"

	"github.com/google/uuid"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HandleSignup serves POST /api/auth/signup. It registers a new account and
// responds with an access token.
func (m Main) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		m.logger.Error("Failed to hash password", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := m.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, services.ErrUserExists) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		m.logger.Error("Failed to create user", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := auth.NewAccessToken(user.ID, m.jwtSecret, m.tokenTTL)
	if err != nil {
		m.logger.Error("Failed to issue token", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

// HandleLogin serves POST /api/auth/login, responding with an access token on
// valid credentials.
func (m Main) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := m.users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		m.logger.Error("Failed to look up user", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(user.ID, m.jwtSecret, m.tokenTTL)
	if err != nil {
		m.logger.Error("Failed to issue token", slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}
