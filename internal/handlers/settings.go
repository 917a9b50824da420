package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chat-relay/internal/auth"
)

// settingsRequest uses pointer fields so a PUT can update a subset of the
// record, matching upsert semantics: absent fields keep their stored values.
type settingsRequest struct {
	OpenRouterAPIKey *string `json:"openRouterApiKey"`
	DefaultModel     *string `json:"defaultModel"`
	SystemPrompt     *string `json:"systemPrompt"`
}

// HandleGetSettings serves GET /api/settings for the authenticated user. A
// user without a stored record gets an empty one.
func (m Main) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	settings, err := m.settings.Settings(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to load settings",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// HandleSaveSettings serves PUT /api/settings, upserting the authenticated
// user's record with the fields present in the request.
func (m Main) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := m.settings.Settings(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to load settings",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if req.OpenRouterAPIKey != nil {
		settings.OpenRouterAPIKey = *req.OpenRouterAPIKey
	}
	if req.DefaultModel != nil {
		settings.DefaultModel = *req.DefaultModel
	}
	if req.SystemPrompt != nil {
		settings.SystemPrompt = *req.SystemPrompt
	}

	if err := m.settings.SaveSettings(r.Context(), userID, settings); err != nil {
		m.logger.Error("Failed to save settings",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
