// Package handlers wires the HTTP surface of the relay: the streaming chat
// endpoint, auth, per-user settings, and the read-only model catalog.
package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/models"
)

const errLoggerKey = "err"

// LLM represents the upstream large language model provider. It accepts a
// context, the wire messages, and a provider-qualified model id, returning an
// iterator that yields content deltas and potential errors.
type LLM interface {
	Chat(ctx context.Context, messages []models.ChatMessage, model string) iter.Seq2[string, error]
}

// UserStore manages registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

// SettingsStore manages the per-user settings records.
type SettingsStore interface {
	Settings(ctx context.Context, userID string) (models.UserSettings, error)
	SaveSettings(ctx context.Context, userID string, settings models.UserSettings) error
}

// SnapshotStore exposes the persisted chat snapshot for the export endpoint.
type SnapshotStore interface {
	LoadSnapshot() (chatstore.Snapshot, bool, error)
}

// Main holds the dependencies shared by all HTTP handlers. A nil LLM means no
// provider credential is configured; the relay endpoint then refuses requests
// without making any upstream call.
type Main struct {
	llm       LLM
	users     UserStore
	settings  SettingsStore
	snapshots SnapshotStore

	jwtSecret string
	tokenTTL  time.Duration

	logger *slog.Logger
}

// NewMain creates a Main instance with the provided collaborators.
func NewMain(
	llm LLM,
	users UserStore,
	settings SettingsStore,
	snapshots SnapshotStore,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *slog.Logger,
) Main {
	return Main{
		llm:       llm,
		users:     users,
		settings:  settings,
		snapshots: snapshots,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With(slog.String("module", "handlers")),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, errorResponse{Error: message})
}
