package models

import "time"

// User is a registered account. The password is stored as a bcrypt hash and is
// never serialized into API responses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSettings holds the per-user preferences persisted server-side. The
// OpenRouter key here belongs to the user; the relay's own credential is a
// server-held secret and is configured separately.
type UserSettings struct {
	OpenRouterAPIKey string `json:"openRouterApiKey"`
	DefaultModel     string `json:"defaultModel"`
	SystemPrompt     string `json:"systemPrompt"`
}
