package handlers_test

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"testing"
	"time"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/handlers"
	"chat-relay/internal/models"
	"chat-relay/internal/services"
)

const testJWTSecret = "test-secret"

type mockLLM struct {
	responses []string
	err       error
	errAfter  int // yield errAfter responses before err; ignored when err is nil

	called     bool
	gotModel   string
	gotMessage []models.ChatMessage
}

func (m *mockLLM) Chat(
	_ context.Context,
	messages []models.ChatMessage,
	model string,
) iter.Seq2[string, error] {
	m.called = true
	m.gotModel = model
	m.gotMessage = messages

	return func(yield func(string, error) bool) {
		for i, resp := range m.responses {
			if m.err != nil && i == m.errAfter {
				yield("", m.err)
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
		if m.err != nil && len(m.responses) <= m.errAfter {
			yield("", m.err)
		}
	}
}

type mockUserStore struct {
	users map[string]models.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]models.User{}}
}

func (m *mockUserStore) CreateUser(_ context.Context, user models.User) error {
	if _, ok := m.users[user.Email]; ok {
		return services.ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return models.User{}, services.ErrNotFound
	}
	return user, nil
}

type mockSettingsStore struct {
	settings map[string]models.UserSettings
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{settings: map[string]models.UserSettings{}}
}

func (m *mockSettingsStore) Settings(_ context.Context, userID string) (models.UserSettings, error) {
	return m.settings[userID], nil
}

func (m *mockSettingsStore) SaveSettings(_ context.Context, userID string, s models.UserSettings) error {
	m.settings[userID] = s
	return nil
}

type mockSnapshotStore struct {
	snapshot chatstore.Snapshot
	has      bool
}

func (m *mockSnapshotStore) LoadSnapshot() (chatstore.Snapshot, bool, error) {
	return m.snapshot, m.has, nil
}

func newTestMain(t *testing.T, llm handlers.LLM) handlers.Main {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handlers.NewMain(
		llm,
		newMockUserStore(),
		newMockSettingsStore(),
		&mockSnapshotStore{},
		testJWTSecret,
		time.Hour,
		logger,
	)
}
