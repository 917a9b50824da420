package chatstore_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memPersister struct {
	snapshot chatstore.Snapshot
	saved    int
	has      bool
}

func (p *memPersister) SaveSnapshot(snapshot chatstore.Snapshot) error {
	p.snapshot = snapshot
	p.saved++
	p.has = true
	return nil
}

func (p *memPersister) LoadSnapshot() (chatstore.Snapshot, bool, error) {
	return p.snapshot, p.has, nil
}

func TestCreateNewChat(t *testing.T) {
	store := chatstore.New(nil, testLogger())

	first := store.CreateNewChat()
	second := store.CreateNewChat()

	if first == "" || second == "" || first == second {
		t.Fatalf("expected two distinct ids, got %q and %q", first, second)
	}

	chats := store.Chats()
	if len(chats) != 2 {
		t.Fatalf("len(chats) = %d, want 2", len(chats))
	}
	// Newest chat goes to the front and becomes current.
	if chats[0].ID != second {
		t.Errorf("chats[0].ID = %q, want %q", chats[0].ID, second)
	}
	current, ok := store.CurrentChat()
	if !ok || current.ID != second {
		t.Errorf("current = %q, want %q", current.ID, second)
	}
}

func TestAddMessageTitleDerivation(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
	}{
		{
			name:      "short content used verbatim",
			content:   "hello",
			wantTitle: "hello",
		},
		{
			name:      "long content truncated with ellipsis",
			content:   strings.Repeat("a", 60),
			wantTitle: strings.Repeat("a", 50) + "...",
		},
		{
			name:      "exactly at the limit",
			content:   strings.Repeat("b", 50),
			wantTitle: strings.Repeat("b", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := chatstore.New(nil, testLogger())
			chatID := store.CreateNewChat()

			msgID := store.AddMessage(chatID, models.RoleUser, tt.content)
			if msgID == "" {
				t.Fatal("AddMessage() returned empty id")
			}

			chat, _ := store.CurrentChat()
			if chat.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", chat.Title, tt.wantTitle)
			}
		})
	}
}

func TestAddMessageTitleFrozenAfterFirst(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	chatID := store.CreateNewChat()

	store.AddMessage(chatID, models.RoleUser, "first message")
	store.AddMessage(chatID, models.RoleAssistant, "a reply")
	store.AddMessage(chatID, models.RoleUser, "second message")

	chat, _ := store.CurrentChat()
	if chat.Title != "first message" {
		t.Errorf("title = %q, want %q", chat.Title, "first message")
	}
	if len(chat.Messages) != 3 {
		t.Errorf("len(messages) = %d, want 3", len(chat.Messages))
	}
}

func TestAddMessageAssistantFirstKeepsDefaultTitle(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	chatID := store.CreateNewChat()

	store.AddMessage(chatID, models.RoleAssistant, "greetings")

	chat, _ := store.CurrentChat()
	if chat.Title != "New Chat" {
		t.Errorf("title = %q, want %q", chat.Title, "New Chat")
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	store := chatstore.New(nil, testLogger())

	if id := store.AddMessage("missing", models.RoleUser, "hi"); id != "" {
		t.Errorf("AddMessage() = %q, want empty id", id)
	}
}

func TestUpdateMessage(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	chatID := store.CreateNewChat()
	msgID := store.AddMessage(chatID, models.RoleAssistant, "")

	before, _ := store.CurrentChat()

	store.UpdateMessage(chatID, msgID, "Hel")
	store.UpdateMessage(chatID, msgID, "Hello")

	chat, _ := store.CurrentChat()
	if got := chat.Messages[0].Content; got != "Hello" {
		t.Errorf("content = %q, want %q", got, "Hello")
	}
	if chat.UpdatedAt.Before(before.UpdatedAt) {
		t.Error("UpdatedAt was not bumped")
	}

	// Unresolvable ids are a no-op.
	store.UpdateMessage(chatID, "missing", "x")
	store.UpdateMessage("missing", msgID, "x")
	chat, _ = store.CurrentChat()
	if got := chat.Messages[0].Content; got != "Hello" {
		t.Errorf("content after no-op updates = %q, want %q", got, "Hello")
	}
}

func TestDeleteChat(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	first := store.CreateNewChat()
	second := store.CreateNewChat()
	store.SelectChat(second)

	// Deleting the current chat falls back to the first remaining one.
	store.DeleteChat(second)
	current, ok := store.CurrentChat()
	if !ok || current.ID != first {
		t.Errorf("current = %q, want %q", current.ID, first)
	}

	// Deleting the last chat leaves no selection.
	store.DeleteChat(first)
	if _, ok := store.CurrentChat(); ok {
		t.Error("expected no current chat after deleting the last one")
	}
	if len(store.Chats()) != 0 {
		t.Error("expected no chats to remain")
	}
}

func TestDeleteChatKeepsUnrelatedSelection(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	first := store.CreateNewChat()
	second := store.CreateNewChat()
	store.SelectChat(first)

	store.DeleteChat(second)

	current, ok := store.CurrentChat()
	if !ok || current.ID != first {
		t.Errorf("current = %q, want %q", current.ID, first)
	}
}

func TestSetStreaming(t *testing.T) {
	store := chatstore.New(nil, testLogger())

	store.SetStreaming(true, "msg-1")
	streaming, msgID := store.Streaming()
	if !streaming || msgID != "msg-1" {
		t.Errorf("Streaming() = %v, %q, want true, msg-1", streaming, msgID)
	}

	// Clearing the flag always clears the id with it.
	store.SetStreaming(false, "msg-1")
	streaming, msgID = store.Streaming()
	if streaming || msgID != "" {
		t.Errorf("Streaming() = %v, %q, want false, empty", streaming, msgID)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	persister := &memPersister{}

	store := chatstore.New(persister, testLogger())
	chatID := store.CreateNewChat()
	store.AddMessage(chatID, models.RoleUser, "hello")
	store.SetSelectedModel(models.Model{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "Anthropic"})

	if persister.saved == 0 {
		t.Fatal("expected mutations to persist snapshots")
	}

	// Timestamps must survive the serialized form.
	data, err := json.Marshal(persister.snapshot)
	if err != nil {
		t.Fatal(err)
	}
	var decoded chatstore.Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	persister.snapshot = decoded

	restored := chatstore.New(persister, testLogger())

	current, ok := restored.CurrentChat()
	if !ok || current.ID != chatID {
		t.Fatalf("restored current = %q, want %q", current.ID, chatID)
	}
	if current.Title != "hello" {
		t.Errorf("restored title = %q, want %q", current.Title, "hello")
	}
	if restored.SelectedModel().ID != "anthropic/claude-3.5-sonnet" {
		t.Errorf("restored model = %q", restored.SelectedModel().ID)
	}

	orig, _ := store.CurrentChat()
	if !current.Messages[0].Timestamp.Equal(orig.Messages[0].Timestamp) {
		t.Errorf("timestamp not re-hydrated: got %v, want %v",
			current.Messages[0].Timestamp, orig.Messages[0].Timestamp)
	}
	if current.Messages[0].Timestamp.IsZero() {
		t.Error("restored timestamp is zero")
	}
}

func TestReset(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	chatID := store.CreateNewChat()
	store.AddMessage(chatID, models.RoleUser, "hello")
	store.SetStreaming(true, "m")

	store.Reset()

	if len(store.Chats()) != 0 {
		t.Error("expected no chats after reset")
	}
	if _, ok := store.CurrentChat(); ok {
		t.Error("expected no current chat after reset")
	}
	if streaming, _ := store.Streaming(); streaming {
		t.Error("expected streaming cleared after reset")
	}
	if store.SelectedModel() != models.DefaultModels()[0] {
		t.Error("expected default model after reset")
	}
}

func TestCopiesDoNotAliasStoreState(t *testing.T) {
	store := chatstore.New(nil, testLogger())
	chatID := store.CreateNewChat()
	store.AddMessage(chatID, models.RoleUser, "hello")

	chat, _ := store.CurrentChat()
	chat.Messages[0].Content = "mutated"
	chat.Title = "mutated"

	fresh, _ := store.CurrentChat()
	if fresh.Messages[0].Content != "hello" || fresh.Title != "hello" {
		t.Error("returned chat aliases internal state")
	}
}
