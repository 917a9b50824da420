// Package chatstore tracks chats, messages, and in-flight streaming status for
// one client session. The store is an explicitly constructed object; callers
// hold a reference instead of reaching for package-level state.
package chatstore

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"chat-relay/internal/models"

	"github.com/google/uuid"
)

const titleLimit = 50

// Snapshot is the persisted form of the store, kept under a versioned
// namespace. Timestamps round-trip through RFC 3339 text.
type Snapshot struct {
	Chats         []models.Chat `json:"chats"`
	CurrentChatID string        `json:"currentChatId"`
	SelectedModel models.Model  `json:"selectedModel"`
}

// Persister saves and restores store snapshots. Persistence is a side effect of
// store mutations, not part of their success contract.
type Persister interface {
	SaveSnapshot(snapshot Snapshot) error
	LoadSnapshot() (Snapshot, bool, error)
}

// Store is the conversation state machine. All operations are synchronous and
// atomic with respect to the in-memory state.
type Store struct {
	mu sync.Mutex

	chats         []models.Chat
	currentChatID string
	selectedModel models.Model

	isStreaming        bool
	streamingMessageID string

	persister Persister
	logger    *slog.Logger
}

// New creates a store, restoring the last snapshot when the persister holds
// one. A nil persister keeps the store purely in-memory.
func New(persister Persister, logger *slog.Logger) *Store {
	s := &Store{
		selectedModel: models.DefaultModels()[0],
		persister:     persister,
		logger:        logger.With(slog.String("module", "chatstore")),
	}

	if persister == nil {
		return s
	}

	snapshot, ok, err := persister.LoadSnapshot()
	if err != nil {
		s.logger.Error("Failed to load snapshot", slog.String("err", err.Error()))
		return s
	}
	if ok {
		s.chats = snapshot.Chats
		s.currentChatID = snapshot.CurrentChatID
		if snapshot.SelectedModel.ID != "" {
			s.selectedModel = snapshot.SelectedModel
		}
	}
	return s
}

// CreateNewChat allocates a chat with a fresh id and no messages, inserts it at
// the front of the chat list, makes it current, and returns its id.
func (s *Store) CreateNewChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	chat := models.Chat{
		ID:        "chat-" + uuid.New().String(),
		Title:     "New Chat",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.chats = slices.Insert(s.chats, 0, chat)
	s.currentChatID = chat.ID
	s.persist()

	return chat.ID
}

// SelectChat makes the given chat current.
func (s *Store) SelectChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentChatID = chatID
	s.persist()
}

// AddMessage appends a message with a fresh id and the current timestamp to the
// chat, returning the message id. When the appended message is the chat's first
// and its role is user, the chat title is derived from the content and frozen.
// An unknown chat id is logged and reported with an empty id.
func (s *Store) AddMessage(chatID string, role models.Role, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chatIndex(chatID)
	if idx == -1 {
		s.logger.Error("Chat not found", slog.String("chatID", chatID))
		return ""
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	chat := &s.chats[idx]
	chat.Messages = append(chat.Messages, msg)
	if len(chat.Messages) == 1 && role == models.RoleUser {
		chat.Title = deriveTitle(content)
	}
	chat.UpdatedAt = msg.Timestamp
	s.persist()

	return msg.ID
}

// UpdateMessage replaces the target message's content wholesale and bumps the
// chat's UpdatedAt. The caller supplies the full accumulated text each call,
// not a delta. Unresolvable ids make this a no-op.
func (s *Store) UpdateMessage(chatID, messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chatIndex(chatID)
	if idx == -1 {
		return
	}

	chat := &s.chats[idx]
	msgIdx := slices.IndexFunc(chat.Messages, func(m models.Message) bool { return m.ID == messageID })
	if msgIdx == -1 {
		return
	}

	chat.Messages[msgIdx].Content = content
	chat.UpdatedAt = time.Now()
	s.persist()
}

// DeleteChat removes the chat and its messages. If it was current, the first
// remaining chat becomes current, or none when the list is empty.
func (s *Store) DeleteChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chatIndex(chatID)
	if idx == -1 {
		return
	}

	s.chats = slices.Delete(s.chats, idx, idx+1)
	if s.currentChatID == chatID {
		s.currentChatID = ""
		if len(s.chats) > 0 {
			s.currentChatID = s.chats[0].ID
		}
	}
	s.persist()
}

// SetStreaming sets the streaming flag and the id of the message being
// streamed atomically. The id is cleared whenever streaming is off.
func (s *Store) SetStreaming(streaming bool, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isStreaming = streaming
	s.streamingMessageID = ""
	if streaming {
		s.streamingMessageID = messageID
	}
}

// Streaming reports the streaming flag and the streaming message id.
func (s *Store) Streaming() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isStreaming, s.streamingMessageID
}

// CurrentChat returns a copy of the current chat, or false when none is
// selected.
func (s *Store) CurrentChat() (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chatIndex(s.currentChatID)
	if idx == -1 {
		return models.Chat{}, false
	}
	return copyChat(s.chats[idx]), true
}

// Chat returns a copy of the chat with the given id.
func (s *Store) Chat(chatID string) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chatIndex(chatID)
	if idx == -1 {
		return models.Chat{}, false
	}
	return copyChat(s.chats[idx]), true
}

// Chats returns copies of all chats, most recently created first.
func (s *Store) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make([]models.Chat, len(s.chats))
	for i, chat := range s.chats {
		chats[i] = copyChat(chat)
	}
	return chats
}

// SetSelectedModel records the model used for new completion requests.
func (s *Store) SetSelectedModel(model models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedModel = model
	s.persist()
}

// SelectedModel returns the currently selected model.
func (s *Store) SelectedModel() models.Model {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selectedModel
}

// Reset clears all state back to the initial empty store. The persisted
// snapshot is overwritten as well.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = nil
	s.currentChatID = ""
	s.selectedModel = models.DefaultModels()[0]
	s.isStreaming = false
	s.streamingMessageID = ""
	s.persist()
}

func (s *Store) chatIndex(chatID string) int {
	if chatID == "" {
		return -1
	}
	return slices.IndexFunc(s.chats, func(c models.Chat) bool { return c.ID == chatID })
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}

	snapshot := Snapshot{
		Chats:         make([]models.Chat, len(s.chats)),
		CurrentChatID: s.currentChatID,
		SelectedModel: s.selectedModel,
	}
	for i, chat := range s.chats {
		snapshot.Chats[i] = copyChat(chat)
	}

	if err := s.persister.SaveSnapshot(snapshot); err != nil {
		s.logger.Error("Failed to save snapshot", slog.String("err", err.Error()))
	}
}

func copyChat(chat models.Chat) models.Chat {
	chat.Messages = slices.Clone(chat.Messages)
	return chat
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}
