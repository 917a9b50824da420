// Package session drives one send-message cycle: append the user message,
// append the assistant placeholder, stream deltas into it, and settle back to
// idle on completion, cancellation, or error.
package session

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"chat-relay/internal/chatstore"
	"chat-relay/internal/models"
	"chat-relay/internal/stream"
)

// ErrBusy is returned when a send is attempted while another stream is active.
// Exactly one stream may be active per session.
var ErrBusy = errors.New("a stream is already active")

// FailureNotice replaces the placeholder content when a stream fails before
// producing any output.
const FailureNotice = "Sorry, something went wrong. Please try again."

// Streamer issues a chat completion request and yields content deltas.
// stream.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, messages []models.ChatMessage, model string) iter.Seq2[string, error]
}

// Session owns the streaming send cycle for one chat store.
type Session struct {
	store  *chatstore.Store
	client Streamer

	mu     sync.Mutex
	cancel context.CancelFunc

	logger *slog.Logger
}

// New creates a session over the given store and relay client.
func New(store *chatstore.Store, client Streamer, logger *slog.Logger) *Session {
	return &Session{
		store:  store,
		client: client,
		logger: logger.With(slog.String("module", "session")),
	}
}

// Send runs one full send-message cycle for the current chat, creating a chat
// first when none is selected. It blocks until the stream settles. Deltas are
// applied to the placeholder strictly in arrival order; each application
// replaces the content with the full accumulated text.
//
// Cancellation via Cancel (or the caller's context) is not an error: Send
// returns nil and any partial content already applied remains. On any other
// failure partial content also remains, except that a stream which failed
// before producing output has its placeholder replaced, once, with
// FailureNotice.
func (s *Session) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrBusy
	}

	chatID := ""
	if chat, ok := s.store.CurrentChat(); ok {
		chatID = chat.ID
	} else {
		chatID = s.store.CreateNewChat()
	}

	s.store.AddMessage(chatID, models.RoleUser, content)
	placeholderID := s.store.AddMessage(chatID, models.RoleAssistant, "")

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.store.SetStreaming(true, placeholderID)
	s.mu.Unlock()

	defer func() {
		s.store.SetStreaming(false, "")
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	chat, _ := s.store.Chat(chatID)
	msgs := models.WireMessages(chat.Messages)
	model := s.store.SelectedModel().ID

	var accumulated strings.Builder
	for delta, err := range s.client.Stream(ctx, msgs, model) {
		if err != nil {
			if errors.Is(err, stream.ErrCancelled) {
				s.logger.Debug("Stream cancelled", slog.String("chatID", chatID))
				return nil
			}
			s.logger.Error("Stream failed",
				slog.String("chatID", chatID),
				slog.String("err", err.Error()))
			if accumulated.Len() == 0 {
				s.store.UpdateMessage(chatID, placeholderID, FailureNotice)
			}
			return err
		}

		accumulated.WriteString(delta)
		s.store.UpdateMessage(chatID, placeholderID, accumulated.String())
	}

	return nil
}

// Cancel aborts the in-flight stream, if any. It is safe to call at any time.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}
