package models

import "time"

// Role represents the role of a message participant.
type Role string

const (
	// RoleSystem represents an instruction message that is sent upstream but never
	// stored in a chat.
	RoleSystem Role = "system"
	// RoleUser represents a user message.
	RoleUser Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant Role = "assistant"
)

// ChatMessage is the wire unit sent to the relay endpoint and forwarded to the
// upstream provider. It is immutable once sent.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is an individual communication entry within a chat. During streaming
// the assistant placeholder message is the only message mutated in place, and
// its content only ever grows.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat represents a conversation container. Its title is derived once from the
// first user message and then frozen.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WireMessages converts a chat's stored messages into the wire form sent to the
// relay, skipping messages with empty content such as the streaming placeholder.
func WireMessages(messages []Message) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		msgs = append(msgs, ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return msgs
}
