package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"minglr/internal/domain/entity"
)

const (
	TypeNewMessage   = "new_message"
	TypeMessagesRead = "messages_read"
)

// Event is the closed set of socket events the cache layer consumes. Payloads
// are validated here, at the boundary, so nothing downstream sees a partial
// event.
type Event interface {
	EventType() string
}

// NewMessageEvent carries a message pushed into a joined conversation.
type NewMessageEvent struct {
	ConversationID string
	Message        entity.Message
}

func (NewMessageEvent) EventType() string { return TypeNewMessage }

// MessagesReadEvent signals the remote participant read the conversation.
type MessagesReadEvent struct {
	ConversationID string
	ReaderID       string
	ReadAt         time.Time
}

func (MessagesReadEvent) EventType() string { return TypeMessagesRead }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type newMessagePayload struct {
	ConversationID string         `json:"conversation_id"`
	Message        entity.Message `json:"message"`
}

type messagesReadPayload struct {
	ConversationID string    `json:"conversation_id"`
	ReaderID       string    `json:"reader_id"`
	ReadAt         time.Time `json:"read_at"`
}

// ParseEvent decodes and validates a raw socket frame into a typed event.
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeNewMessage:
		var p newMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if p.ConversationID == "" || p.Message.ID == "" || p.Message.SenderID == "" {
			return nil, fmt.Errorf("incomplete %s payload", env.Type)
		}
		return NewMessageEvent{ConversationID: p.ConversationID, Message: p.Message}, nil

	case TypeMessagesRead:
		var p messagesReadPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if p.ConversationID == "" || p.ReaderID == "" || p.ReadAt.IsZero() {
			return nil, fmt.Errorf("incomplete %s payload", env.Type)
		}
		return MessagesReadEvent{ConversationID: p.ConversationID, ReaderID: p.ReaderID, ReadAt: p.ReadAt}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
