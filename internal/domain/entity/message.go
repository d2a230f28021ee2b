package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// provisionalPrefix marks client-generated message ids awaiting server
// confirmation. The server id scheme never produces this prefix.
const provisionalPrefix = "local-"

type Message struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"sender_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ReplyTo   *ReplyRef  `json:"reply_to,omitempty"`
}

// ReplyRef is a denormalized snapshot of the quoted message captured at send
// time. It is never updated afterwards.
type ReplyRef struct {
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// NewProvisionalID returns a placeholder id for an optimistic send.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was generated locally and is still
// pending server confirmation.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}

// IsRead reports whether the message carries a read receipt.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}
