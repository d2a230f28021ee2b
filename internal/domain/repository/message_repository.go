package repository

import (
	"context"

	"minglr/internal/domain/entity"
)

// MessagePage is one page of conversation history.
type MessagePage struct {
	Messages []entity.Message
	HasNext  bool
}

// MessageRepository is the remote messaging backend. Implementations wrap the
// REST API; the realtime socket is handled separately.
type MessageRepository interface {
	// GetMessages fetches a page of history, newest first. A non-empty cursor
	// (the id of the oldest locally held message) requests strictly older
	// messages; otherwise page/limit paging is used.
	GetMessages(ctx context.Context, conversationID string, page, limit int, cursor string) (*MessagePage, error)

	// SendMessage delivers an outbound message and returns the confirmed copy
	// with the server-assigned id and timestamp.
	SendMessage(ctx context.Context, conversationID, content, replyToID string) (*entity.Message, error)

	// MarkAsRead marks the conversation read for the local user. Best-effort.
	MarkAsRead(ctx context.Context, conversationID string) error

	// GetConversations lists the server's conversation summaries.
	GetConversations(ctx context.Context) ([]entity.ConversationSummary, error)
}
