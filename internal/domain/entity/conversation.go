package entity

import "time"

// Participant is the snapshot of the remote user shown in the conversation
// header. It is captured when the conversation is opened.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
	Online   bool   `json:"online"`
}

// LastMessagePreview is the list-view projection of a conversation's newest
// message.
type LastMessagePreview struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsFromMe  bool      `json:"is_from_me"`
	IsRead    bool      `json:"is_read"`
}

// ConversationSummary is a derived projection for the conversation list. It is
// not authoritative: the server supplies the baseline and the local cache may
// overlay a newer last message.
type ConversationSummary struct {
	ConversationID string              `json:"conversation_id"`
	Participant    Participant         `json:"participant"`
	LastMessage    *LastMessagePreview `json:"last_message,omitempty"`
	UnreadCount    int                 `json:"unread_count"`
}
