package handler

import (
	"github.com/labstack/echo/v4"

	"minglr/internal/domain/entity"
	"minglr/internal/usecase"
	"minglr/pkg/errors"
	"minglr/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type openConversationRequest struct {
	ParticipantID    string `json:"participant_id" validate:"required"`
	ParticipantName  string `json:"participant_name"`
	ParticipantPhoto string `json:"participant_photo"`
}

type sendMessageRequest struct {
	Content string    `json:"content" validate:"required,max=2000"`
	ReplyTo *replyRef `json:"reply_to,omitempty"`
}

type replyRef struct {
	MessageID  string `json:"message_id" validate:"required"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type messagesResponse struct {
	Messages []entity.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// OpenConversation marks the conversation active and returns the list the UI
// should render, cached or freshly fetched.
func (h *ChatHandler) OpenConversation(c echo.Context) error {
	conversationID := c.Param("id")

	var req openConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	messages, hasMore, err := h.chatUseCase.OpenConversation(c.Request().Context(), conversationID, entity.Participant{
		ID:       req.ParticipantID,
		Name:     req.ParticipantName,
		PhotoURL: req.ParticipantPhoto,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messagesResponse{Messages: messages, HasMore: hasMore})
}

// CloseConversation clears the active marker when the chat screen is left.
func (h *ChatHandler) CloseConversation(c echo.Context) error {
	h.chatUseCase.CloseConversation()
	return response.Success(c, map[string]string{"status": "closed"})
}

// GetMessages returns only what the cache holds; it never hits the network.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	conversationID := c.Param("id")

	messages, hasMore, ok := h.chatUseCase.CachedMessages(conversationID)
	if !ok {
		return response.Error(c, errors.NotFound("Conversation cache entry", nil))
	}

	return response.Success(c, messagesResponse{Messages: messages, HasMore: hasMore})
}

// LoadOlder fetches the page past the oldest cached message.
func (h *ChatHandler) LoadOlder(c echo.Context) error {
	conversationID := c.Param("id")

	messages, hasMore, err := h.chatUseCase.LoadOlderMessages(c.Request().Context(), conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messagesResponse{Messages: messages, HasMore: hasMore})
}

// SendMessage runs the optimistic send pipeline and returns the confirmed
// message.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.SendMessageInput{
		ConversationID: conversationID,
		Content:        req.Content,
	}
	if req.ReplyTo != nil {
		input.ReplyTo = &entity.ReplyRef{
			MessageID:  req.ReplyTo.MessageID,
			SenderID:   req.ReplyTo.SenderID,
			SenderName: req.ReplyTo.SenderName,
			Content:    req.ReplyTo.Content,
		}
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkAsRead fires a best-effort read receipt; it always reports accepted.
func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	conversationID := c.Param("id")

	h.chatUseCase.MarkConversationRead(c.Request().Context(), conversationID)
	return response.Success(c, map[string]string{"status": "accepted"})
}

// GetConversations lists conversation summaries with cached previews overlaid.
func (h *ChatHandler) GetConversations(c echo.Context) error {
	summaries, err := h.chatUseCase.ListConversations(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summaries)
}
