package router

import (
	"github.com/labstack/echo/v4"

	"minglr/internal/adapter/api/handler"
)

// SetupChatRouter sets up all conversation cache routes.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler) {
	chatGroup := e.Group("/v1/conversations")

	chatGroup.GET("", chatHandler.GetConversations)             // GET /v1/conversations - List summaries
	chatGroup.POST("/:id/open", chatHandler.OpenConversation)   // POST /v1/conversations/:id/open - Enter chat screen
	chatGroup.POST("/:id/close", chatHandler.CloseConversation) // POST /v1/conversations/:id/close - Leave chat screen
	chatGroup.GET("/:id/messages", chatHandler.GetMessages)     // GET /v1/conversations/:id/messages - Cached messages
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)    // POST /v1/conversations/:id/messages - Send message
	chatGroup.GET("/:id/messages/older", chatHandler.LoadOlder) // GET /v1/conversations/:id/messages/older - Page back
	chatGroup.PUT("/:id/read", chatHandler.MarkAsRead)          // PUT /v1/conversations/:id/read - Read receipt
}
