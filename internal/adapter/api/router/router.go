package router

import (
	"github.com/labstack/echo/v4"

	"minglr/internal/adapter/api/handler"
)

func Setup(e *echo.Echo, chatHandler *handler.ChatHandler, healthHandler *handler.HealthHandler) {
	SetupChatRouter(e, chatHandler)
	SetupHealthRouter(e, healthHandler)
}
