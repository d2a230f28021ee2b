package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"minglr/internal/cache"
)

type HealthHandler struct {
	store *cache.Store
}

func NewHealthHandler(store *cache.Store) *HealthHandler {
	return &HealthHandler{
		store: store,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Gateway is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckCache reports how many conversations are currently cached.
func (h *HealthHandler) CheckCache(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"conversations": h.store.Len(),
	})
}
