package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"minglr/internal/adapter/api"
	"minglr/internal/adapter/api/handler"
	"minglr/internal/adapter/api/router"
	"minglr/internal/adapter/repository"
	"minglr/internal/cache"
	"minglr/internal/infrastructure/realtime"
	"minglr/internal/usecase"
	"minglr/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgRepo := repository.NewRestMessageRepository(cfg.APIBaseURL, cfg.APIToken)
	store := cache.NewStore(cfg.FreshWindow, cfg.CacheMaxAge)
	chatUseCase := usecase.NewChatUseCase(msgRepo, store, cfg.SelfUserID)

	listener := realtime.NewListener(cfg.SocketURL, cfg.APIToken, chatUseCase.HandleRealtimeEvent)
	go listener.Run(ctx)

	go runSweepLoop(ctx, chatUseCase, cfg.SweepInterval)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	chatHandler := handler.NewChatHandler(chatUseCase)
	healthHandler := handler.NewHealthHandler(store)

	router.Setup(e, chatHandler, healthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Printf("Starting chat gateway on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

func runSweepLoop(ctx context.Context, chatUseCase *usecase.ChatUseCase, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			chatUseCase.SweepCache()
		case <-ctx.Done():
			return
		}
	}
}
