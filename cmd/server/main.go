package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediabot/internal/api"
	"mediabot/internal/bot"
	"mediabot/internal/clock"
	"mediabot/internal/config"
	"mediabot/internal/database"
	"mediabot/internal/notify"
	"mediabot/internal/repository"
	"mediabot/internal/search"
	"mediabot/internal/telegram"
	"mediabot/internal/tier"
	"mediabot/internal/token"
	"mediabot/internal/webhook"
	"mediabot/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET is empty; webhook requests are not authenticated")
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repos := repository.New(db, cfg.DBQueryTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	tgClient := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.RequestTimeout)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	tiers := tier.NewResolver(tier.NewCachedStore(repos.Subscribers, cfg.TierCacheSize, cfg.TierCacheTTL), clk, logger)
	tokens := token.NewBroker(repos.Tokens, logger)
	orchestrator := search.New(repos.Media, repos.Users, tiers, tokens, clk, search.Options{
		SiteURL:         cfg.SiteURL,
		VideoExtensions: cfg.VideoExtensions,
	}, logger)
	broadcaster := notify.NewBroadcaster(repos.Users, tgClient, hub, clk, cfg.BroadcastDelay, cfg.IsAdmin, logger)

	telegramBot := bot.New(orchestrator, tgClient, broadcaster, cfg.IsAdmin, logger)
	webhookHandler := webhook.NewHandler(cfg.WebhookSecret, cfg.RequestTimeout, telegramBot, logger)
	searchHandler := api.NewSearchHandler(orchestrator, cfg.IsAdmin)
	subscriberHandler := api.NewSubscriberHandler(orchestrator)
	broadcastHandler := api.NewBroadcastHandler(broadcaster, hub.ServeWs, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger), api.Metrics())

	// Webhook Routes
	r.POST("/webhook/telegram", webhookHandler.HandleUpdate)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Admin API Routes
	apiGroup := r.Group("/api", api.AdminAuth(cfg.AdminAPIKey))
	{
		apiGroup.GET("/search", searchHandler.Search)
		apiGroup.POST("/tokens", searchHandler.MintToken)
		apiGroup.GET("/tokens/:token", searchHandler.ResolveToken)

		apiGroup.GET("/subscribers/:id", subscriberHandler.GetStatus)
		apiGroup.POST("/subscribers/:id/grant", subscriberHandler.Grant)
		apiGroup.GET("/stats", subscriberHandler.GetStats)

		apiGroup.POST("/broadcast", broadcastHandler.SendBroadcast)
		apiGroup.GET("/ws", broadcastHandler.Feed)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to run server", slog.String("error", err.Error()))
			stop()
		}
	}()

	if cfg.PublicURL != "" {
		setupCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		if err := tgClient.SetWebhook(setupCtx, cfg.PublicURL+"/webhook/telegram", cfg.WebhookSecret); err != nil {
			logger.Error("Failed to register webhook", slog.String("error", err.Error()))
		} else {
			logger.Info("Webhook registered", slog.String("url", cfg.PublicURL+"/webhook/telegram"))
		}
		cancel()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown", slog.String("error", err.Error()))
	}
	webhookHandler.Wait()
	telegramBot.Wait()
	broadcastHandler.Wait()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Server stopped")
}
