package main

import (
	"context"
	"log"

	"marketplace-chat/config"
	"marketplace-chat/internal/events"
	"marketplace-chat/internal/handler"
	"marketplace-chat/internal/mailer"
	"marketplace-chat/internal/outbox"
	chatredis "marketplace-chat/internal/redis"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/server"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/websocket"
	"marketplace-chat/pkg/database"
	"marketplace-chat/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	database.Connect(cfg)
	defer database.Close()
	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	db := database.DB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsLog := websocket.NewLogger(l)
	hub := websocket.NewHub(wsLog)

	var (
		broadcaster    services.Broadcaster = websocket.NewLocalBroadcaster(hub, wsLog)
		limiter        websocket.Limiter
		connectLimiter *chatredis.RateLimiter
	)
	if cfg.RedisEnabled() {
		client, err := chatredis.Connect(ctx, chatredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()

		bus := events.NewRedisBus(client, l)
		broadcaster = websocket.NewRedisBroadcaster(bus, hub, wsLog)
		bridge := websocket.NewRedisBridge(bus, hub, wsLog)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				l.Logger.Error("redis bridge stopped", zap.Error(err))
			}
		}()

		connectLimiter = chatredis.NewRateLimiter(client, chatredis.DefaultRateLimitConfig(cfg.MessageRateLimit))
		limiter = connectLimiter
		l.Infof("Redis fan-out enabled at %s", cfg.RedisAddr)
	}

	var m mailer.Mailer = mailer.NewLogMailer(l)
	if cfg.SMTPEnabled() {
		m = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	apps := repository.NewApplicationRepository(db)
	messages := repository.NewMessageRepository(db)
	notifications := repository.NewNotificationRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	authService := services.NewAuthService(cfg)
	notifier := services.NewNotifier(notifications, presenceRepo, repository.NewUserRepository(db), outboxRepo, broadcaster, m, l)
	policy := services.NewDeliveryPolicy(apps, presenceRepo, messages, hub, broadcaster, notifier, l)
	presenceService := services.NewPresenceService(presenceRepo, hub, broadcaster, l)
	conversationService := services.NewConversationService(apps, hub, broadcaster, l)
	messageService := services.NewMessageService(db, apps, messages, broadcaster, policy, l)

	router := websocket.NewRouter(conversationService, messageService, limiter, wsLog)

	outbox.NewRunner(outbox.DefaultProcessor(cfg, outboxRepo, m, l)).Start(ctx)

	srv := server.New(cfg, l)
	srv.OnShutdown(func() {
		cancel()
		hub.Close()
	})
	srv.SetupRoutes(&server.Handlers{
		Message:      handler.NewMessageHandler(messageService),
		Notification: handler.NewNotificationHandler(services.NewNotificationService(notifications)),
		Application:  handler.NewApplicationHandler(policy),
		WS:           websocket.NewHandler(authService, presenceService, hub, router, cfg.WSAuthTimeout, wsLog),
	}, authService, connectLimiter)

	if err := srv.Start(); err != nil {
		l.Logger.Error("server stopped with error", zap.Error(err))
	}
}
