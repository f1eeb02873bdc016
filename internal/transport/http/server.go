package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"socialgraph/internal/cache"
	"socialgraph/internal/config"
	"socialgraph/internal/database"
	"socialgraph/internal/handler"
	"socialgraph/internal/logger"
	"socialgraph/internal/queue"
	"socialgraph/internal/realtime"
	"socialgraph/internal/redis"
	"socialgraph/internal/repository"
	"socialgraph/internal/service"
	authmw "socialgraph/internal/transport/http/middleware"
	"socialgraph/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Optional Redis: streams, preview cache and the delivery relay
	var (
		rdb          *redis.Client
		publisher    queue.Publisher
		previewCache cache.PreviewCache
	)
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		publisher = queue.NewPublisher(rdb.Client, log)
		previewCache = cache.NewPreviewCache(rdb.Client)
		log.Info("connected to redis")
	} else {
		log.Warn("REDIS_URL not set; events, preview cache and distributed delivery are disabled")
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tx := database.NewTransactor(db)

	// 5. Real-time delivery
	registry := realtime.NewLocalRegistry(log)
	var dispatchOpts []realtime.DispatcherOption
	var relay *realtime.RedisRelay
	if cfg.RealtimeDistributed && rdb != nil {
		relay = realtime.NewRedisRelay(rdb.Client, log)
		dispatchOpts = append(dispatchOpts, realtime.WithRelay(relay))
	}
	dispatcher := realtime.NewDispatcher(registry, log, dispatchOpts...)

	// 6. Services
	guard := service.NewPrivacyGuard(userRepo, followRepo, convRepo)
	notificationService := service.NewNotificationService(notifRepo, userRepo, dispatcher, log)
	followService := service.NewFollowService(followRepo, userRepo, tx, guard, notificationService, publisher, log)

	var previewer service.LinkPreviewer
	if cfg.LinkPreviewEnabled {
		previewer = service.NewHTMLLinkPreviewer(service.LinkPreviewConfig{
			Timeout:  cfg.LinkPreviewTimeout,
			CacheTTL: cfg.LinkPreviewCacheTTL,
		}, previewCache, log)
	}
	conversationService := service.NewConversationService(convRepo, msgRepo, userRepo, tx, guard, previewer, dispatcher, log)
	userService := service.NewUserService(userRepo)

	// 7. Background workers
	var manager *worker.Manager
	if rdb != nil {
		mcfg := worker.DefaultManagerConfig()
		mcfg.WorkerCount = cfg.WorkerCount
		manager = worker.NewManager(
			queue.NewConsumer(rdb.Client, log),
			worker.NewHandler(notificationService, log),
			mcfg,
			log,
		)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
	}

	relayDone := make(chan struct{})
	if relay != nil {
		go func() {
			defer close(relayDone)
			if err := relay.Run(ctx, dispatcher.DeliverLocal, nil); err != nil {
				log.Error("relay stopped", zap.Error(err))
			}
		}()
	} else {
		close(relayDone)
	}

	// 8. Handlers and routes
	ws := realtime.NewHandler(realtime.HandlerConfig{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.WSAllowedOrigins,
		AllowAnyOrigin:  cfg.IsDevelopment() && len(cfg.WSAllowedOrigins) == 0,
		SendBuffer:      cfg.WSSendBuffer,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
	}, registry, dispatcher, conversationService, log)

	router := NewRouter(RouterConfig{
		FollowHandler:       handler.NewFollowHandler(followService, userService, log),
		ConversationHandler: handler.NewConversationHandler(conversationService, log),
		NotificationHandler: handler.NewNotificationHandler(notificationService, log),
		UserHandler:         handler.NewUserHandler(userService, guard, log),
		WS:                  ws.ServeWS,
		RateLimiter:         authmw.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		JWTSecret:           cfg.JWTSecret,
	})

	// 9. Serve until a signal arrives
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			stop()
			manager.Stop()
			<-relayDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}

	manager.Stop()
	<-relayDone
	log.Info("server stopped")
	return nil
}
