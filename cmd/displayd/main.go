package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"

	"carshop-display-backend/config"
	"carshop-display-backend/internal/api"
	"carshop-display-backend/internal/catalog"
	"carshop-display-backend/internal/db"
	"carshop-display-backend/internal/format"
	"carshop-display-backend/internal/hub"
	"carshop-display-backend/internal/notification"
	"carshop-display-backend/internal/poller"
	"carshop-display-backend/internal/realtime"
	"carshop-display-backend/internal/slots"
	"carshop-display-backend/internal/store"
	"carshop-display-backend/internal/upstream"
)

func main() {
	logger := log.New(os.Stdout, "displayd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; ready notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	if err := appStore.EnsureScreens(ctx, cfg.Screens.IDs); err != nil {
		logger.Fatalf("failed to register screens: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("invalid redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var catalogRepo catalog.Repository
	switch cfg.Catalog.Backend {
	case "file":
		catalogRepo = catalog.NewFileRepository(cfg.Catalog.Path)
	case "redis":
		if redisClient == nil {
			logger.Fatalf("catalog.backend is redis but redis.url is empty")
		}
		catalogRepo = catalog.NewRedisRepository(redisClient, cfg.Catalog.RedisKey)
	default:
		catalogRepo = store.NewCatalogRepository(gormDB)
	}
	services := catalog.New(ctx, catalogRepo)
	logger.Printf("service catalog loaded from %s backend", cfg.Catalog.Backend)

	rec, err := slots.New(cfg.Screens.IDs, services)
	if err != nil {
		logger.Fatalf("failed to create slot table: %v", err)
	}

	var backend hub.Backend = appStore
	if cfg.Screens.Backend == "upstream" {
		backend = upstream.NewClient(&cfg.Upstream)
		logger.Printf("screens are stored by the upstream API at %s", cfg.Upstream.BaseURL)
	}

	hubOpts := []hub.Option{}
	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		hubOpts = append(hubOpts, hub.WithDispatcher(pool))
	}

	var channel *realtime.RedisChannel
	if redisClient != nil {
		channel = realtime.NewRedisChannel(redisClient, cfg.Redis.Channel)
		hubOpts = append(hubOpts, hub.WithPublisher(channel))
	}

	h := hub.New(rec, services, backend, hubOpts...)
	if _, err := h.Refresh(ctx); err != nil {
		logger.Printf("initial screen load failed, starting with empty screens: %v", err)
	}

	formatter, err := format.New(cfg.Server.Timezone)
	if err != nil {
		logger.Printf("display times fall back to UTC: %v", err)
	}

	broadcaster := realtime.NewBroadcaster(rec)
	handler := api.NewHandler(h, services, appStore, formatter, webpushOptions)
	router := api.NewRouter(ctx, cfg, handler, broadcaster)

	if channel != nil {
		handler.SetCatalogNotifier(channel)
		channel.OnCatalogChanged(handler.ReloadServices)
		go h.Run(ctx, channel.Subscribe(ctx))
		logger.Printf("listening for screen updates on redis channel %q", cfg.Redis.Channel)
	}

	pollerSvc := poller.NewService(&cfg.Upstream, h)
	go pollerSvc.Run(ctx)

	go broadcaster.Run(ctx)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
