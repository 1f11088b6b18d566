package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/matchline/internal/api"
	"github.com/mohamedkhairy/matchline/internal/auth"
	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/internal/presence"
	"github.com/mohamedkhairy/matchline/internal/pubsub"
	"github.com/mohamedkhairy/matchline/internal/realtime"
	"github.com/mohamedkhairy/matchline/internal/social"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting realtime service",
		logger.Int("port", cfg.Gateway.Port),
		logger.Int("max_connections", cfg.Gateway.MaxConnections),
		logger.String("store", cfg.StoreType),
		logger.String("events_transport", cfg.Events.Transport),
		logger.Bool("mount_api", cfg.Gateway.MountAPI),
		logger.Bool("persist_socket_messages", cfg.Gateway.PersistMessages),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := storage.NewStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store",
			logger.ErrorField(err),
		)
	}
	defer store.Close()

	// Initialize event transport
	var (
		publisher events.Publisher
		source    events.Source
	)
	switch cfg.Events.Transport {
	case "redis":
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()
		publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream)
		source = events.NewStreamSource(redisClient, cfg.Events.Stream, cfg.Events.ConsumerGroup, cfg.Events.ConsumerName)
	default:
		bus := events.NewBus()
		defer bus.Close()
		publisher, source = bus, bus
	}

	// Realtime core
	registry := presence.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)
	rooms := realtime.NewRooms(dispatcher)

	// Socket messages are broadcast only unless persistence is switched on
	var (
		sink      realtime.MessageSink
		persister *realtime.MessagePersister
	)
	if cfg.Gateway.PersistMessages {
		persister = realtime.NewMessagePersister(store, realtime.WriteConfigFromPersistConfig(cfg.Persist))
		if err := persister.Start(); err != nil {
			logger.Fatal("Failed to start message persister",
				logger.ErrorField(err),
			)
		}
		sink = persister
	}

	lifecycle := realtime.NewLifecycle(registry, dispatcher, rooms, sink, realtime.Options{
		RequireIdentity: cfg.Gateway.RequireIdentity,
	})

	authManager := auth.NewAuthManager(cfg.Gateway.JWTSecret)
	if !authManager.Enabled() {
		logger.Warn("No JWT secret configured; tokens are taken as user ids")
	}

	hub := realtime.NewHub(cfg.Gateway, lifecycle, authManager)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start socket hub",
			logger.ErrorField(err),
		)
	}

	router := realtime.NewEventRouter(lifecycle)
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		if err := router.Run(ctx, source); err != nil {
			logger.Error("Event router failed",
				logger.ErrorField(err),
			)
		}
	}()

	// Set up HTTP server
	mr := mux.NewRouter()
	mr.Handle("/ws", hub)

	if cfg.Gateway.MountAPI {
		svc := social.NewService(store, publisher, cfg.API.EditWindow)
		api.NewHandler(svc, lifecycle.OnlineUsers).RegisterRoutes(ctx, mr, authManager, cfg.API)
	}

	// Health check endpoints
	mr.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})

	mr.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "alive")
	})

	mr.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if hub.Running() {
			writeStatus(w, http.StatusOK, "ready")
			return
		}
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
	})

	// Stats endpoint
	mr.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.GetStats())
	})

	// Metrics endpoint
	mr.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler: api.CORSMiddleware(cfg.Gateway.AllowedOrigins...)(mr),
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down realtime service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	hub.Stop()
	cancel()
	<-routerDone
	if persister != nil {
		persister.Stop()
	}

	logger.Info("Realtime service stopped")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
