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
	"github.com/mohamedkhairy/matchline/internal/pubsub"
	"github.com/mohamedkhairy/matchline/internal/social"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// The standalone API publishes events to the Redis stream that the realtime
// service consumes. With the in-process bus there is nobody to deliver to,
// so events are not published at all.
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

	logger.Info("Starting REST API service",
		logger.Int("port", cfg.API.Port),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
		logger.String("store", cfg.StoreType),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store",
			logger.ErrorField(err),
		)
	}
	defer store.Close()

	var publisher events.Publisher
	if cfg.Events.Transport == "redis" {
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()
		publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream)
	} else {
		logger.Warn("EVENTS_TRANSPORT is not redis; realtime pushes are disabled in the standalone API")
	}

	svc := social.NewService(store, publisher, cfg.API.EditWindow)
	handler := api.NewHandler(svc, nil)

	router := mux.NewRouter()
	handler.RegisterRoutes(ctx, router, auth.NewAuthManager(cfg.API.JWTSecret), cfg.API)

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(cfg.Gateway.AllowedOrigins...),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: middlewares(router),
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
	logger.Info("Shutting down REST API service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("REST API service stopped")
}
