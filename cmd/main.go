// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trailpost/event-registration/internal/authz"
	"github.com/trailpost/event-registration/internal/blobstore"
	"github.com/trailpost/event-registration/internal/config"
	"github.com/trailpost/event-registration/internal/database"
	"github.com/trailpost/event-registration/internal/handler"
	"github.com/trailpost/event-registration/internal/payment"
	"github.com/trailpost/event-registration/internal/repository"
	"github.com/trailpost/event-registration/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to postgres", zap.String("host", cfg.DBHost))

	// Stores.
	eventRepo := repository.NewEventRepository(pool)
	rosterRepo := repository.NewRosterRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	waiverRepo := repository.NewWaiverRepository(pool)
	blob := blobstore.NewSignedStore(cfg.BlobBaseURL, cfg.BlobSecret)

	// Engine and collaborators.
	svc := service.NewRegistrationService(eventRepo, rosterRepo, profileRepo, waiverRepo)
	initiator := payment.NewInitiator(
		payment.NewRESTProcessor(cfg.PaymentAPIURL),
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL,
	)
	reconciler := payment.NewReconciler(svc, cfg.WebhookSecret, logger)
	gate := authz.NewGate(eventRepo, rosterRepo)

	// Handlers.
	eventHandler := handler.NewEventHandler(svc, initiator, logger)
	webhookHandler := handler.NewWebhookHandler(reconciler, logger)
	fileHandler := handler.NewFileHandler(gate, blob, cfg)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.AccessLog(logger))
	r.Use(handler.Metrics)
	r.Use(handler.CORS)
	r.Use(handler.Auth(cfg.JWTSecret))

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Post("/{id}/join", eventHandler.Join)
		r.Delete("/{id}/participants", eventHandler.RemoveParticipant)
		r.Get("/{id}/roster", eventHandler.ListRoster)
		r.Post("/{id}/waivers", eventHandler.CompleteWaiver)
	})
	r.Post("/webhooks/payment", webhookHandler.PaymentConfirmed)
	r.Get("/files/presign", fileHandler.Presign)
	r.Post("/files/uploads", fileHandler.PresignUpload)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
