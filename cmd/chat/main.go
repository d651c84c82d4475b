package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/internal/core/ports"
	"roomchat/internal/core/services"
	httphandlers "roomchat/internal/handlers/http"
	"roomchat/internal/infrastructure/middleware"
	"roomchat/internal/infrastructure/monitoring"
	"roomchat/internal/infrastructure/repositories"
	wssignal "roomchat/internal/infrastructure/signal"
	"roomchat/pkg/config"
	"roomchat/pkg/logger"
	"roomchat/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, source, err := config.LoadFirst("configs/config.yaml", "./config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	if source == "" {
		log.Infow("no config file found, using defaults")
	} else {
		log.Infow("config loaded", "path", source)
	}

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	repoFactory, err := repositories.NewRepositoryFactory(startupCtx, cfg, log)
	startupCancel()
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	var (
		metrics  ports.MetricsRecorder = services.NoopMetrics{}
		registry *prometheus.Registry
	)
	if cfg.Monitoring.PrometheusEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = monitoring.NewPrometheusCollector(registry)
	}

	accounts := repoFactory.CreateAccountRepository()
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, accounts)
	accountService := services.NewAccountService(accounts, authService, cfg.Accounts.MinPasswordLength)
	rooms := services.NewRoomRegistry(cfg.WebSocket.SendTimeout, metrics, log.Named("registry"))
	viewOnce, err := services.NewViewOnceStore(repoFactory.CreateViewOnceRepository(), metrics, log.Named("viewonce"))
	if err != nil {
		log.Fatalw("failed to create view-once store", "error", err)
	}

	wsServer := wssignal.NewWebSocketServer(rooms, authService, metrics, wssignal.OptionsFromConfig(cfg), zapLogger.Named("ws"))

	media, err := httphandlers.NewMediaHandler(viewOnce, cfg.Storage.UploadDir, cfg.Storage.ViewOnceDir, cfg.Storage.MaxUploadBytes, log.Named("media"))
	if err != nil {
		log.Fatalw("failed to prepare storage directories", "error", err)
	}

	checker := monitoring.NewHealthChecker()
	checker.AddCheck("repositories", repoFactory.HealthCheck, 2*time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalw("invalid trusted proxies", "error", err)
	}
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.AccessLogMiddleware(logger.NewContextLogger(zapLogger.Named("http"))),
		middleware.ErrorHandlerMiddleware(log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	httphandlers.NewAuthHandler(accountService, log.Named("auth")).SetupRoutes(router)
	media.SetupRoutes(router)
	httphandlers.NewHealthHandler(checker, rooms, accounts).SetupRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	httphandlers.NewRoomsHandler(rooms).SetupRoutes(api)

	router.GET("/ws/:room/:username", wsServer.HandleWebSocket)
	router.GET("/stats", wsServer.HealthCheck)

	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting roomchat server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Hijacked websocket connections are not tracked by the HTTP server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Websocket connections did not drain", "error", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Error flushing traces", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("roomchat server stopped")
}
