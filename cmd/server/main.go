package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pallapay-bridge/internal/config"
	"pallapay-bridge/internal/database"
	"pallapay-bridge/internal/handler"
	"pallapay-bridge/internal/infrastructure/pallapay"
	"pallapay-bridge/internal/logging"
	"pallapay-bridge/internal/monitoring"
	"pallapay-bridge/internal/repo"
	"pallapay-bridge/internal/service"
	"pallapay-bridge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logging.InitLogger(cfg.Debug); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := monitoring.InitTracer(ctx, cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := monitoring.InitMeter(ctx, cfg.ServiceName)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(cfg.Database.DSN())
	if err != nil {
		logging.Fatal("Failed to open database", zap.Error(err))
	}
	dbService := database.New(db, cfg.Database.Name)
	defer dbService.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logging.Fatal("Failed to migrate database", zap.Error(err))
	}

	store := repo.NewStore(db, repo.NewOrderRepo(db), repo.NewCartRepo(db), repo.NewPaymentRepo(db))

	client := pallapay.NewClient(pallapay.Config{
		BaseURL:            cfg.PallapayBaseURL,
		APIKey:             cfg.Gateway.Credentials.APIKey,
		SecretKey:          cfg.Gateway.Credentials.SecretKey,
		Timeout:            cfg.PallapayTimeout,
		WebhookURL:         cfg.PublicBaseURL + handler.CallbackPath,
		SuccessURLTemplate: cfg.SuccessURLTemplate,
		FailedURLTemplate:  cfg.FailedURLTemplate,
	})

	checkoutService := service.NewCheckoutService(store, client, cfg.Gateway.Enabled, cfg.Debug)
	callbackService := service.NewCallbackService(store, cfg.Gateway.Credentials.SecretKey)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handler.NewRouter(
		handler.RouterConfig{
			ServiceName:        cfg.ServiceName,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		},
		handler.NewPaymentHandler(checkoutService, callbackService),
		handler.NewGatewayHandler(cfg.Gateway, dbService),
	)

	if cfg.UnpaidOrderTTL > 0 {
		sweeper := worker.NewUnpaidOrderSweeper(store, cfg.UnpaidOrderTTL, cfg.UnpaidSweepInterval)
		go sweeper.Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Pallapay bridge starting",
			zap.String("port", cfg.Port),
			zap.Bool("gateway_enabled", cfg.Gateway.Enabled),
			zap.Stringer("credentials", cfg.Gateway.Credentials),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
