package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"farmlink/internal/api"
	"farmlink/internal/auth"
	"farmlink/internal/database"
	"farmlink/internal/geocode"
	"farmlink/internal/llm"
	"farmlink/internal/monitoring"
	"farmlink/internal/orders"
	"farmlink/internal/pricing"
	"farmlink/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the metrics server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func openDatabase(migrate bool) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if !migrate {
		return db, nil
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.Database.Seed {
		if err := database.Seed(context.Background(), db, auth.HashPassword); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// newAuthService wires the account store and token manager. monitor may be nil.
func newAuthService(db *gorm.DB, monitor *monitoring.Monitor) (*auth.Service, *database.UserStore) {
	users := database.NewUserStore(db)
	tokens := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenExpiration)
	return auth.NewService(users, tokens, auth.NewBroadcaster(monitor), logger.Named("auth")), users
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDatabase(true)
	if err != nil {
		return err
	}
	defer db.Close()

	monitor := monitoring.NewMonitor()
	monitor.SetStatus("environment", cfg.Environment)
	monitor.SetStatus("database", cfg.Database.Driver)

	authSvc, users := newAuthService(db, monitor)

	var provider llm.Provider
	if p, err := llm.New(cfg.LLM); err != nil {
		logger.Warn("pricing disabled", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	} else {
		provider = p
		monitor.SetStatus("llm_provider", p.Name())
	}

	pricingSvc := pricing.NewService(provider, monitor, logger.Named("pricing"))
	if cfg.LLM.Temperature > 0 {
		pricingSvc.SetTemperature(cfg.LLM.Temperature)
	}

	server := api.NewServer(cfg, api.Deps{
		Auth:     authSvc,
		Orders:   orders.NewService(database.NewOrderStore(db), monitor, logger.Named("orders")),
		Products: database.NewProductStore(db),
		Users:    users,
		Weather:  weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, monitor, logger.Named("weather")),
		Pricing:  pricingSvc,
		Geocoder: geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.Timeout, monitor, logger.Named("geocode")),
		Monitor:  monitor,
		Logger:   logger.Named("api"),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(monitor)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	return nil
}

func startMetricsServer(monitor *monitoring.Monitor) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.GET(cfg.Metrics.Path, gin.WrapH(monitor.Handler()))

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.Int("port", cfg.Metrics.Port))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return metricsServer
}
