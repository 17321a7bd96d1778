package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restro-system/config"
	"restro-system/internal/cache"
	"restro-system/internal/database"
	"restro-system/internal/gateway/clients"
	"restro-system/internal/gateway/handlers"
	"restro-system/internal/health"
	"restro-system/internal/services/billing"
	"restro-system/internal/services/catalog"
	"restro-system/internal/services/orders"
	"restro-system/internal/services/tables"
	"restro-system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg.App.LogLevel)

	db, err := database.NewConnection(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logrus.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigrateRestaurantDB(db, cfg.DB.Driver); err != nil {
		logrus.Fatalf("Failed to migrate restaurant database: %v", err)
	}

	redisClient, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logrus.Warnf("Redis unavailable, running without cache and events: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	c := cache.New(redisClient, cfg.App.CacheTTL)

	if cfg.Auth.JWTSecret != "" {
		utils.SetSecret(cfg.Auth.JWTSecret)
	} else {
		logrus.Warn("JWT_SECRET is empty, API authentication is disabled")
	}

	billingService := billing.NewService(db, c, billing.Policy{FreezePaidBills: cfg.Billing.FreezeWhenPaid})
	orderService := orders.NewService(db, billingService, c)
	tableService := tables.NewService(db, c)
	catalogService := catalog.NewService(db, c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := health.NewMonitor(30*time.Second, map[string]health.Check{
		"database": databaseCheck(db),
		"redis":    c.Ping,
	})
	go monitor.Run(ctx)

	grpcServer := monitor.NewGRPCServer()
	go func() {
		if err := health.Serve(grpcServer, cfg.App.GRPCPort); err != nil {
			logrus.Errorf("gRPC health service stopped: %v", err)
		}
	}()

	healthClient, err := clients.NewHealthClient("localhost:" + cfg.App.GRPCPort)
	if err != nil {
		logrus.Warnf("gRPC health client unavailable: %v", err)
	}
	if healthClient != nil {
		defer healthClient.Close()
	}

	router, err := setupRouter(cfg, routeHandlers{
		catalog:      handlers.NewCatalogHTTPHandler(catalogService, tableService),
		orders:       handlers.NewOrderHTTPHandler(orderService, billingService),
		reservations: handlers.NewReservationHTTPHandler(tableService),
		health:       handlers.NewHealthHTTPHandler(monitor, healthClient),
	})
	if err != nil {
		logrus.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		logrus.WithField("port", cfg.App.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if lvl < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func databaseCheck(db *gorm.DB) health.Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
