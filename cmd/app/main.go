package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/untibullet/scouting-reports/internal/auth"
	"github.com/untibullet/scouting-reports/internal/config"
	"github.com/untibullet/scouting-reports/internal/events"
	"github.com/untibullet/scouting-reports/internal/handlers"
	"github.com/untibullet/scouting-reports/internal/logging"
	"github.com/untibullet/scouting-reports/internal/metrics"
	"github.com/untibullet/scouting-reports/internal/repository"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting scouting reports service",
		zap.String("server_address", cfg.Server.GetAddress()))

	// Подключение к базе данных
	dbPool, err := initDatabase(context.Background(), cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("database connection established")

	repo := repository.New(dbPool)

	if cfg.Database.Migrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		applied, err := repo.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	clock := clockwork.NewRealClock()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, clock)

	publisher := initPublisher(cfg.NATS, logger)
	defer publisher.Close()

	m := metrics.New()

	handler := handlers.New(repo, tokens, publisher, m, clock, logger)

	// Настройка Echo сервера
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.Info("request",
					zap.String("method", c.Request().Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.String("request_id", v.RequestID),
					zap.Duration("latency", v.Latency),
				)
			} else {
				logger.Error("request error",
					zap.String("method", c.Request().Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.String("request_id", v.RequestID),
					zap.Error(v.Error),
				)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(m.Middleware())

	// Регистрация роутов
	handler.RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", m.Handler())

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := cfg.Server.GetAddress()
		logger.Info("server listening", zap.String("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// initDatabase инициализирует пул подключений к PostgreSQL
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// initPublisher подключается к NATS; без URL или при ошибке события только логируются
func initPublisher(cfg config.NATSConfig, logger *zap.Logger) events.Publisher {
	if cfg.URL == "" {
		logger.Info("nats url not set, report events are logged only")
		return events.NewNopPublisher(logger)
	}

	publisher, err := events.ConnectNATS(cfg.URL, cfg.SubjectPrefix, logger)
	if err != nil {
		logger.Warn("failed to connect to nats, report events are logged only", zap.Error(err))
		return events.NewNopPublisher(logger)
	}

	logger.Info("connected to nats", zap.String("url", cfg.URL))
	return publisher
}
