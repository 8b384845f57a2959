package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/config"
	"github.com/iliyamo/tenant-ticketing/internal/database"
	"github.com/iliyamo/tenant-ticketing/internal/handler"
	"github.com/iliyamo/tenant-ticketing/internal/logger"
	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/notification"
	"github.com/iliyamo/tenant-ticketing/internal/queue"
	"github.com/iliyamo/tenant-ticketing/internal/repository"
	"github.com/iliyamo/tenant-ticketing/internal/router"
	"github.com/iliyamo/tenant-ticketing/internal/service"
)

const serviceName = "tenant-ticketing"

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	addr := pflag.String("addr", "", "listen address; overrides APP_PORT")
	migrate := pflag.Bool("migrate", true, "apply the schema before serving")
	noticeLog := pflag.String("notification-log", "logs/notifications.log", "file the notification consumer appends to")
	pflag.Parse()

	// a missing file is fine; real deployments use the environment
	_ = godotenv.Load(*envFile)

	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: serviceName,
		Development: cfg.Log.Format == "console",
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}

	// Redis is optional: without it the catalog is uncached and bookings
	// are not rate limited.
	cacheCfg := config.LoadCacheConfig()
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable; cache and rate limit disabled", zap.Error(err))
		rdb = nil
	}
	var invalidator service.Invalidator = service.NopInvalidator{}
	if rdb != nil {
		defer rdb.Close()
		invalidator = middleware.NewRedisInvalidator(rdb, cacheCfg.Prefix)
	}

	notifiers := notification.Fanout{notification.NewLog(log)}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		notifiers = append(notifiers, pub)

		sink, err := queue.NewFileSink(*noticeLog)
		if err != nil {
			log.Fatal("notification sink", zap.String("path", *noticeLog), zap.Error(err))
		}
		defer func() { _ = sink.Sync() }()
		go func() {
			if err := queue.NewConsumer(cfg.AMQPURL, sink, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}
	if cfg.TelegramToken != "" {
		tg, err := notification.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	store := repository.NewSQLStore(db)
	rec := service.NewRecorder(log)
	sessions := service.NewSessions(store, service.SessionConfig{
		Secret:          cfg.JWTSecret,
		TTL:             time.Duration(cfg.SessionTTLMin) * time.Minute,
		MasterTenantID:  cfg.MasterTenantID,
		ElevatedEmail:   cfg.ElevatedEmail,
		EmergencySecret: cfg.EmergencySecret,
	}, log)
	events := service.NewEventService(store, service.NewTicketSynchronizer(rec), rec, invalidator, log)
	engine := service.NewReservationEngine(store, rec, notifiers, invalidator, service.ReservationConfig{
		NotifyTo: cfg.NotifyTo,
	}, log)
	tenants := service.NewTenantService(store, rec, invalidator, cfg.MasterTenantID, cfg.BcryptCost, log)
	distributor := service.NewDistributor(store, rec, invalidator, log)
	exports := service.NewExportService(repository.NewExportRepo(database.Wrap(db)))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.AccessLog(log))

	router.Register(e, db, router.Handlers{
		Auth:         handler.NewAuthHandler(sessions, tenants, cfg.CookieSecure, log),
		Events:       handler.NewEventHandler(events, log),
		Reservations: handler.NewReservationHandler(engine, log),
		Tenants:      handler.NewTenantHandler(tenants, distributor, log),
		Export:       handler.NewExportHandler(exports, log),
	}, router.Middleware{
		Session:   middleware.Session(sessions),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb, log),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Port
	}
	go func() {
		log.Info("listening", zap.String("addr", listen), zap.String("env", cfg.Env))
		if err := e.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
