package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/equipment-locker/internal/config"
	"github.com/iliyamo/equipment-locker/internal/database"
	"github.com/iliyamo/equipment-locker/internal/handler"
	"github.com/iliyamo/equipment-locker/internal/jobs"
	"github.com/iliyamo/equipment-locker/internal/logger"
	"github.com/iliyamo/equipment-locker/internal/metrics"
	"github.com/iliyamo/equipment-locker/internal/middleware"
	"github.com/iliyamo/equipment-locker/internal/queue"
	"github.com/iliyamo/equipment-locker/internal/repository"
	"github.com/iliyamo/equipment-locker/internal/repository/memory"
	"github.com/iliyamo/equipment-locker/internal/router"
	"github.com/iliyamo/equipment-locker/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pinger, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := service.Options{
		Metrics: metrics.NewCollector(reg),
		Logger:  log,
	}

	if cfg.AMQPEnabled {
		pub := queue.NewPublisher(cfg.RabbitMQURL, cfg.EventQueue, log)
		defer pub.Close()
		opts.Events = pub
		go func() {
			if err := queue.StartLeaseConsumer(ctx, cfg.RabbitMQURL, cfg.EventQueue, cfg.LeaseLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("lease consumer stopped")
			}
		}()
	}

	tokens := service.NewTokens(store, cfg.SessionTTL, opts)
	users := service.NewUsers(store, tokens, cfg.BcryptCost, cfg.BootstrapAdminEmail, opts)
	inventory := service.NewInventory(store, opts)
	leases := service.NewLeases(store, inventory, tokens, opts)

	sched := jobs.NewScheduler(tokens, cfg.CleanupSchedule, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("start scheduler")
	}
	defer sched.Stop()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: response cache off, rate limiting in process")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.Logger(log))

	var health echo.HandlerFunc
	if pinger != nil {
		health = handler.Health(pinger)
	}
	cacheCfg := config.LoadCacheConfig()
	router.Register(e, router.Deps{
		Auth:            handler.NewAuthHandler(users),
		Users:           handler.NewUserHandler(users),
		Cells:           handler.NewCellHandler(inventory),
		Leases:          handler.NewLeaseHandler(leases),
		Stats:           handler.NewStatsHandler(service.NewStats(store)),
		Health:          health,
		Metrics:         metrics.Handler(reg),
		Sessions:        tokens,
		RateLimit:       middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb).Middleware(),
		Cache:           middleware.NewRedisCache(cacheCfg, rdb),
		CacheInvalidate: middleware.InvalidateCache(cacheCfg, rdb, "/v1/cell_types"),
		TerminalSecret:  cfg.TerminalJWTSecret,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

// openStore returns the configured store, a pinger for /healthz (nil for
// the memory store) and a close function.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (repository.Store, handler.Pinger, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn().Msg("using in-memory store: data is lost on restart")
		return memory.New(), nil, func() {}, nil
	}

	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err := database.RunMigrations(dsn); err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	return repository.NewMySQLStore(db), db, func() { _ = db.Close() }, nil
}
