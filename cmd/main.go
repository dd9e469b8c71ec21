package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	auctionmem "github.com/cristianortiz/pigeonAuction/internal/auction/infra/repository/memory"
	auctionpg "github.com/cristianortiz/pigeonAuction/internal/auction/infra/repository/postgres"
	"github.com/cristianortiz/pigeonAuction/internal/auction/infra/rest"
	"github.com/cristianortiz/pigeonAuction/internal/auction/infra/scheduler"
	auctionws "github.com/cristianortiz/pigeonAuction/internal/auction/infra/websocket"
	notifyapp "github.com/cristianortiz/pigeonAuction/internal/notification/application"
	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	notificationmem "github.com/cristianortiz/pigeonAuction/internal/notification/infra/repository/memory"
	notificationpg "github.com/cristianortiz/pigeonAuction/internal/notification/infra/repository/postgres"
	"github.com/cristianortiz/pigeonAuction/internal/notification/infra/sender"
	"github.com/cristianortiz/pigeonAuction/internal/shared/cache"
	rediscache "github.com/cristianortiz/pigeonAuction/internal/shared/cache/redis"
	"github.com/cristianortiz/pigeonAuction/internal/shared/config"
	"github.com/cristianortiz/pigeonAuction/internal/shared/db"
	"github.com/cristianortiz/pigeonAuction/internal/shared/db/migrations"
	"github.com/cristianortiz/pigeonAuction/internal/shared/httpserver"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	sharedws "github.com/cristianortiz/pigeonAuction/internal/shared/websocket"
	userapp "github.com/cristianortiz/pigeonAuction/internal/user/application"
	userdomain "github.com/cristianortiz/pigeonAuction/internal/user/domain"
	usermem "github.com/cristianortiz/pigeonAuction/internal/user/infra/repository/memory"
	userpg "github.com/cristianortiz/pigeonAuction/internal/user/infra/repository/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// storage groups the adapters that depend on the storage driver
type storage struct {
	gateway domain.Gateway
	outbox  notification.Outbox
	users   userdomain.UserRepository
	close   func()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	// Inicializa logger
	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting pigeonAuction server...",
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpserver.HealthCheck{}

	st, err := openStorage(ctx, cfg, checks)
	if err != nil {
		log.Fatal("Storage setup failed", zap.Error(err))
	}
	defer st.close()

	var (
		locks   cache.LockManager = cache.NewLocalLockManager()
		limiter cache.RateLimiter = cache.NewLocalRateLimiter()
	)
	if cfg.Redis.Enabled() {
		rc, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer rc.Close()
		locks = rediscache.NewLockManager(rc)
		limiter = rediscache.NewRateLimiter(rc)
		checks["redis"] = rc.Ping
		log.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// every long running worker shares one group, the first failure stops the rest
	g, gctx := errgroup.WithContext(ctx)

	hub := sharedws.NewHub()
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	service := application.New(st.gateway, auctionws.NewHubPublisher(hub), time.Now)

	server := httpserver.NewServer(checks)
	rest.NewAuctionHandler(service, st.users, rest.RateLimit{
		Limiter: limiter,
		Limit:   cfg.Bidding.RateLimit,
		Window:  cfg.Bidding.RateWindow.Duration,
	}, time.Now).RegisterRoutes(server.App())

	wsHandler := auctionws.NewAuctionWSHandler(service, st.users, hub)
	wsHandler.RegisterRoutes(gctx, server.App())
	g.Go(func() error {
		wsHandler.ListenForMessages(gctx)
		return nil
	})

	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewSweeper(service, locks, scheduler.Config{
			Interval:  cfg.Scheduler.Interval.Duration,
			BatchSize: cfg.Scheduler.BatchSize,
			LockTTL:   cfg.Scheduler.LockTTL.Duration,
		})
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	}

	if cfg.Notify.Enabled {
		senders := []notifyapp.Sender{sender.NewLogSender(log)}
		if cfg.Notify.WebhookURL != "" {
			senders = append(senders, sender.NewWebhookSender(cfg.Notify.WebhookURL))
		}
		if cfg.Notify.SMTP.Enabled() {
			senders = append(senders, sender.NewSMTPSender(sender.SMTPConfig{
				Host:     cfg.Notify.SMTP.Host,
				Port:     cfg.Notify.SMTP.Port,
				User:     cfg.Notify.SMTP.User,
				Password: cfg.Notify.SMTP.Password,
				From:     cfg.Notify.SMTP.From,
			}))
		}
		dispatcher := notifyapp.NewDispatcher(st.outbox, userapp.NewRecipientResolver(st.users), senders, notifyapp.Config{
			Interval:     cfg.Notify.Interval.Duration,
			BatchSize:    cfg.Notify.BatchSize,
			MaxAttempts:  cfg.Notify.MaxAttempts,
			RetryBackoff: cfg.Notify.RetryBackoff.Duration,
			Lease:        cfg.Notify.Lease.Duration,
		}, time.Now)
		g.Go(func() error {
			dispatcher.Run(gctx)
			return nil
		})
	}

	// Arranca el servidor HTTP
	g.Go(func() error {
		if err := server.Start(cfg.HTTP.Addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("pigeonAuction server failed", zap.Error(err))
	}
	log.Info("pigeonAuction server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config, checks map[string]httpserver.HealthCheck) (*storage, error) {
	log := logger.GetLogger()

	if cfg.Storage == "memory" {
		log.Warn("Using in-memory storage, data is lost on restart")
		outbox := notificationmem.NewOutbox()
		return &storage{
			gateway: auctionmem.NewGateway(outbox),
			outbox:  outbox,
			users:   usermem.NewUserRepository(),
			close:   func() {},
		}, nil
	}

	if cfg.DB.RunMigrations {
		// Ejecuta migraciones de base de datos
		log.Info("Running database migrations...")
		if err := migrations.RunMigrations(cfg.DB.DSN()); err != nil {
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		log.Info("Database migrations completed successfully.")
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	checks["postgres"] = pool.Ping
	return &storage{
		gateway: auctionpg.NewGateway(pool),
		outbox:  notificationpg.NewOutbox(pool),
		users:   userpg.NewUserRepository(pool),
		close:   pool.Close,
	}, nil
}
