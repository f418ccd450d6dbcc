package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mock-test-service/internal/app"
	"mock-test-service/internal/config"
	"mock-test-service/internal/domain"
	"mock-test-service/internal/infra/memory"
	"mock-test-service/internal/infra/postgres"
	redisinfra "mock-test-service/internal/infra/redis"
	"mock-test-service/internal/infra/telegram"
	transport "mock-test-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server and closure monitor.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the submission endpoint and the closure monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)
	loc, err := cfg.Engine.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader memory.TestLoader
		lister app.TestLister
		ledger app.ResultLedger
	)
	if pool != nil {
		pgLoader := postgres.NewTestLoader(pool)
		loader, lister = pgLoader, pgLoader
		ledger = postgres.NewResultLedger(pool)
	} else {
		logger.Warn("postgres not configured, using in-memory demo storage")
		static := memory.NewStaticTestLoader(sampleTests(time.Now())...)
		loader, lister = static, static
		ledger = memory.NewResultLedger()
	}

	testTTL := config.TTLDuration(cfg.Engine.TestCacheTTL, 10*time.Minute)
	var tests app.TestRepository
	var state app.NotificationState
	if redisClient != nil {
		tests = redisinfra.NewTestRepository(redisClient, loader, testTTL)
		state = redisinfra.NewNotificationState(redisClient, config.TTLDuration(cfg.Redis.TTL, 7*24*time.Hour))
	} else {
		tests = memory.NewTestRepository(loader, testTTL)
		state = memory.NewNotificationState()
	}

	ioTimeout := config.TTLDuration(cfg.Engine.IOTimeout, 10*time.Second)
	hub := transport.NewHub()
	var messenger app.Messenger = hub
	if cfg.Telegram.Token != "" {
		messenger = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, ioTimeout)
	}

	service := app.NewSubmissionService(tests, ledger, app.Options{
		ItemCount: cfg.Engine.ItemCount,
		IOTimeout: ioTimeout,
	}, logger)
	monitor := app.NewMonitorWithClock(lister, ledger, messenger, state, app.MonitorOptions{
		PollInterval:    cfg.Engine.PollInterval(),
		CloseLookahead:  cfg.Engine.CloseLookahead(),
		ItemCount:       cfg.Engine.ItemCount,
		ChannelID:       cfg.Engine.ChannelID,
		LeaderboardSize: cfg.Engine.LeaderboardSize,
		IOTimeout:       ioTimeout,
		Retention:       cfg.Engine.Retention(),
	}, logger, func() time.Time { return time.Now().In(loc) })

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(transport.NewWSHandler(service, hub, logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting mock test service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sampleTests provides one open demo test when no database is configured.
func sampleTests(now time.Time) []domain.Test {
	return []domain.Test{
		{
			ID:       1,
			StartsAt: now.Add(-time.Minute),
			EndsAt:   now.Add(2 * time.Hour),
			Answers:  "1a2b3c4d5a6b7c8d9a10b",
		},
	}
}
