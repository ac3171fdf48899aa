package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	reviewpipeline "ranklist/contexts/list-moderation/review-pipeline"
	"ranklist/contexts/list-moderation/review-pipeline/adapters/notify"
	postgresadapter "ranklist/contexts/list-moderation/review-pipeline/adapters/postgres"
	"ranklist/contexts/list-moderation/review-pipeline/adapters/urlcheck"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/domain/services"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
	"ranklist/internal/platform/config"
	"ranklist/internal/platform/db"
	"ranklist/internal/platform/httpserver"
	"ranklist/internal/platform/messaging"
	"ranklist/internal/platform/monitoring"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	metrics  *monitoring.PipelineMetrics
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres       *db.Postgres
	metrics        *monitoring.PipelineMetrics
	bus            *messaging.Kafka
	module         reviewpipeline.Module
	reaperInterval time.Duration
	pollInterval   time.Duration
	enableReaper   bool
	enableConsumer bool
	logger         *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	pg, metrics, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	module := buildReviewModule(cfg, pg, nil, metrics, logger)
	auth := httpserver.Authenticator{Secret: []byte(cfg.JWTSecret)}
	server := httpserver.New(module, auth, metrics.Handler(), logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	pg, metrics, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	return &WorkerApp{
		postgres:       pg,
		metrics:        metrics,
		bus:            kafka,
		module:         buildReviewModule(cfg, pg, kafka, metrics, logger),
		reaperInterval: cfg.ReaperInterval,
		pollInterval:   cfg.OutboxPollInterval,
		enableReaper:   cfg.EnableReaper,
		enableConsumer: cfg.EnableNotificationConsumer,
		logger:         logger,
	}, nil
}

func connect(cfg config.Config, logger *slog.Logger) (*db.Postgres, *monitoring.PipelineMetrics, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN, db.PoolConfig{
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		MaxIdleConns:    cfg.PostgresMaxIdleConns,
		ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
		SlowQuery:       cfg.PostgresSlowQuery,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.EnableAutoMigrate {
		if err := postgresadapter.AutoMigrate(pg.DB); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	metrics, err := monitoring.NewPipelineMetrics(cfg.ServiceName)
	if err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	return pg, metrics, nil
}

// buildReviewModule wires the review pipeline onto postgres. bus is nil in
// the API process, which only writes outbox rows.
func buildReviewModule(
	cfg config.Config,
	pg *db.Postgres,
	bus *messaging.Kafka,
	metrics ports.Metrics,
	logger *slog.Logger,
) reviewpipeline.Module {
	clock := postgresadapter.SystemClock{}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	directory := postgresadapter.NewDirectory(pg.DB, clock)

	deps := reviewpipeline.Dependencies{
		Repository:      repo,
		Records:         repo,
		Outbox:          repo,
		Lists:           services.NewListCatalog(listConfigs(cfg.Lists)...),
		Entries:         directory,
		Validator:       urlcheck.Validator{RequireKnownProvider: cfg.EnableProviderCheck},
		Permissions:     directory,
		Bans:            directory,
		Settings:        directory,
		Standing:        directory,
		Sink:            notificationSink(cfg, pg, clock, logger),
		Clock:           clock,
		IDGen:           postgresadapter.UUIDGenerator{},
		Metrics:         metrics,
		BlockingBanTier: entities.BanTier(cfg.BlockingBanTier),
		ClaimTimeout:    cfg.ClaimTimeout,
		OutboxBatch:     100,
		Logger:          logger,
	}
	if bus != nil {
		deps.Publisher = bus
		deps.Subscriber = bus
	}
	return reviewpipeline.NewModule(deps)
}

func listConfigs(definitions []config.ListDefinition) []entities.ListConfig {
	if len(definitions) == 0 {
		return services.DefaultLists()
	}
	lists := make([]entities.ListConfig, 0, len(definitions))
	for _, definition := range definitions {
		lists = append(lists, entities.ListConfig{
			ListID:                definition.ID,
			RawFootageTopN:        definition.RawFootageTopN,
			RequireCompletionTime: definition.RequireCompletionTime,
		})
	}
	return lists
}

// notificationSink always writes to the site inbox and adds Discord DMs when
// a bot token is configured.
func notificationSink(cfg config.Config, pg *db.Postgres, clock ports.Clock, logger *slog.Logger) ports.NotificationSink {
	sinks := notify.Fanout{postgresadapter.NewNotificationInbox(pg.DB, clock)}
	if cfg.DiscordBotToken == "" {
		return sinks
	}
	session, err := notify.NewDiscordSession(cfg.DiscordBotToken)
	if err != nil {
		logger.Warn("discord notifications disabled",
			"event", "bootstrap_discord_disabled",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
		return sinks
	}
	return append(sinks, notify.DiscordSink{
		Session:        session,
		Accounts:       postgresadapter.NewDirectory(pg.DB, clock),
		StaffChannelID: cfg.DiscordStaffChannelID,
	})
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	var errs []error
	if a.metrics != nil {
		errs = append(errs, a.metrics.Shutdown(context.Background()))
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	return errors.Join(errs...)
}

// Run supervises the reaper and the outbox relay as independent tickers. A
// failed cycle is logged by the worker itself and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableConsumer {
		if err := w.module.Consumer.Start(ctx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"reaper_interval", w.reaperInterval.String(),
		"reaper_enabled", w.enableReaper,
		"brokers", w.bus.Brokers(),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return runEvery(ctx, w.pollInterval, w.module.Relay.RunOnce)
	})
	if w.enableReaper {
		group.Go(func() error {
			return runEvery(ctx, w.reaperInterval, w.module.Reaper.RunOnce)
		})
	}
	return group.Wait()
}

func runEvery(ctx context.Context, interval time.Duration, run func(context.Context) error) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = run(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.bus != nil {
		errs = append(errs, w.bus.Close())
	}
	if w.metrics != nil {
		errs = append(errs, w.metrics.Shutdown(context.Background()))
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
