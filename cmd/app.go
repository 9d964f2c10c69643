package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rent-tracking/internal/clients"
	"rent-tracking/internal/config"
	"rent-tracking/internal/repository"
	"rent-tracking/internal/service"
	"rent-tracking/internal/transport/websocket"
	"rent-tracking/pkg/clock"
	"rent-tracking/pkg/database/postgres"

	"go.uber.org/zap"
)

// app holds the wired dependencies shared by the server and the one-shot job commands.
type app struct {
	cfg   config.AppConfig
	log   *zap.Logger
	loc   *time.Location
	clock clock.Clock

	db    *sql.DB
	redis *clients.RedisClient
	hub   *websocket.Hub

	tokens  *repository.PersonalAccessTokenRepository
	storage *clients.StorageClient // nil unless the local driver is used

	overrides *service.OverrideService
	reports   *service.ReportService
	jobs      *service.JobRunner
}

func newApp(ctx context.Context, cfg config.AppConfig, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, loc: cfg.Tracking.Location()}
	a.clock = clock.System(a.loc)

	db, err := initPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres init: %w", err)
	}
	a.db = db

	rdb, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("redis init: %w", err)
	}
	a.redis = rdb

	store, err := a.initStorage(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("storage init: %w", err)
	}

	a.hub = websocket.NewHub(log)
	wsClient := clients.NewWebSocketClient(a.hub)

	trackingRepo := repository.NewTrackingRepository(db)
	leaseRepo := repository.NewLeaseRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	a.tokens = repository.NewPersonalAccessTokenRepository(db, log)

	notifier := clients.NewNotifier(notificationRepo, wsClient, a.clock, log)
	mailer := initMailer(cfg.SMTP, log)

	workers := cfg.Tracking.SweepWorkers
	generator := service.NewGenerator(trackingRepo, leaseRepo, a.clock, a.loc, workers, log)
	matcher := service.NewMatcher(trackingRepo, transactionRepo, a.clock, workers, log)
	escalation := service.NewEscalationDriver(trackingRepo, leaseRepo, notifier, mailer, a.clock, a.loc, workers, cfg.Tracking.AppURL, log)

	a.overrides = service.NewOverrideService(trackingRepo, leaseRepo, conversationRepo, notifier, a.clock, log)
	a.reports = service.NewReportService(trackingRepo, store, wsClient, a.clock, log)
	a.jobs = service.NewJobRunner(generator, matcher, escalation, rdb, rdb, a.clock, service.JobRunnerConfig{
		LockTTL: cfg.Jobs.LockTTL,
		RunsTTL: cfg.Jobs.RunsTTL,
	}, log)

	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := postgres.Close(a.db); err != nil {
		a.log.Warn("postgres close failed", zap.Error(err))
	}
}

func initPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	return postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Username:     cfg.User,
		DBName:       cfg.DBName,
		SSLMode:      cfg.SSLMode,
		Password:     cfg.Password,
		MaxOpenConns: cfg.MaxOpenConns,
	})
}

func initRedis(ctx context.Context, cfg config.RedisConfig) (*clients.RedisClient, error) {
	return clients.NewRedisClient(ctx, clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
}

func (a *app) initStorage(ctx context.Context) (service.FileStore, error) {
	switch a.cfg.Storage.Driver {
	case "s3":
		s3 := a.cfg.S3
		return clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			Bucket:          s3.Bucket,
			UseSSL:          s3.UseSSL,
			Region:          s3.Region,
			Prefix:          s3.Prefix,
			URLTTL:          s3.URLTTL,
		})
	case "local", "":
		st := a.cfg.Storage
		local, err := clients.NewLocalStorage(st.ExportDir, st.PublicPrefix, st.ExternalURL)
		if err != nil {
			return nil, err
		}
		a.storage = local
		return local, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
}

func initMailer(cfg config.SMTPConfig, log *zap.Logger) service.Mailer {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, reminder emails are only logged")
		return clients.NewLogMailer(log)
	}
	return clients.NewSMTPMailer(clients.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}
