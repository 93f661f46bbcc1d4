package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"purchase-order-backend/internal/adapter/events"
	"purchase-order-backend/internal/adapter/repository/postgres"
	"purchase-order-backend/internal/adapter/sharelink"
	"purchase-order-backend/internal/config"
	"purchase-order-backend/internal/infrastructure/cache"
	"purchase-order-backend/internal/infrastructure/db"
	"purchase-order-backend/internal/infrastructure/logger"
	"purchase-order-backend/internal/infrastructure/metrics"
	ucApproval "purchase-order-backend/internal/usecase/approval"
	ucOrder "purchase-order-backend/internal/usecase/order"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
	reg    *prometheus.Registry
	events events.Publisher

	orders    *ucOrder.Usecase
	approvals *ucApproval.Usecase
}

type appOptions struct {
	redis bool
	// usecases are skipped by migrate
	usecases bool
}

func newApp(ctx context.Context, opts appOptions) (a *app, err error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Service:     "purchase-order-api",
		Environment: cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a = &app{cfg: cfg, log: log, events: events.Noop{}}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = db.OpenGorm(cfg.PostgresDSN(), db.Options{Debug: cfg.LogLevel == "debug", Log: log})
	if err != nil {
		return a, fmt.Errorf("postgres: %w", err)
	}
	if opts.redis {
		if a.redis, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			return a, err
		}
	}
	if !opts.usecases {
		return a, nil
	}

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.reg)

	if cfg.KafkaEnabled {
		a.events = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	orderRepo := postgres.NewOrderRepository(a.db)
	tokenRepo := postgres.NewApprovalRepository(a.db)
	tx := postgres.NewGormUoW(a.db)

	a.orders = ucOrder.NewUsecase(orderRepo, tx,
		ucOrder.WithPublisher(a.events),
		ucOrder.WithMetrics(m),
		ucOrder.WithLogger(log),
	)
	a.approvals = ucApproval.NewUsecase(orderRepo, tokenRepo, tx,
		sharelink.New(cfg.PublicBaseURL, cfg.ApproverWhatsApp),
		ucApproval.WithWindow(cfg.ApprovalWindow()),
		ucApproval.WithPublisher(a.events),
		ucApproval.WithMetrics(m),
		ucApproval.WithLogger(log),
	)
	return a, nil
}

func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("close publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.log.Sync()
}
