package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/refunds"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront-refunds"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)

	// the worker shares orders and sandbox intents with the api, so both
	// stores have to be the real ones
	if cfg.StoreDriver != "postgres" || cfg.RedisAddr == "" || !cfg.KafkaEnabled {
		log.Fatal().Str("store", cfg.StoreDriver).Bool("kafka", cfg.KafkaEnabled).
			Msg("refunds worker needs STORE_DRIVER=postgres, REDIS_ADDR and KAFKA_ENABLED")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{MaxConns: int32(cfg.RefundsWorkers) + 2})
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()

	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer rdb.Close()

	producer := kafkax.NewProducer(cfg.KafkaBrokers, 256, log)
	producer.Start()

	svc := &orders.Service{
		Orders:   &orders.PGRepo{DB: pool},
		Payments: payment.NewSandbox(&payment.RedisState{Redis: rdb}),
		Events:   kafkax.NewOrderEvents(producer, serviceName, nil),
		Cache:    redisx.NewOrderCache(rdb, cfg.OrderCacheTTL, log),
		Log:      log.With().Str("component", "orders").Logger(),
	}
	worker := &refunds.Service{
		Orders: svc,
		Dedup:  &redisx.Dedup{Redis: rdb, Service: "refunds"},
		Log:    log.With().Str("component", "refunds").Logger(),
	}

	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RefundsGroup, orders.TopicOrderCancelled, cfg.RefundsWorkers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Start(gctx, worker.HandleOrderCancelled) })
	// catches refunds whose order.cancelled event was lost
	reconciler := &refunds.Reconciler{
		Orders:   svc,
		Grace:    cfg.ReconcileGrace,
		Interval: cfg.ReconcileInterval,
		Log:      log.With().Str("component", "refund-reconciler").Logger(),
	}
	g.Go(func() error { return reconciler.Run(gctx) })

	log.Info().Str("group", cfg.RefundsGroup).Int("workers", cfg.RefundsWorkers).Msg("refunds worker running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer stopped")
	}

	producer.Close()
	producer.WaitClosed()
	log.Info().Msg("refunds worker stopped")
}
