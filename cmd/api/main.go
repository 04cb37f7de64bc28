package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/ratelimit"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/refunds"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	catalog   catalog.Store
	carts     cart.Repo
	orders    orders.Repo
	addresses orders.AddressBook
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store")
	}
	defer st.close()

	// Redis is optional in memory mode; everything it backs has an in-process fallback
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb, err = redisx.Connect(ctx, cfg.RedisAddr); err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
	}

	var events orders.EventSink = orders.NopEvents{}
	var producer *kafkax.Producer
	var refundQueue *refunds.Queue
	if cfg.KafkaEnabled {
		producer = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		producer.Start()
		events = kafkax.NewOrderEvents(producer, cfg.ServiceName, middleware.GetReqID)
	} else {
		// no refund worker is listening, settle in process
		refundQueue = refunds.NewQueue(events, 256, log)
		events = refundQueue
	}

	rlCfg := ratelimit.Config{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}
	var locker cart.Locker = cart.NewLocalLocker()
	var limiter ratelimit.Limiter = ratelimit.NewFixedWindow(rlCfg)
	var state payment.State = payment.NewMemoryState()

	svc := &orders.Service{
		Orders:     st.orders,
		Carts:      st.carts,
		Aggregator: cart.NewAggregator(st.catalog),
		Addresses:  st.addresses,
		Events:     events,
		Pricing: orders.Pricing{
			Currency:              cfg.Currency,
			TaxRate:               cfg.TaxRate,
			ShippingFee:           cfg.ShippingFee,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
		},
		Log: log.With().Str("component", "orders").Logger(),
	}
	svc.Idempotency = memstore.NewIdempotency(0)
	if rdb != nil {
		locker = redisx.NewLocker(rdb, cfg.CartLockTTL, log)
		state = &payment.RedisState{Redis: rdb}
		svc.Cache = redisx.NewOrderCache(rdb, cfg.OrderCacheTTL, log)
		svc.Idempotency = &redisx.Idempotency{Redis: rdb}
		if d, _ := ratelimit.ParseDriver(cfg.RateLimitDriver); d == ratelimit.DriverRedis {
			limiter = ratelimit.NewRedisFixedWindow(rdb, rlCfg)
		}
	}
	sandbox := payment.NewSandbox(state)
	svc.Payments = sandbox
	svc.Locker = locker

	engine := cart.NewEngine(st.catalog, st.carts, locker, log)
	engine.MaxQuantity = cfg.CartMaxQuantity

	router := httpx.NewRouter(httpx.Deps{
		Cart:    &httpx.CartHandler{Engine: engine, Log: log},
		Orders:  &httpx.OrdersHandler{Service: svc, Log: log},
		Sandbox: &httpx.SandboxHandler{Sandbox: sandbox, Log: log},
		Limiter: limiter,
		Log:     log,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	if refundQueue != nil {
		g.Go(func() error { return refundQueue.Run(gctx, svc) })
		reconciler := &refunds.Reconciler{
			Orders:   svc,
			Grace:    cfg.ReconcileGrace,
			Interval: cfg.ReconcileInterval,
			Log:      log.With().Str("component", "refund-reconciler").Logger(),
		}
		g.Go(func() error { return reconciler.Run(gctx) })
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Bool("kafka", cfg.KafkaEnabled).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}

	if producer != nil {
		producer.Close() // flush buffered events
		producer.WaitClosed()
	}
}

func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (stores, error) {
	if cfg.StoreDriver == "memory" {
		db := memstore.New()
		db.SeedDemo()
		log.Warn().Str("customer_id", memstore.DemoCustomerID).Str("address_id", memstore.DemoAddressID).
			Msg("in-memory store with demo data, nothing is persisted")
		return stores{catalog: db.Catalog(), carts: db.Carts(), orders: db.Orders(), addresses: db.Addresses(), close: func() {}}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
			return stores{}, err
		}
	}
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{})
	if err != nil {
		return stores{}, err
	}
	return stores{
		catalog:   &catalog.PGStore{DB: pool},
		carts:     &cart.PGRepo{DB: pool},
		orders:    &orders.PGRepo{DB: pool},
		addresses: &orders.PGAddressBook{DB: pool},
		close:     pool.Close,
	}, nil
}
