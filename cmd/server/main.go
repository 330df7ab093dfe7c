package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"registrar/internal/audit"
	"registrar/internal/envelope"
	"registrar/internal/ledger"
	"registrar/internal/oracle"
	"registrar/internal/platform/config"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	platformmetrics "registrar/internal/platform/metrics"
	"registrar/internal/platform/postgres"
	redisclient "registrar/internal/platform/redis"
	"registrar/internal/registrar/handler"
	"registrar/internal/registrar/metrics"
	"registrar/internal/registrar/quote"
	"registrar/internal/registrar/service"
	"registrar/internal/registrar/sweeper"
	"registrar/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("registrar stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	program, err := domain.ParseIdentity(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("parse program id: %w", err)
	}

	store, err := openLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return err
	}
	defer store.Close()

	redis, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	publisher, auditHealth, closeAudit, err := openAudit(gctx, g, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	feedID := cfg.Oracle.FeedID
	if feedID == "" {
		feedID = oracle.DefaultFeedID
	}
	feed := openFeed(cfg, feedID, redis, log)

	registrarMetrics := metrics.New()
	svc := service.New(program, store, feed,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(registrarMetrics),
		service.WithFeedID(feedID),
		service.WithResolver(quote.NewResolver(cfg.Oracle.MaxAge, cfg.Oracle.MaxConfidenceRatio)),
	)

	var guard envelope.ReplayGuard = envelope.NewMemoryReplayGuard()
	if redis != nil {
		guard = envelope.NewRedisReplayGuard(redis)
	}
	h := handler.New(svc, envelope.NewVerifier(program, guard), log, handler.WithDevMode(cfg.DevMode))

	checks := []healthCheck{}
	if redis != nil {
		checks = append(checks, healthCheck{name: "redis", fn: redis.Health})
	}
	if auditHealth != nil {
		checks = append(checks, healthCheck{name: "kafka", fn: auditHealth})
	}
	router := newRouter(h, log, platformmetrics.New(prometheus.DefaultRegisterer), cfg.Server.RequestTimeout, checks)
	srv := httpserver.New(cfg.Server.Addr, router)

	if cfg.Sweeper.Interval > 0 {
		operator, err := domain.ParseIdentity(cfg.Sweeper.Operator)
		if err != nil {
			return fmt.Errorf("parse sweep operator: %w", err)
		}
		sw := sweeper.New(svc, operator, cfg.Sweeper.Interval, log)
		if err := sw.Start(); err != nil {
			return err
		}
		defer sw.Stop()
	}

	g.Go(func() error {
		log.Info("starting registrar",
			"addr", cfg.Server.Addr,
			"program", program.String(),
			"ledger", cfg.Ledger.Backend,
			"dev_mode", cfg.DevMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("registrar stopped")
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openLedger(ctx context.Context, cfg config.Ledger, log *slog.Logger) (ledger.Store, error) {
	switch cfg.Backend {
	case config.LedgerBolt:
		store, err := ledger.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt ledger: %w", err)
		}
		log.Info("ledger opened", "backend", "bolt", "path", cfg.BoltPath)
		return store, nil
	case config.LedgerPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := ledger.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate postgres ledger: %w", err)
		}
		log.Info("ledger opened", "backend", "postgres")
		return store, nil
	default:
		log.Warn("using in-memory ledger, state is lost on restart")
		return ledger.NewMemoryStore(), nil
	}
}

// openAudit connects the Kafka sink behind an async publisher when brokers are
// configured, otherwise keeps events in memory.
func openAudit(ctx context.Context, g *errgroup.Group, cfg config.KafkaConfig, log *slog.Logger) (*audit.Publisher, func(context.Context) error, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewPublisher(audit.NewMemoryStore(), audit.WithPublisherLogger(log)), nil, func() {}, nil
	}
	store, err := audit.NewKafkaStore(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect kafka audit sink: %w", err)
	}
	if err := store.EnsureTopic(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	inbox := make(chan audit.Event, 1024)
	worker := audit.NewWorker(audit.Store(store), inbox, log,
		audit.WithWorkerCircuitBreaker(audit.NewCircuitBreaker(5, 30*time.Second)),
	)
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	publisher := audit.NewPublisher(store,
		audit.WithInbox(inbox),
		audit.WithPublisherLogger(log),
	)
	return publisher, store.Ping, store.Close, nil
}

func openFeed(cfg config.Config, feedID string, redis *redisclient.Client, log *slog.Logger) service.PriceFeed {
	if cfg.DevMode {
		log.Warn("dev mode: serving a fixed $150 price")
		return oracle.NewFixed(oracle.PriceReading{
			FeedID:   feedID,
			Price:    15_000_000_000,
			Conf:     1_000_000,
			Exponent: -8,
		})
	}
	var feed oracle.Feed = oracle.NewHermesFeed(cfg.Oracle.URL, oracle.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	if redis != nil && cfg.Oracle.CacheTTL > 0 {
		feed = oracle.NewCachedFeed(feed, redis, cfg.Oracle.CacheTTL, log)
	}
	return feed
}
