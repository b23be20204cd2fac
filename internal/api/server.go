// Package api implements the HTTP handlers of the paint shop service.
package api

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"paintshop/internal/logger"
	"paintshop/internal/solver"
	"paintshop/internal/store"
	"paintshop/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Solver solver.Config

	// DefaultSampler is used when a run request names none.
	DefaultSampler string

	// Pub notifies RUN_WEBHOOK_URL of finished runs; nil when unset.
	Pub   *webhooks.Publisher
	Hooks *webhooks.Queue

	newSampler   func(kind string, cfg solver.Config) (solver.Sampler, error)
	heartbeat    time.Duration
	runTimeout   time.Duration
	background   sync.WaitGroup
	shutdownOnce sync.Once
	baseCtx      context.Context
	cancelBase   context.CancelFunc
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				logger.Warnf("migrations: %v", err)
			}
		}
		s = sp
	}
	// Broker selection
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			logger.Warnf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	cfg, err := solver.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	kind := os.Getenv("SOLVER_KIND")
	if kind == "" {
		kind = "local"
		if cfg.Endpoint != "" {
			kind = "hybrid"
		}
	}
	srv := newServer(s, broker, cfg, kind)
	srv.Pub = webhooks.NewPublisherFromEnv(srv.Hooks)
	return srv, nil
}

func newServer(st store.Store, broker EventBroker, cfg solver.Config, kind string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Store:          st,
		Broker:         broker,
		Solver:         cfg,
		DefaultSampler: kind,
		Hooks:          webhooks.NewQueue(),
		newSampler:     solver.New,
		heartbeat:      15 * time.Second,
		runTimeout:     30 * time.Minute,
		baseCtx:        ctx,
		cancelBase:     cancel,
	}
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Hooks)
}

// Shutdown cancels background runs and waits for them to record their
// outcome, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.cancelBase)
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
