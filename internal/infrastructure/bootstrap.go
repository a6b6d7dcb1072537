package infrastructure

import (
	"context"
	"log/slog"

	"biblio/internal/config"
	"biblio/internal/repository"
	"biblio/internal/service"
	transportHTTP "biblio/internal/transport/http"
	transportNATS "biblio/internal/transport/nats"
	"biblio/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
	})

	store := repository.NewStore(db)
	cache := repository.NewAvailabilityCache(rdb)

	var (
		bus     repository.MessageBus
		servers []Server
	)

	// NATS is optional: without it the repo publishes nothing and the audit
	// worker and command handler are not wired.
	var lending *repository.LendingRepo
	if cfg.NatsEnabled() {
		nc, err := connectNats(cfg.NatsAddr())
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		cleanupFns = append(cleanupFns, nc.Close)
		bus = transportNATS.NewBus(nc)

		lending = repository.NewLendingRepo(store, cache, bus, cfg.LoanPeriod())
		var svc service.LendingService = lending

		servers = append(servers, worker.NewAuditWorker(svc, nc))
		servers = append(servers, transportNATS.NewHandler(svc, nc))
	} else {
		slog.Info("NATS not configured, running without event bus")
		lending = repository.NewLendingRepo(store, cache, nil, cfg.LoanPeriod())
	}

	catalog := repository.NewCatalogRepo(store, cache)

	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, transportHTTP.NewServer(addr, lending, catalog))
	} else {
		slog.Info("HTTP API not enabled", "reason", apiErr)
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in
// reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
