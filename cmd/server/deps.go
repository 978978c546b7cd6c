package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"facturier/internal/config"
	"facturier/internal/core/lock"
	"facturier/internal/core/tx"
	"facturier/internal/domain/invoice"
	"facturier/internal/infrastructure/cache"
	"facturier/internal/infrastructure/http/v1/handlers"
	"facturier/internal/infrastructure/storage/memory"
	"facturier/internal/infrastructure/storage/postgres"
	"facturier/internal/infrastructure/storage/postgres/invoice_repo"
	"facturier/pkg/logger"
)

// deps holds the storage and coordination backends selected by the config.
type deps struct {
	repo         invoice.Repository
	txManager    tx.ReadOnlyManager
	locker       lock.Locker
	pool         *postgres.Pool
	redis        *redis.Client
	healthChecks map[string]handlers.Pinger
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{healthChecks: map[string]handlers.Pinger{}}

	switch cfg.DB.Driver {
	case config.StoragePostgres:
		if cfg.DB.MigrateOnStart {
			if err := postgres.UpMigrations(ctx, cfg.DB.URL); err != nil {
				return nil, err
			}
			logger.Info(ctx, "migrations applied")
		}

		poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
		if cfg.DB.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.DB.MaxConns)
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		d.pool = pool
		txm := postgres.NewTxManager(pool)
		d.repo = invoice_repo.NewInvoiceRepo(txm)
		d.txManager = txm
		d.healthChecks["database"] = pool
		logger.Info(ctx, "database connection established", "max_conns", poolCfg.MaxConns)

	case config.StorageMemory:
		d.repo = memory.NewInvoiceStore()
		d.txManager = tx.Nop{}
		logger.Warn(ctx, "using in-memory storage, invoices are lost on restart")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.DB.Driver)
	}

	switch cfg.Lock.Driver {
	case config.LockRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			d.Close()
			return nil, err
		}
		d.redis = client
		locker := cache.NewRedisLocker(client, cfg.Lock.TTL)
		d.locker = locker
		d.healthChecks["redis"] = locker

	case config.LockPostgres:
		if d.pool == nil {
			d.Close()
			return nil, fmt.Errorf("lock driver %q needs postgres storage", cfg.Lock.Driver)
		}
		d.locker = postgres.NewAdvisoryLocker(d.pool)

	case config.LockMemory:
		d.locker = lock.NewKeyedMutex()

	default:
		d.Close()
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
	}

	return d, nil
}

// Close releases connections.
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
