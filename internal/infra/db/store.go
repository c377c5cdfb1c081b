// Package db selects the storage backend named in configuration.
package db

import (
	"context"
	"fmt"

	"telegram-credit-ledger/internal/config"
	"telegram-credit-ledger/internal/domain/ports/repository"
	"telegram-credit-ledger/internal/infra/db/postgres"
	"telegram-credit-ledger/internal/infra/db/sqlite"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Store bundles the repositories of one backend with its transaction manager.
type Store struct {
	Driver      string
	Accounts    repository.AccountRepository
	Codes       repository.RedeemCodeRepository
	Redemptions repository.RedemptionRepository
	Ledger      repository.LedgerRepository
	TM          repository.TransactionManager

	// ReportPoolStats publishes connection pool gauges.
	ReportPoolStats func()
	close           func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open applies pending migrations and connects.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		if err := postgres.Migrate(cfg.URL, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := postgres.Connect(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:      cfg.Driver,
			Accounts:    postgres.NewPostgresAccountRepo(pool),
			Codes:       postgres.NewPostgresRedeemCodeRepo(pool),
			Redemptions: postgres.NewPostgresRedemptionRepo(pool),
			Ledger:      postgres.NewPostgresLedgerRepo(pool),
			TM:          postgres.NewTxManager(pool),
			ReportPoolStats: func() {
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			},
			close: pool.Close,
		}, nil
	case "sqlite":
		if err := sqlite.Migrate(cfg.Path, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		h, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:      cfg.Driver,
			Accounts:    sqlite.NewAccountRepo(h),
			Codes:       sqlite.NewRedeemCodeRepo(h),
			Redemptions: sqlite.NewRedemptionRepo(h),
			Ledger:      sqlite.NewLedgerRepo(h),
			TM:          sqlite.NewTxManager(h),
			ReportPoolStats: func() {
				st := h.Stats()
				metrics.SetDBPoolStats(int32(st.OpenConnections), int32(st.Idle), int32(st.InUse))
			},
			close: func() { _ = h.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// MigrateUp applies all pending migrations to the configured backend.
func MigrateUp(cfg config.DatabaseConfig, logger *zerolog.Logger) error {
	switch cfg.Driver {
	case "postgres":
		return postgres.Migrate(cfg.URL, logger)
	case "sqlite":
		return sqlite.Migrate(cfg.Path, logger)
	}
	return fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func MigrateDown(cfg config.DatabaseConfig, steps int) error {
	switch cfg.Driver {
	case "postgres":
		return postgres.MigrateDown(cfg.URL, steps)
	case "sqlite":
		return sqlite.MigrateDown(cfg.Path, steps)
	}
	return fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func Version(cfg config.DatabaseConfig) (uint, bool, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Version(cfg.URL)
	case "sqlite":
		return sqlite.Version(cfg.Path)
	}
	return 0, false, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
