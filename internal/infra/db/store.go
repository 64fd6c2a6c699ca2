package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"notifications/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const pingTimeout = 5 * time.Second

type Store struct {
	DB *gorm.DB
}

// NewStore opens the postgres connection. Without POSTGRES_DSN the service runs
// in no-db mode and the storage probe reports the database as not configured.
func NewStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set; starting in no-db mode",
			"event", "db_disabled",
			"module", "internal/infra/db",
			"layer", "infra",
		)
		return &Store{}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		logger.Warn("postgres not reachable at startup",
			"event", "db_ping_failed",
			"module", "internal/infra/db",
			"layer", "infra",
			"error", err.Error(),
		)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) SQL() (*sql.DB, error) {
	if s == nil || s.DB == nil {
		return nil, nil
	}
	return s.DB.DB()
}

// Querier returns nil in no-db mode.
func (s *Store) Querier() Querier {
	sqlDB, err := s.SQL()
	if err != nil || sqlDB == nil {
		return nil
	}
	return sqlDB
}

func (s *Store) Close() error {
	sqlDB, err := s.SQL()
	if err != nil {
		return err
	}
	if sqlDB == nil {
		return nil
	}
	return sqlDB.Close()
}
