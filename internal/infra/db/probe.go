package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notifications/internal/domain"
)

const storageProbeName = "database"

var errNotConfigured = fmt.Errorf("database %w", domain.ErrNotConfigured)

type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StorageProbe checks that the primary database answers a trivial query.
type StorageProbe struct {
	db Querier
}

func NewStorageProbe(db Querier) *StorageProbe {
	return &StorageProbe{db: db}
}

func (p *StorageProbe) Name() string { return storageProbeName }

func (p *StorageProbe) Check(ctx context.Context) domain.ProbeResult {
	if err := p.ping(ctx); err != nil {
		return domain.ProbeResult{
			Status:  domain.StatusUnhealthy,
			Message: fmt.Sprintf("Database connection failed: %v", err),
		}
	}
	return domain.ProbeResult{Status: domain.StatusHealthy, Message: "Database connection successful"}
}

func (p *StorageProbe) ping(ctx context.Context) error {
	if p.db == nil {
		return errNotConfigured
	}
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	if one != 1 {
		return errors.New("unexpected result from SELECT 1")
	}
	return nil
}
