package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/db"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
	"quizmaster/internal/store/memory"
	"quizmaster/internal/store/sqlstore"
)

// Repository is the union of every persistence contract. Both the memory
// and the SQL store implement it.
type Repository interface {
	question.Store
	ledger.Store
	attempt.Store
	auth.Store
}

// Storage is an opened repository plus its connection, if any.
type Storage struct {
	Repo Repository
	DB   *sql.DB
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStorage selects the backend named by cfg.StorageDriver and migrates
// SQL schemas.
func OpenStorage(ctx context.Context, cfg Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case "", StorageMemory:
		return &Storage{Repo: memory.New()}, nil
	case StorageSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, conn, db.DriverSQLite)
	case StoragePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DBDSN, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		return migrated(ctx, conn, db.DriverPostgres)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func migrated(ctx context.Context, conn *sql.DB, driver string) (*Storage, error) {
	store, err := sqlstore.New(conn, driver)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Storage{Repo: store, DB: conn}, nil
}
