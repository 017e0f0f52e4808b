package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ProductScanner/internal/config"
	"ProductScanner/internal/ports"
)

// OpenDB connects to a SQL store for the configured driver and pings it.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s storage requires a dsn", driver)
	}

	var sqlDriver string
	switch driver {
	case config.DriverPostgres:
		sqlDriver = "postgres"
	case config.DriverSQLite:
		sqlDriver = "sqlite"
	case config.DriverMySQL:
		sqlDriver = "mysql"
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Open builds the session repository selected by cfg. The returned close
// function releases the underlying database, if any.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ports.SessionRepository, func() error, error) {
	if cfg.Driver == config.DriverFile || cfg.Driver == "" {
		repo, err := NewFileRepository(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}

	db, err := OpenDB(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return NewSQLRepository(db, cfg.Driver), db.Close, nil
}
