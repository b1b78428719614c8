package database

import (
	"context"
	"database/sql"
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database, retrying while it comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	driverName := DriverPostgres
	if cfg.Driver == DriverSQLite {
		driverName = sqliteshim.ShimName
	} else if cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, maxRetries))
		sqldb, err = sql.Open(driverName, cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open %s: %v", cfg.Driver, err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		_ = sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
	}

	var bunDB *bun.DB
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer at a time.
		sqldb.SetMaxOpenConns(1)
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	}

	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))
	return bunDB, nil
}

// Tables lists every table the service owns, in creation order.
func Tables() []interface{} {
	return []interface{}{
		(*models.User)(nil),
		(*models.Registration)(nil),
	}
}

// CreateSchema creates missing tables straight from the models. Postgres
// deployments use the SQL migrations instead.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range Tables() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	_, err := db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Index("idx_registrations_user").
		Column("user_id", "event_date").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations index: %w", err)
	}
	return nil
}

// DropSchema drops every table. Only used by the migrate tool and tests.
func DropSchema(ctx context.Context, db *bun.DB) error {
	tables := Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}
