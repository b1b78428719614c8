package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-events/internal/auth/db"
	"ms-events/internal/catalog"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	registrations_db "ms-events/internal/registrations/db"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const usage = "usage: migrate up|down|reset|seed"

func main() {
	log := logger.NewWithWriter(os.Stdout)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	defer bunDB.Close()

	switch os.Args[1] {
	case "up":
		err = up(ctx, bunDB, cfg.Database, log)
	case "down":
		err = down(ctx, bunDB, cfg.Database, log)
	case "reset":
		if err = down(ctx, bunDB, cfg.Database, log); err == nil {
			err = up(ctx, bunDB, cfg.Database, log)
		}
	case "seed":
		err = seed(ctx, bunDB, cfg.Catalog, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("%s failed: %v", os.Args[1], err))
	}
	log.Info("MIGRATE", fmt.Sprintf("✅ %s done", os.Args[1]))
}

func connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if cfg.Driver != database.DriverPostgres {
		return database.Open(ctx, cfg, log)
	}

	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))
	sqldb := sql.OpenDB(connector)
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func runner(bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) *migrations.Runner {
	return migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.MigrationsDir,
		AutoMigrate:   true,
	}, log)
}

func up(ctx context.Context, bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	if cfg.Driver == database.DriverSQLite {
		log.LogDatabase("CREATE", "users, registrations", "creating tables")
		return database.CreateSchema(ctx, bunDB)
	}
	return runner(bunDB, cfg, log).RunMigrations()
}

func down(ctx context.Context, bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	if cfg.Driver == database.DriverSQLite {
		log.LogDatabase("DROP", "users, registrations", "dropping tables")
		return database.DropSchema(ctx, bunDB)
	}
	return runner(bunDB, cfg, log).MigrateDown()
}

// seedEvents are the first catalog entries, frozen so seeding works offline.
var seedEvents = []models.Event{
	{ID: 1, Title: "Essence Mascara Lash Princess", Category: "beauty", Price: 9.99,
		Thumbnail: "https://cdn.dummyjson.com/products/images/beauty/Essence%20Mascara%20Lash%20Princess/thumbnail.png"},
	{ID: 6, Title: "Calvin Klein CK One", Category: "fragrances", Price: 49.99,
		Thumbnail: "https://cdn.dummyjson.com/products/images/fragrances/Calvin%20Klein%20CK%20One/thumbnail.png"},
	{ID: 11, Title: "Annibale Colombo Bed", Category: "furniture", Price: 1899.99,
		Thumbnail: "https://cdn.dummyjson.com/products/images/furniture/Annibale%20Colombo%20Bed/thumbnail.png"},
}

func seed(ctx context.Context, bunDB *bun.DB, cfg config.CatalogConfig, log *logger.Logger) error {
	users := &db.DB{Bun: bunDB}
	regs := &registrations_db.DB{Bun: bunDB}

	deriver, err := catalog.NewDeriver(cfg.BaseDate)
	if err != nil {
		return err
	}

	log.Info("MIGRATE", "Seeding sample data...")
	alice, err := users.UpsertUser(ctx, "Alice Wonderland", "alice@example.com")
	if err != nil {
		return err
	}
	if _, err := users.UpsertUser(ctx, "Bob Builder", "bob@example.com"); err != nil {
		return err
	}

	for _, e := range seedEvents {
		s := deriver.Derive(e)
		err := regs.CreateRegistration(ctx, models.Registration{
			UserID:       alice.ID,
			EventID:      e.ID,
			Title:        e.Title,
			Price:        e.Price,
			Thumbnail:    e.Thumbnail,
			Category:     e.Category,
			RegisteredAt: time.Now().UTC(),
			EventDate:    s.StartsAt,
			Location:     s.Venue,
		})
		if err != nil && !errors.Is(err, models.ErrAlreadyRegistered) {
			return err
		}
	}
	return nil
}
