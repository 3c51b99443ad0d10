package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/relaybot/core/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies every embedded up migration for the handle's driver.
func RunMigrations(db *sqlx.DB) error {
	if db == nil {
		return errors.New("db migrate: nil database")
	}

	driverName := db.DriverName()
	dir := "migrations/" + driverName

	var (
		instance database.Driver
		err      error
	)
	switch driverName {
	case DriverPostgres:
		instance, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		instance, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return fmt.Errorf("db migrate: unsupported driver %q", driverName)
	}
	if err != nil {
		logMigrateError("db.migrate.driver", err)
		return fmt.Errorf("db migrate: driver: %w", err)
	}

	files := listMigrationFiles(dir)
	logger.LogEvent(context.Background(), logger.MIG, slog.LevelDebug, "db.migrate.resolve",
		slog.String("driver", driverName),
		slog.Int("files_total", len(files)),
		slog.String("files", strings.Join(files, ",")),
	)

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		logMigrateError("db.migrate.source", err)
		return fmt.Errorf("db migrate: source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, driverName, instance)
	if err != nil {
		logMigrateError("db.migrate.init", err)
		return fmt.Errorf("db migrate: init: %w", err)
	}

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.LogEvent(context.Background(), logger.MIG, slog.LevelInfo, "db.migrate.summary",
			slog.String("driver", driverName),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration", took),
		)
		return nil
	default:
		logMigrateError("db.migrate.apply", upErr)
		return fmt.Errorf("db migrate: apply: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.LogEvent(context.Background(), logger.MIG, slog.LevelInfo, "db.migrate.summary",
		slog.String("driver", driverName),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", countApplied(files, uint64(fromVer), uint64(toVer))),
		slog.Duration("duration", took),
	)
	return nil
}

func logMigrateError(event string, err error) {
	logger.LogEvent(context.Background(), logger.MIG, slog.LevelError, event, slog.String("err", err.Error()))
}

func listMigrationFiles(dir string) []string {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func countApplied(files []string, from, to uint64) int {
	n := 0
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			n++
		}
	}
	return n
}
