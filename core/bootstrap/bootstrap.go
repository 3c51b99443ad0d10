package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	coredatabase "github.com/m3rciful/relaybot/core/database"
	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/directory"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit    func(*coreconfig.Config) error
	OpenDirectory func(context.Context, coreconfig.DirectoryConfig) (directory.Directory, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Directory directory.Directory
}

// Run initializes the logger and opens the contact directory backend.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	open := opts.OpenDirectory
	if open == nil {
		open = OpenDirectory
	}
	dir, err := open(ctx, opts.Config.Directory)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: directory initialization failed: %w", err)
	}

	logger.Info(ctx, "directory", "open",
		slog.String("status", "ok"),
		slog.String("backend", opts.Config.Directory.Backend),
		slog.Duration("ttl", opts.Config.Directory.TTL),
	)
	return &Result{Directory: dir}, nil
}

// OpenDirectory builds the backend named by cfg.Backend. SQL backends are
// migrated before use. Backends without native expiry hide contacts older
// than cfg.TTL from Lookup until the sweep deletes them.
func OpenDirectory(ctx context.Context, cfg coreconfig.DirectoryConfig) (directory.Directory, error) {
	switch cfg.Backend {
	case "", coreconfig.BackendMemory:
		return directory.WithTTL(directory.NewMemory(), cfg.TTL), nil
	case coreconfig.BackendPostgres:
		db, err := coredatabase.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return migrated(db, cfg.TTL)
	case coreconfig.BackendSQLite:
		db, err := coredatabase.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return migrated(db, cfg.TTL)
	case coreconfig.BackendRedis:
		r, err := directory.NewRedis(ctx, directory.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Backend)
	}
}

func migrated(db *sqlx.DB, ttl time.Duration) (directory.Directory, error) {
	if err := coredatabase.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return directory.WithTTL(directory.NewSQL(db), ttl), nil
}
