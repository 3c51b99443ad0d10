package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	"github.com/m3rciful/relaybot/internal/directory"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunDefaultsToMemory(t *testing.T) {
	cfg := &coreconfig.Config{}
	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := res.Directory.(*directory.Memory); !ok {
		t.Fatalf("expected memory directory, got %T", res.Directory)
	}
}

func TestRunNilConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestRunLoggerFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped logger error, got %v", err)
	}
}

func TestOpenDirectorySQLite(t *testing.T) {
	ctx := context.Background()
	cfg := coreconfig.DirectoryConfig{
		Backend: coreconfig.BackendSQLite,
		SQLite:  coreconfig.SQLiteConfig{Path: filepath.Join(t.TempDir(), "contacts.db")},
	}
	dir, err := OpenDirectory(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer directory.Close(dir)

	rec := directory.Record{ID: 100, DisplayName: "Alice", LastSeen: time.Unix(1700000000, 0)}
	if err := dir.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, found, err := dir.Lookup(ctx, 100)
	if err != nil || !found || got.DisplayName != "Alice" {
		t.Fatalf("lookup: %+v found=%v err=%v", got, found, err)
	}
}

func TestOpenDirectoryUnknownBackend(t *testing.T) {
	if _, err := OpenDirectory(context.Background(), coreconfig.DirectoryConfig{Backend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestOpenDirectoryHidesExpiredContacts(t *testing.T) {
	ctx := context.Background()
	cfg := coreconfig.DirectoryConfig{
		Backend: coreconfig.BackendSQLite,
		TTL:     time.Hour,
		SQLite:  coreconfig.SQLiteConfig{Path: filepath.Join(t.TempDir(), "contacts.db")},
	}
	dir, err := OpenDirectory(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer directory.Close(dir)

	_ = dir.Upsert(ctx, directory.Record{ID: 1, DisplayName: "old", LastSeen: time.Now().Add(-2 * time.Hour)})
	_ = dir.Upsert(ctx, directory.Record{ID: 2, DisplayName: "new", LastSeen: time.Now()})
	if _, found, err := dir.Lookup(ctx, 1); err != nil || found {
		t.Fatalf("contact older than ttl must not be repliable: found=%v err=%v", found, err)
	}
	if _, found, err := dir.Lookup(ctx, 2); err != nil || !found {
		t.Fatalf("recent contact: found=%v err=%v", found, err)
	}
	if _, ok := dir.(directory.Pruner); !ok {
		t.Fatalf("sweep needs a pruner, got %T", dir)
	}
}
