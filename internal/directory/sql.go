package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/relaybot/core/logger"
)

const (
	upsertContactSQL = `INSERT INTO contacts (user_id, display_name, handle, last_seen_unix)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
	display_name = excluded.display_name,
	handle = excluded.handle,
	last_seen_unix = excluded.last_seen_unix`
	lookupContactSQL = `SELECT user_id, display_name, handle, last_seen_unix FROM contacts WHERE user_id = ?`
	pruneContactsSQL = `DELETE FROM contacts WHERE last_seen_unix < ?`
)

type contactRow struct {
	UserID       int64  `db:"user_id"`
	DisplayName  string `db:"display_name"`
	Handle       string `db:"handle"`
	LastSeenUnix int64  `db:"last_seen_unix"`
}

func (r contactRow) record() Record {
	return Record{
		ID:          r.UserID,
		DisplayName: r.DisplayName,
		Handle:      r.Handle,
		LastSeen:    time.Unix(r.LastSeenUnix, 0).UTC(),
	}
}

// SQL is a Directory stored in the contacts table of a postgres or sqlite database.
// Queries are written with '?' placeholders and rebound for the driver in use.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time

	upsertQ string
	lookupQ string
	pruneQ  string
}

// NewSQL wraps an already migrated database handle.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{
		db:      db,
		now:     time.Now,
		upsertQ: db.Rebind(upsertContactSQL),
		lookupQ: db.Rebind(lookupContactSQL),
		pruneQ:  db.Rebind(pruneContactsSQL),
	}
}

// Upsert inserts or overwrites the contact row for rec.ID.
func (s *SQL) Upsert(ctx context.Context, rec Record) error {
	seen := rec.LastSeen
	if seen.IsZero() {
		seen = s.now()
	}
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, s.upsertQ, rec.ID, rec.DisplayName, rec.Handle, seen.Unix()); err != nil {
		logger.Error(ctx, "directory", "directory.upsert",
			slog.String("status", "fail"),
			slog.String("backend", s.db.DriverName()),
			slog.Int64("contact_id", rec.ID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("directory: upsert %d: %w", rec.ID, err)
	}
	logger.Debug(ctx, "directory", "directory.upsert",
		slog.String("status", "ok"),
		slog.String("backend", s.db.DriverName()),
		slog.Int64("contact_id", rec.ID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Lookup fetches the contact row for id.
func (s *SQL) Lookup(ctx context.Context, id int64) (Record, bool, error) {
	var row contactRow
	err := s.db.GetContext(ctx, &row, s.lookupQ, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, false, nil
	case err != nil:
		return Record{}, false, fmt.Errorf("directory: lookup %d: %w", id, err)
	}
	return row.record(), true, nil
}

// Prune deletes contacts last seen before the cutoff.
func (s *SQL) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.pruneQ, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("directory: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("directory: prune rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
