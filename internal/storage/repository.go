// Package storage keeps ledger snapshots in SQLite, one row per owner, and
// tracks which rows still have to be mirrored to the spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"meudinheiro/internal/core"
	"meudinheiro/internal/log"
	"meudinheiro/internal/snapshot"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements snapshot.Store. The row's updated_at is the snapshot's
// LastUpdated, or now when it is unset.
func (r *SQLiteRepository) Save(ctx context.Context, ownerID string, s core.Snapshot) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", core.ErrValidation)
	}
	payload, err := snapshot.Encode(s)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	updated := s.LastUpdated
	if updated.IsZero() {
		updated = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (owner_id, payload, updated_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		ownerID, string(payload), updated.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	r.logger.DebugContext(ctx, "Snapshot saved to SQLite",
		log.FieldOwnerID, ownerID,
		log.FieldCount, len(s.Transactions))
	return nil
}

// Load implements snapshot.Store.
func (r *SQLiteRepository) Load(ctx context.Context, ownerID string) (core.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE owner_id = ?`, ownerID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("owner %s: %w", ownerID, snapshot.ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot.Decode([]byte(payload))
}

// PendingMirrors implements snapshot.MirrorTracker, oldest first.
func (r *SQLiteRepository) PendingMirrors(ctx context.Context, limit int) ([]snapshot.Pending, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner_id, updated_at FROM snapshots
		WHERE updated_at > mirrored_at
		ORDER BY updated_at, owner_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirrors: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Pending
	for rows.Next() {
		var (
			owner string
			ms    int64
		)
		if err := rows.Scan(&owner, &ms); err != nil {
			return nil, fmt.Errorf("scan pending mirror: %w", err)
		}
		out = append(out, snapshot.Pending{OwnerID: owner, UpdatedAt: time.UnixMilli(ms).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending mirrors: %w", err)
	}
	return out, nil
}

// MarkMirrored implements snapshot.MirrorTracker. It never moves the
// mirror mark backwards.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, ownerID string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET mirrored_at = MAX(mirrored_at, ?) WHERE owner_id = ?`,
		updatedAt.UnixMilli(), ownerID)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("owner %s: %w", ownerID, snapshot.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Snapshot marked as mirrored", log.FieldOwnerID, ownerID)
	return nil
}
