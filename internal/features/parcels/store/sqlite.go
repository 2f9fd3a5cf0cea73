package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	parcels "parcel-tracker/internal/features/parcels/domain"
	tracking "parcel-tracker/internal/features/tracking/domain"
)

// migration is one versioned schema step.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS parcels (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				tracking_number TEXT NOT NULL DEFAULT '',
				order_number TEXT NOT NULL DEFAULT '',
				carrier TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				direction TEXT NOT NULL,
				archived INTEGER NOT NULL DEFAULT 0,
				notes TEXT NOT NULL DEFAULT '',
				recipient TEXT NOT NULL DEFAULT '',
				purpose TEXT NOT NULL DEFAULT '',
				product_url TEXT NOT NULL DEFAULT '',
				estimated_delivery TIMESTAMP,
				tracking_history TEXT NOT NULL DEFAULT '[]',
				date_added TIMESTAMP NOT NULL,
				last_updated TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_parcels_status ON parcels(status, archived);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}

// SQLiteStore persists parcels in a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath, enables WAL
// mode, and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Create inserts a new parcel, assigning an ID and timestamps when unset.
func (s *SQLiteStore) Create(ctx context.Context, p *parcels.Parcel) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.DateAdded.IsZero() {
		p.DateAdded = now
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = now
	}
	if p.TrackingHistory == "" {
		p.TrackingHistory = "[]"
	}

	const query = `
		INSERT INTO parcels (
			id, title, tracking_number, order_number, carrier,
			status, direction, archived, notes, recipient,
			purpose, product_url, estimated_delivery, tracking_history,
			date_added, last_updated
		) VALUES (
			:id, :title, :tracking_number, :order_number, :carrier,
			:status, :direction, :archived, :notes, :recipient,
			:purpose, :product_url, :estimated_delivery, :tracking_history,
			:date_added, :last_updated
		)`

	if _, err := s.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("inserting parcel: %w", err)
	}
	return nil
}

// GetByID returns one parcel or tracking.ErrParcelNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*parcels.Parcel, error) {
	var p parcels.Parcel
	err := s.db.GetContext(ctx, &p, "SELECT * FROM parcels WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracking.ErrParcelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting parcel: %w", err)
	}
	return &p, nil
}

// List returns all parcels, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]parcels.Parcel, error) {
	var out []parcels.Parcel
	err := s.db.SelectContext(ctx, &out, "SELECT * FROM parcels ORDER BY date_added DESC")
	if err != nil {
		return nil, fmt.Errorf("listing parcels: %w", err)
	}
	return out, nil
}

// ListActive returns non-archived parcels whose status is not terminal,
// the batch a sync operates on.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]parcels.Parcel, error) {
	var out []parcels.Parcel
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM parcels
		WHERE archived = 0 AND status NOT IN (?, ?)
		ORDER BY date_added DESC`,
		parcels.StatusDelivered, parcels.StatusException,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active parcels: %w", err)
	}
	return out, nil
}

// UpdateTracking overwrites a parcel's status, serialized timeline, and
// last-updated timestamp in one statement.
func (s *SQLiteStore) UpdateTracking(ctx context.Context, id string, status parcels.ParcelStatus, historyJSON string, lastUpdated time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE parcels
		SET status = ?, tracking_history = ?, last_updated = ?
		WHERE id = ?`,
		status, historyJSON, lastUpdated, id,
	)
	if err != nil {
		return fmt.Errorf("updating parcel tracking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tracking.ErrParcelNotFound
	}
	return nil
}

// SetEstimatedDelivery records the expected delivery date for a parcel.
func (s *SQLiteStore) SetEstimatedDelivery(ctx context.Context, id string, estimated time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE parcels SET estimated_delivery = ? WHERE id = ?", estimated, id)
	if err != nil {
		return fmt.Errorf("updating estimated delivery: %w", err)
	}
	return nil
}

// SetArchived toggles the archive flag.
func (s *SQLiteStore) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE parcels SET archived = ?, last_updated = ? WHERE id = ?`,
		archived, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("archiving parcel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tracking.ErrParcelNotFound
	}
	return nil
}

// Delete removes a parcel.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM parcels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting parcel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tracking.ErrParcelNotFound
	}
	return nil
}
