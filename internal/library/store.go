// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/nostalgia/internal/persistence/sqlite"
)

// Store persists channels, items and preferences in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Verify runs a quick integrity check.
func (s *Store) Verify(ctx context.Context) error {
	issues, err := sqlite.VerifyIntegrity(ctx, s.db, "quick")
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("library database corrupt: %v", issues)
	}
	return nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		dir TEXT NOT NULL,
		item_count INTEGER NOT NULL DEFAULT 0,
		scanned_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		video TEXT NOT NULL,
		audio TEXT NOT NULL DEFAULT '',
		subtitles TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (channel_id, video)
	);

	CREATE INDEX IF NOT EXISTS idx_items_channel ON items(channel_id);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Replace swaps the stored library for snap in one transaction.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels`); err != nil {
		return fmt.Errorf("clear channels: %w", err)
	}

	for _, ch := range snap.Channels {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO channels (id, label, dir, item_count, scanned_at) VALUES (?, ?, ?, ?, ?)`,
			ch.ID, ch.Label, ch.Dir, ch.ItemCount, ch.ScannedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert channel %s: %w", ch.Dir, err)
		}
	}
	for _, it := range snap.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (channel_id, label, video, audio, subtitles, size_bytes) VALUES (?, ?, ?, ?, ?, ?)`,
			it.ChannelID, it.Label, it.Video, it.Audio, it.Subtitles, it.SizeBytes)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.Video, err)
		}
	}
	return tx.Commit()
}

// Channels lists channels ordered by label.
func (s *Store) Channels(ctx context.Context) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, label, dir, item_count, scanned_at
	FROM channels
	ORDER BY label, dir
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Channel returns one channel or ErrChannelNotFound.
func (s *Store) Channel(ctx context.Context, id string) (Channel, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, label, dir, item_count, scanned_at
	FROM channels
	WHERE id = ?
	`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	return ch, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(r rowScanner) (Channel, error) {
	var ch Channel
	var scannedAt string
	if err := r.Scan(&ch.ID, &ch.Label, &ch.Dir, &ch.ItemCount, &scannedAt); err != nil {
		return Channel{}, err
	}
	ch.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)
	return ch, nil
}

// Items lists the programmes of a channel ordered by label.
func (s *Store) Items(ctx context.Context, channelID string) ([]Item, error) {
	if _, err := s.Channel(ctx, channelID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT channel_id, label, video, audio, subtitles, size_bytes
	FROM items
	WHERE channel_id = ?
	ORDER BY label
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ChannelID, &it.Label, &it.Video, &it.Audio, &it.Subtitles, &it.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
