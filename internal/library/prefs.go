// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// PrefShadersEnabled stores whether the CRT shader is on.
const PrefShadersEnabled = "shaders_enabled"

// Preference returns the stored value of key and whether it exists.
func (s *Store) Preference(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetPreference stores value under key.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO preferences (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ShadersEnabled reports the shader preference. A missing or unreadable
// value means enabled.
func (s *Store) ShadersEnabled(ctx context.Context) (bool, error) {
	v, ok, err := s.Preference(ctx, PrefShadersEnabled)
	if err != nil || !ok {
		return true, err
	}
	enabled, perr := strconv.ParseBool(v)
	if perr != nil {
		return true, nil
	}
	return enabled, nil
}

// SetShadersEnabled persists the shader preference.
func (s *Store) SetShadersEnabled(ctx context.Context, enabled bool) error {
	return s.SetPreference(ctx, PrefShadersEnabled, strconv.FormatBool(enabled))
}
