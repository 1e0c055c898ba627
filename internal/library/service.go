// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
)

// Service scans the root into the store. Only one scan runs at a time.
type Service struct {
	root   string
	store  *Store
	logger zerolog.Logger

	scanMu   sync.Mutex
	mu       sync.RWMutex
	lastScan *ScanResult
}

// NewService creates a service for root backed by store.
func NewService(root string, store *Store) *Service {
	return &Service{
		root:   root,
		store:  store,
		logger: log.WithComponent("library"),
	}
}

// Store returns the underlying store.
func (s *Service) Store() *Store { return s.store }

// Root returns the configured library root.
func (s *Service) Root() string { return s.root }

// Scan walks the root and replaces the stored library. It returns
// ErrScanRunning without waiting when another scan is in progress.
func (s *Service) Scan(ctx context.Context) (ScanResult, error) {
	if !s.scanMu.TryLock() {
		return ScanResult{}, ErrScanRunning
	}
	defer s.scanMu.Unlock()

	res := ScanResult{Started: time.Now()}
	snap, err := Scan(ctx, s.root)
	if err == nil {
		err = s.store.Replace(ctx, snap)
	}
	res.Finished = time.Now()
	metrics.RecordLibraryScan(len(snap.Channels), err)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str(log.FieldEvent, "library.scan_failed").
			Str(log.FieldPath, s.root).
			Msg("library scan failed")
		return res, fmt.Errorf("scan %s: %w", s.root, err)
	}

	res.Channels = len(snap.Channels)
	res.Items = len(snap.Items)
	res.Skipped = snap.Skipped
	res.Errors = snap.Errors

	s.mu.Lock()
	s.lastScan = &res
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldEvent, "library.scanned").
		Str(log.FieldPath, s.root).
		Int("channels", res.Channels).
		Int("items", res.Items).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Str("total_size", humanize.Bytes(uint64(snap.TotalBytes()))).
		Dur("took", res.Finished.Sub(res.Started)).
		Msg("library scan complete")
	return res, nil
}

// LastScan returns the most recent successful scan, if any.
func (s *Service) LastScan() (ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastScan == nil {
		return ScanResult{}, false
	}
	return *s.lastScan, true
}

// Channels lists the stored channels.
func (s *Service) Channels(ctx context.Context) ([]Channel, error) {
	return s.store.Channels(ctx)
}

// Items lists the programmes of a channel.
func (s *Service) Items(ctx context.Context, channelID string) ([]Item, error) {
	return s.store.Items(ctx, channelID)
}
