// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceLock_SecondInstanceFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := AcquireInstanceLock(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nostalgia.lock"), first.Path())

	_, err = AcquireInstanceLock(dir)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, first.Release())

	again, err := AcquireInstanceLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
