package lock

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquire_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installer", "install.lock")
	ctx := context.Background()

	first := New(path)
	require.NoError(t, first.Acquire(ctx))

	second := New(path)
	require.ErrorIs(t, second.Acquire(ctx), ErrHeld)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release())
}

func TestRelease_Unheld(t *testing.T) {
	require.NoError(t, New(filepath.Join(t.TempDir(), "x.lock")).Release())
}
