package status

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"firstboot/internal/model"
	"firstboot/internal/progress"
)

func TestFile_WritesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installer", "status.json")
	f := NewFile(path)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	f.Update(progress.Update{RunID: "r1", State: model.StateAwaitingClock, Message: "Waiting for valid time"})
	s, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "awaiting_clock", s.State)
	require.Equal(t, fixed, s.UpdatedAt)

	f.Update(progress.Update{RunID: "r1", State: model.StateCloning, Percent: 45})
	s, err = Read(path)
	require.NoError(t, err)
	require.Equal(t, "cloning", s.State)
	require.Equal(t, 45, s.Percent)

	// Same state and percent: file is left alone.
	require.NoError(t, os.Remove(path))
	f.Update(progress.Update{RunID: "r1", State: model.StateCloning, Percent: 45})
	require.NoFileExists(t, path)
}

func TestFile_Result(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	f := NewFile(path)

	f.Result(progress.Result{
		RunID:         "r2",
		State:         model.StateAwaitingHandoff,
		HandoffScript: "/data/continue.sh",
		InstalledSize: 1500000,
	})
	s, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "awaiting_handoff", s.State)
	require.Equal(t, "/data/continue.sh", s.HandoffScript)
	require.Equal(t, "1.5MB", s.InstalledSize)
	require.Empty(t, s.Error)

	f.Result(progress.Result{RunID: "r2", State: model.StateFailed, Err: errors.New("git clone exited with code 7")})
	s, err = Read(path)
	require.NoError(t, err)
	require.Equal(t, "failed", s.State)
	require.Contains(t, s.Error, "code 7")
	require.Equal(t, "failed", f.Snapshot().State)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
