// Package status persists the installer's progress to a JSON file so that a
// supervisor (or `firstboot status`) can see where a device is stuck.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"

	"firstboot/internal/progress"
	"firstboot/internal/util"
)

// Snapshot is the on-disk status document.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	State         string    `json:"state"`
	Percent       int       `json:"percent"`
	Message       string    `json:"message,omitempty"`
	HandoffScript string    `json:"handoff_script,omitempty"`
	InstalledSize string    `json:"installed_size,omitempty"`
	Error         string    `json:"error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// File is a progress.Reporter that rewrites the status file atomically
// whenever the state or percent changes.
type File struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

var _ progress.Reporter = (*File)(nil)

// NewFile returns a status reporter writing to path.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Update implements progress.Reporter.
func (f *File) Update(u progress.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := u.State.String()
	if f.snap.RunID == u.RunID && f.snap.State == state && f.snap.Percent == u.Percent {
		return
	}
	f.snap.RunID = u.RunID
	f.snap.State = state
	f.snap.Percent = u.Percent
	f.snap.Message = u.Message
	f.flush()
}

// Log implements progress.Reporter. Diagnostic lines are not persisted.
func (f *File) Log(progress.Log) {}

// Result implements progress.Reporter.
func (f *File) Result(r progress.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.RunID = r.RunID
	f.snap.State = r.State.String()
	f.snap.HandoffScript = r.HandoffScript
	if r.InstalledSize > 0 {
		f.snap.InstalledSize = units.HumanSize(float64(r.InstalledSize))
	}
	if r.Err != nil {
		f.snap.Error = r.Err.Error()
	}
	f.flush()
}

// Snapshot returns a copy of the last written document.
func (f *File) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *File) flush() {
	f.snap.UpdatedAt = f.now().UTC()
	if err := write(f.path, f.snap); err != nil {
		log.WithFunc("status.flush").Warnf(context.TODO(), "write %s: %v", f.path, err)
	}
}

func write(path string, s Snapshot) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	data = append(data, '\n')
	return util.AtomicWriteFile(path, data, 0o644)
}

// Read loads the status document at path.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the install layout
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}
