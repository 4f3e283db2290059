package model

import (
	"path/filepath"
	"sort"
	"time"
)

// InstallState is the single process-wide installer state.
type InstallState int

const (
	StateAwaitingClock InstallState = iota
	StateCloning
	StatePromoting
	StateBootstrapping
	StateAwaitingHandoff
	StateFailed
)

var stateNames = map[InstallState]string{
	StateAwaitingClock:   "awaiting_clock",
	StateCloning:         "cloning",
	StatePromoting:       "promoting",
	StateBootstrapping:   "bootstrapping",
	StateAwaitingHandoff: "awaiting_handoff",
	StateFailed:          "failed",
}

func (s InstallState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s InstallState) Terminal() bool {
	return s == StateAwaitingHandoff || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Transitions only move forward; AwaitingClock may loop on itself, Promoting
// may skip Bootstrapping when it is disabled and any non-terminal state may
// fail.
func (s InstallState) CanTransition(next InstallState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	if s == StateAwaitingClock && next == StateAwaitingClock {
		return true
	}
	if s == StatePromoting && next == StateAwaitingHandoff {
		return true
	}
	return next == s+1
}

// BootstrapParams maps a device parameter name to its raw value.
// Values may hold secrets and must never be logged.
type BootstrapParams map[string]string

// Keys returns the parameter names in sorted order.
func (p BootstrapParams) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Layout is the fixed on-device filesystem layout the installer works in.
type Layout struct {
	DataDir       string
	Staging       string // clone target, transient
	Live          string // final install location
	ParamsDir     string // one file per bootstrap parameter
	HandoffScript string // executed by the boot chain after this process exits
	LaunchScript  string // path relative to Live copied to HandoffScript
	StatusFile    string
	LockFile      string
}

// DefaultDataDir is the device data partition.
const DefaultDataDir = "/data"

// NewLayout derives the install layout under dataDir.
func NewLayout(dataDir string) Layout {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return Layout{
		DataDir:       dataDir,
		Staging:       filepath.Join(dataDir, "tmppilot"),
		Live:          filepath.Join(dataDir, "openpilot"),
		ParamsDir:     filepath.Join(dataDir, "params", "d"),
		HandoffScript: filepath.Join(dataDir, "continue.sh"),
		LaunchScript:  filepath.Join("installer", "continue_openpilot.sh"),
		StatusFile:    filepath.Join(dataDir, "installer", "status.json"),
		LockFile:      filepath.Join(dataDir, "installer", "install.lock"),
	}
}

// Options holds runtime options resolved from flags, env and config.
type Options struct {
	DataDir       string
	GitBinary     string
	Internal      bool   // write bootstrap params and rewrite the push remote
	BootstrapEnv  string // optional KEY=VALUE file merged into bootstrap params
	HandoffDelay  time.Duration
	ClampProgress bool
	MinYear       int
	NoUI          bool
	Verbose       bool
}
