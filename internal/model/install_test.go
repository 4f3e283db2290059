package model

import (
	"path/filepath"
	"testing"
)

func TestInstallState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to InstallState
		want     bool
	}{
		{StateAwaitingClock, StateAwaitingClock, true},
		{StateAwaitingClock, StateCloning, true},
		{StateAwaitingClock, StatePromoting, false},
		{StateCloning, StatePromoting, true},
		{StateCloning, StateCloning, false},
		{StateCloning, StateAwaitingClock, false},
		{StatePromoting, StateBootstrapping, true},
		{StateBootstrapping, StateAwaitingHandoff, true},
		{StatePromoting, StateAwaitingHandoff, true},
		{StateCloning, StateAwaitingHandoff, false},
		{StateCloning, StateFailed, true},
		{StateAwaitingHandoff, StateFailed, false},
		{StateFailed, StateFailed, false},
		{StateFailed, StateCloning, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstallState_String(t *testing.T) {
	if StateAwaitingHandoff.String() != "awaiting_handoff" {
		t.Errorf("String() = %q", StateAwaitingHandoff.String())
	}
	if InstallState(42).String() != "unknown" {
		t.Errorf("String() for out of range = %q", InstallState(42).String())
	}
}

func TestNewLayout(t *testing.T) {
	l := NewLayout("")
	if l.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", l.DataDir, DefaultDataDir)
	}
	if l.Staging != "/data/tmppilot" || l.Live != "/data/openpilot" {
		t.Errorf("unexpected staging/live: %q %q", l.Staging, l.Live)
	}
	if l.ParamsDir != "/data/params/d" || l.HandoffScript != "/data/continue.sh" {
		t.Errorf("unexpected params/handoff: %q %q", l.ParamsDir, l.HandoffScript)
	}

	root := t.TempDir()
	l = NewLayout(root)
	if filepath.Dir(l.Staging) != root || filepath.Dir(l.Live) != root {
		t.Errorf("staging and live must share the data dir so the rename stays on one filesystem")
	}
}

func TestBootstrapParams_Keys(t *testing.T) {
	p := BootstrapParams{"SshEnabled": "1", "GithubSshKeys": "ssh-ed25519 AAAA", "RecordFrontLock": "1"}
	keys := p.Keys()
	want := []string{"GithubSshKeys", "RecordFrontLock", "SshEnabled"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}
