package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firstboot/internal/util"
)

type scriptedRunner struct {
	lines []string
	code  int
	specs []util.CmdSpec
}

func (r *scriptedRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	r.specs = append(r.specs, spec)
	for _, l := range r.lines {
		if spec.StderrLine != nil {
			spec.StderrLine(l)
		}
	}
	if r.code != 0 {
		err := errors.New("exit status " + itoa(r.code))
		return util.CmdResult{Code: r.code, Err: err}, err
	}
	return util.CmdResult{}, nil
}

func TestCloneArgs(t *testing.T) {
	got := CloneArgs(Request{RemoteURL: "https://example.com/repo.git", Branch: "release3", Dest: "/data/tmppilot"})
	want := "clone --progress https://example.com/repo.git -b release3 --depth=1 --recurse-submodules /data/tmppilot"
	if strings.Join(got, " ") != want {
		t.Errorf("CloneArgs() = %q, want %q", strings.Join(got, " "), want)
	}
}

func TestFetch_StreamsLines(t *testing.T) {
	r := &scriptedRunner{lines: []string{
		"Cloning into '/data/tmppilot'...",
		"Receiving objects: 100% (10/10), done.",
	}}
	var seen []string
	err := Fetch(context.Background(),
		Request{RemoteURL: "https://example.com/repo.git", Branch: "main", Dest: "/tmp/x"},
		Options{GitPath: "/usr/bin/git", Runner: r},
		func(l string) { seen = append(seen, l) },
	)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("onLine saw %d lines, want 2", len(seen))
	}
	if len(r.specs) != 1 || r.specs[0].Path != "/usr/bin/git" {
		t.Errorf("unexpected runner calls: %+v", r.specs)
	}
}

func TestFetch_NonZeroExit(t *testing.T) {
	r := &scriptedRunner{code: 7}
	err := Fetch(context.Background(),
		Request{RemoteURL: "https://example.com/repo.git", Branch: "main", Dest: "/tmp/x"},
		Options{GitPath: "git", Runner: r},
		nil,
	)
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Fetch() = %v, want *ExitError", err)
	}
	if ee.Code != 7 {
		t.Errorf("ExitError.Code = %d, want 7", ee.Code)
	}
}

func TestFetch_Validation(t *testing.T) {
	ctx := context.Background()
	if err := Fetch(ctx, Request{RemoteURL: "u", Branch: "b", Dest: "d"}, Options{}, nil); err == nil {
		t.Error("expected error for missing git path")
	}
	if err := Fetch(ctx, Request{RemoteURL: "u", Dest: "d"}, Options{GitPath: "git"}, nil); err == nil {
		t.Error("expected error for missing branch")
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "tmppilot")
	live := filepath.Join(root, "openpilot")
	if err := os.MkdirAll(filepath.Join(staging, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(live, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := Cleanup(ctx, staging, live); err != nil {
			t.Fatalf("Cleanup() pass %d: %v", i, err)
		}
	}
	if util.Exists(staging) || util.Exists(live) {
		t.Error("paths still exist after cleanup")
	}
}

func TestCleanup_RefusesRoot(t *testing.T) {
	if err := Cleanup(context.Background(), "/"); err == nil {
		t.Error("expected refusal to remove /")
	}
}
