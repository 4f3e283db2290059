// Package finalizer promotes a fully cloned staging tree into the live
// location, writes optional device bootstrap parameters and installs the
// handoff script. Every step is fatal on failure and nothing is rolled back.
package finalizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/projecteru2/core/log"

	"firstboot/internal/model"
	"firstboot/internal/util"
)

var (
	ErrPromote       = errors.New("promote staging to live")
	ErrBootstrap     = errors.New("bootstrap device")
	ErrHandoffScript = errors.New("write handoff script")
)

// Request is everything Finalize needs.
type Request struct {
	Staging       string
	Live          string
	Bootstrap     bool
	Params        model.BootstrapParams
	ParamsDir     string
	PushURL       string // rewritten onto origin's push url when Bootstrap is set
	LaunchScript  string // relative to Live
	HandoffScript string
}

// RequestFromLayout fills the path fields of a Request from l.
func RequestFromLayout(l model.Layout) Request {
	return Request{
		Staging:       l.Staging,
		Live:          l.Live,
		ParamsDir:     l.ParamsDir,
		LaunchScript:  l.LaunchScript,
		HandoffScript: l.HandoffScript,
	}
}

// Options controls how external commands are run.
type Options struct {
	GitPath string
	Runner  util.CmdRunner
	Verbose bool
	// OnStep is called before bootstrapping and before the handoff script
	// is written, so callers can surface progress.
	OnStep func(model.InstallState)
}

// Finalize runs promote, bootstrap (when enabled) and handoff script install,
// returning the handoff script path.
func Finalize(ctx context.Context, req Request, opts Options) (string, error) {
	if err := Promote(ctx, req.Staging, req.Live); err != nil {
		return "", err
	}
	if req.Bootstrap {
		if opts.OnStep != nil {
			opts.OnStep(model.StateBootstrapping)
		}
		if err := Bootstrap(ctx, req, opts); err != nil {
			return "", err
		}
	}
	return WriteHandoffScript(ctx, req.Live, req.LaunchScript, req.HandoffScript)
}

// Promote atomically renames a populated staging directory to live.
// It fails if live already exists; the live tree is never modified in place.
func Promote(ctx context.Context, staging, live string) error {
	fi, err := os.Stat(staging)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPromote, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrPromote, staging)
	}
	if err := renameNoReplace(staging, live); err != nil {
		return fmt.Errorf("%w: %w", ErrPromote, err)
	}
	if err := util.SyncParentDir(filepath.Dir(live)); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrPromote, filepath.Dir(live), err)
	}
	log.WithFunc("finalizer.Promote").Infof(ctx, "promoted %s -> %s", staging, live)
	return nil
}

// Bootstrap writes one file per parameter under req.ParamsDir and repoints
// the live checkout's push remote at req.PushURL. Values are written raw and
// are never logged.
func Bootstrap(ctx context.Context, req Request, opts Options) error {
	logger := log.WithFunc("finalizer.Bootstrap")
	if err := util.EnsureDir(req.ParamsDir); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrBootstrap, req.ParamsDir, err)
	}
	for _, key := range req.Params.Keys() {
		if key == "" || key == "." || key == ".." || strings.ContainsRune(key, filepath.Separator) {
			return fmt.Errorf("%w: invalid parameter name %q", ErrBootstrap, key)
		}
		path := filepath.Join(req.ParamsDir, key)
		if err := util.AtomicWriteFile(path, []byte(req.Params[key]), 0o644); err != nil {
			return fmt.Errorf("%w: write param %s: %w", ErrBootstrap, key, err)
		}
		logger.Infof(ctx, "wrote param %s", key)
	}

	if req.PushURL == "" {
		return nil
	}
	if opts.GitPath == "" {
		return fmt.Errorf("%w: git path is required to set the push remote", ErrBootstrap)
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	if _, err := runner.Run(ctx, util.CmdSpec{
		Path:    opts.GitPath,
		Args:    SetPushURLArgs(req.Live, req.PushURL),
		Verbose: opts.Verbose,
	}); err != nil {
		return fmt.Errorf("%w: set push remote: %w", ErrBootstrap, err)
	}
	logger.Infof(ctx, "origin push url set to %s", req.PushURL)
	return nil
}

// SetPushURLArgs returns git arguments that change only origin's push URL
// in the checkout at dir; fetches keep using the read remote.
func SetPushURLArgs(dir, pushURL string) []string {
	return []string{"-C", dir, "remote", "set-url", "origin", "--push", pushURL}
}

// WriteHandoffScript copies launchScript (relative to live) to dst+".new",
// marks it executable and renames it over dst, so the boot chain never sees
// a partially written script.
func WriteHandoffScript(ctx context.Context, live, launchScript, dst string) (string, error) {
	src := filepath.Join(live, launchScript)
	tmp := dst + ".new"

	// a leftover from an interrupted run may be a symlink
	if err := util.RemoveIfExists(tmp); err != nil {
		return "", fmt.Errorf("%w: remove stale %s: %w", ErrHandoffScript, tmp, err)
	}
	if err := util.CopyFile(src, tmp, 0o644); err != nil {
		return "", fmt.Errorf("%w: copy %s: %w", ErrHandoffScript, src, err)
	}
	if err := os.Chmod(tmp, 0o755); err != nil { //nolint:gosec // handoff script must be executable
		return "", fmt.Errorf("%w: chmod %s: %w", ErrHandoffScript, tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", fmt.Errorf("%w: rename %s: %w", ErrHandoffScript, tmp, err)
	}
	if err := util.SyncParentDir(filepath.Dir(dst)); err != nil {
		return "", fmt.Errorf("%w: sync %s: %w", ErrHandoffScript, filepath.Dir(dst), err)
	}
	log.WithFunc("finalizer.WriteHandoffScript").Infof(ctx, "handoff script installed at %s", dst)
	return dst, nil
}

func renameChecked(oldpath, newpath string) error {
	if _, err := os.Lstat(newpath); err == nil {
		return fmt.Errorf("%s: %w", newpath, os.ErrExist)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.Rename(oldpath, newpath)
}
