package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/projecteru2/core/log"

	"firstboot/internal/util"
)

// Options controls fetcher behavior.
type Options struct {
	GitPath string // Path to git
	Verbose bool
	Runner  util.CmdRunner // defaults to util.NewDefaultRunner()
	// OnStdout receives git's stdout lines (submodule chatter).
	OnStdout func(string)
}

// Request names what to clone and where.
type Request struct {
	RemoteURL string
	Branch    string
	Dest      string
}

// ExitError reports a clone that ran but exited non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("git clone exited with code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// CloneArgs returns the git arguments for a shallow clone of req with
// submodules and progress output on stderr.
func CloneArgs(req Request) []string {
	return []string{
		"clone", "--progress",
		req.RemoteURL,
		"-b", req.Branch,
		"--depth=1",
		"--recurse-submodules",
		req.Dest,
	}
}

// Fetch clones req.Dest from the remote. Every stderr line (progress meters
// included, one per redraw) is passed to onLine as it arrives. On failure the
// destination may be left partially populated.
func Fetch(ctx context.Context, req Request, opts Options, onLine func(string)) error {
	if opts.GitPath == "" {
		return errors.New("git path is required")
	}
	if req.RemoteURL == "" || req.Branch == "" || req.Dest == "" {
		return errors.New("remote, branch and destination are required")
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	logger := log.WithFunc("fetcher.Fetch")
	logger.Infof(ctx, "cloning %s (branch %s) into %s", req.RemoteURL, req.Branch, req.Dest)

	res, err := runner.Run(ctx, util.CmdSpec{
		Path:       opts.GitPath,
		Args:       CloneArgs(req),
		Verbose:    opts.Verbose,
		StdoutLine: opts.OnStdout,
		StderrLine: onLine,
	})
	if err != nil {
		if res.Code > 0 {
			return &ExitError{Code: res.Code, Err: err}
		}
		return fmt.Errorf("run git: %w", err)
	}
	return nil
}

// Cleanup removes every path recursively. Missing paths are not an error, so
// running it twice on a clean filesystem is a no-op.
func Cleanup(ctx context.Context, paths ...string) error {
	logger := log.WithFunc("fetcher.Cleanup")
	for _, p := range paths {
		if p == "" || p == "/" {
			return fmt.Errorf("refusing to remove %q", p)
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		logger.Debugf(ctx, "removed %s", p)
	}
	return nil
}
