// Package pipeline orchestrates a single first-boot install:
// wait for a valid clock, clone into staging, finalize and hand off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"firstboot/internal/build"
	"firstboot/internal/clock"
	"firstboot/internal/fetcher"
	"firstboot/internal/finalizer"
	"firstboot/internal/lock"
	"firstboot/internal/model"
	"firstboot/internal/progress"
	"firstboot/internal/util"
)

// DefaultHandoffDelay is how long the finished screen stays up before the
// process exits and the boot chain runs the handoff script.
const DefaultHandoffDelay = 60 * time.Second

var (
	ErrCleanup = errors.New("clean previous install")
	ErrFetch   = errors.New("fetch payload")
)

// Install is the state of one install attempt. Each step takes the current
// value and returns the next one.
type Install struct {
	RunID         string
	State         model.InstallState
	Percent       int
	HandoffScript string
	InstalledSize int64
}

// FinalizeFunc promotes, bootstraps and writes the handoff script.
type FinalizeFunc func(ctx context.Context, req finalizer.Request, opts finalizer.Options) (string, error)

// Source names what to clone and the push remote used when bootstrapping.
type Source struct {
	RemoteURL string
	Branch    string
	PushURL   string
}

// DefaultSource returns the source baked in at build time.
func DefaultSource() Source {
	return Source{RemoteURL: build.RemoteURL, Branch: build.Branch, PushURL: build.PushURL}
}

// Service runs the install state machine.
type Service struct {
	gitPath    string
	layout     model.Layout
	opts       model.Options
	source     Source
	params     model.BootstrapParams
	clockOpts  []clock.Option
	gate       *clock.Gate
	translator fetcher.Translator
	runner     util.CmdRunner
	reporter   progress.Reporter
	finalize   FinalizeFunc
	runID      string
	useLock    bool
}

// Option configures a Service.
type Option func(*Service)

// WithGitPath sets the git binary path.
func WithGitPath(p string) Option {
	return func(s *Service) {
		s.gitPath = p
	}
}

// WithOptions sets the runtime options. The layout is derived from DataDir
// unless WithLayout is also given.
func WithOptions(o model.Options) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithLayout overrides the filesystem layout.
func WithLayout(l model.Layout) Option {
	return func(s *Service) {
		s.layout = l
	}
}

// WithSource overrides the build-time remote, branch and push URL.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithBootstrapParams sets the params written when Options.Internal is set.
func WithBootstrapParams(p model.BootstrapParams) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithClockOptions adjusts the clock gate, e.g. its clock source or poll
// interval. They are applied after the defaults derived from Options.
func WithClockOptions(opts ...clock.Option) Option {
	return func(s *Service) {
		s.clockOpts = append(s.clockOpts, opts...)
	}
}

// WithTranslator overrides the progress translator.
func WithTranslator(t fetcher.Translator) Option {
	return func(s *Service) {
		s.translator = t
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithFinalizer replaces finalizer.Finalize (useful for testing).
func WithFinalizer(fn FinalizeFunc) Option {
	return func(s *Service) {
		s.finalize = fn
	}
}

// WithRunID sets the run id attached to reporter events.
func WithRunID(id string) Option {
	return func(s *Service) {
		s.runID = id
	}
}

// WithoutLock skips the single-install lock.
func WithoutLock() Option {
	return func(s *Service) {
		s.useLock = false
	}
}

// NewService constructs a Service, applying defaults for anything not set.
func NewService(opts ...Option) *Service {
	s := &Service{
		source:  DefaultSource(),
		useLock: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.layout == (model.Layout{}) {
		s.layout = model.NewLayout(s.opts.DataDir)
	}
	s.gate = clock.NewGate(append([]clock.Option{
		clock.WithMinYear(s.opts.MinYear),
		clock.WithOnWait(s.clockWaiting),
	}, s.clockOpts...)...)
	if s.translator == nil {
		s.translator = fetcher.NewGitTranslator()
		if s.opts.ClampProgress {
			s.translator = fetcher.NewMonotonic(s.translator)
		}
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop
	}
	if s.finalize == nil {
		s.finalize = finalizer.Finalize
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.opts.HandoffDelay == 0 {
		s.opts.HandoffDelay = DefaultHandoffDelay
	}
	return s
}

// Layout returns the layout the service installs into.
func (s *Service) Layout() model.Layout { return s.layout }

// RunID returns the id attached to reporter events.
func (s *Service) RunID() string { return s.runID }

// Run drives the install to a terminal state. Exactly one reporter Result is
// emitted. On success it returns after the handoff delay.
func (s *Service) Run(ctx context.Context) (Install, error) {
	logger := log.WithFunc("pipeline.Run")
	in := Install{RunID: s.runID, State: model.StateAwaitingClock}

	if s.gitPath == "" {
		return s.fail(ctx, in, errors.New("git path is required"))
	}
	if s.useLock {
		lk := lock.New(s.layout.LockFile)
		if err := lk.Acquire(ctx); err != nil {
			return s.fail(ctx, in, err)
		}
		defer func() {
			if err := lk.Release(); err != nil {
				logger.Warnf(ctx, "release lock: %v", err)
			}
		}()
	}
	logger.Infof(ctx, "install %s starting: %s (%s) -> %s", in.RunID, s.source.RemoteURL, s.source.Branch, s.layout.Live)

	steps := []func(context.Context, Install) (Install, error){
		s.AwaitClock,
		s.Clone,
		s.Finalize,
	}
	for _, step := range steps {
		next, err := step(ctx, in)
		if err != nil {
			return s.fail(ctx, next, err)
		}
		in = next
	}
	return s.Handoff(ctx, in)
}

// AwaitClock blocks until the system clock is plausible.
func (s *Service) AwaitClock(ctx context.Context, in Install) (Install, error) {
	s.update(in, "Waiting for valid time")
	if err := s.gate.Wait(ctx); err != nil {
		return in, fmt.Errorf("wait for clock: %w", err)
	}
	return in, nil
}

func (s *Service) clockWaiting(now time.Time, _ int) {
	s.reporter.Update(progress.Update{
		RunID:   s.runID,
		State:   model.StateAwaitingClock,
		Message: fmt.Sprintf("Waiting for valid time (clock reads %s)", now.UTC().Format(time.DateOnly)),
	})
}

// Clone removes any previous staging or live tree and clones the payload
// into staging, translating git progress into the overall percent.
func (s *Service) Clone(ctx context.Context, in Install) (Install, error) {
	in, err := s.transition(in, model.StateCloning, "Installing...")
	if err != nil {
		return in, err
	}
	if err := fetcher.Cleanup(ctx, s.layout.Staging, s.layout.Live); err != nil {
		return in, fmt.Errorf("%w: %w", ErrCleanup, err)
	}

	req := fetcher.Request{RemoteURL: s.source.RemoteURL, Branch: s.source.Branch, Dest: s.layout.Staging}
	onLine := func(line string) {
		s.reporter.Log(progress.Log{RunID: in.RunID, Stream: progress.StreamStderr, Line: line})
		pct, ok := s.translator.Translate(line)
		if !ok || pct == in.Percent {
			return
		}
		in.Percent = pct
		s.update(in, "Installing...")
	}
	err = fetcher.Fetch(ctx, req, fetcher.Options{
		GitPath: s.gitPath,
		Verbose: s.opts.Verbose,
		Runner:  s.runner,
		OnStdout: func(line string) {
			s.reporter.Log(progress.Log{RunID: in.RunID, Stream: progress.StreamStdout, Line: line})
		},
	}, onLine)
	if err != nil {
		return in, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return in, nil
}

// Finalize promotes staging to live, bootstraps when enabled and installs
// the handoff script.
func (s *Service) Finalize(ctx context.Context, in Install) (Install, error) {
	in, err := s.transition(in, model.StatePromoting, "Finishing install")
	if err != nil {
		return in, err
	}

	req := finalizer.RequestFromLayout(s.layout)
	if s.opts.Internal {
		req.Bootstrap = true
		req.Params = s.params
		req.PushURL = s.source.PushURL
	}
	var stepErr error
	script, err := s.finalize(ctx, req, finalizer.Options{
		GitPath: s.gitPath,
		Runner:  s.runner,
		Verbose: s.opts.Verbose,
		OnStep: func(st model.InstallState) {
			if stepErr != nil {
				return
			}
			in, stepErr = s.transition(in, st, "Bootstrapping device")
		},
	})
	if err != nil {
		return in, err
	}
	if stepErr != nil {
		return in, stepErr
	}
	in.HandoffScript = script

	size, err := util.DirSize(s.layout.Live)
	if err != nil {
		log.WithFunc("pipeline.Finalize").Warnf(ctx, "measure %s: %v", s.layout.Live, err)
	}
	in.InstalledSize = size
	return in, nil
}

// Handoff marks the install complete, keeps it on screen for the handoff
// delay and emits the final Result. Cancellation during the delay only
// shortens it.
func (s *Service) Handoff(ctx context.Context, in Install) (Install, error) {
	in.Percent = 100
	in, err := s.transition(in, model.StateAwaitingHandoff, "Starting...")
	if err != nil {
		return s.fail(ctx, in, err)
	}
	log.WithFunc("pipeline.Handoff").Infof(ctx, "install %s complete (%s), handing off in %s",
		in.RunID, in.HandoffScript, s.opts.HandoffDelay)

	timer := time.NewTimer(s.opts.HandoffDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-timer.C:
	}

	s.reporter.Result(progress.Result{
		RunID:         in.RunID,
		State:         in.State,
		HandoffScript: in.HandoffScript,
		InstalledSize: in.InstalledSize,
	})
	return in, nil
}

func (s *Service) transition(in Install, next model.InstallState, msg string) (Install, error) {
	if !in.State.CanTransition(next) {
		return in, fmt.Errorf("invalid transition %s -> %s", in.State, next)
	}
	in.State = next
	s.update(in, msg)
	return in, nil
}

func (s *Service) update(in Install, msg string) {
	s.reporter.Update(progress.Update{
		RunID:   in.RunID,
		State:   in.State,
		Percent: in.Percent,
		Message: msg,
	})
}

func (s *Service) fail(ctx context.Context, in Install, err error) (Install, error) {
	log.WithFunc("pipeline.Run").Warnf(ctx, "install %s failed in %s: %v", in.RunID, in.State, err)
	if in.State.CanTransition(model.StateFailed) {
		in.State = model.StateFailed
	}
	s.update(in, "Installation failed")
	s.reporter.Result(progress.Result{RunID: in.RunID, State: in.State, Err: err})
	return in, err
}
