// Package clock gates the install on a plausible system time.
//
// Devices can boot with an unset real-time clock that reports a date long
// before the payload's TLS certificates were issued. Nothing downstream works
// until network time arrives, so the gate waits for it. There is no timeout:
// if the clock never synchronizes, Wait blocks until its context ends. The
// wait is logged periodically so a stuck device is visible.
package clock

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultMinYear is the first calendar year considered plausible.
	DefaultMinYear = 2020
	// DefaultPollInterval is how often the clock is re-read while waiting.
	DefaultPollInterval = 500 * time.Millisecond

	waitLogInterval = 10 * time.Second
)

// IsTimeValid reports whether t falls in or after minYear (UTC). There is no
// upper bound.
func IsTimeValid(t time.Time, minYear int) bool {
	return t.UTC().Year() >= minYear
}

// Gate polls the clock until it is valid.
type Gate struct {
	minYear  int
	interval time.Duration
	now      func() time.Time
	onWait   func(now time.Time, attempt int)
}

// Option configures a Gate.
type Option func(*Gate)

// WithMinYear overrides DefaultMinYear.
func WithMinYear(y int) Option {
	return func(g *Gate) {
		g.minYear = y
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) {
		g.interval = d
	}
}

// WithNow injects the clock source (useful for testing).
func WithNow(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithOnWait registers a callback invoked on every failed check.
func WithOnWait(fn func(now time.Time, attempt int)) Option {
	return func(g *Gate) {
		g.onWait = fn
	}
}

// NewGate returns a Gate with defaults applied for anything not set.
func NewGate(opts ...Option) *Gate {
	g := &Gate{}
	for _, o := range opts {
		o(g)
	}
	if g.minYear <= 0 {
		g.minYear = DefaultMinYear
	}
	if g.interval <= 0 {
		g.interval = DefaultPollInterval
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// MinYear returns the configured threshold.
func (g *Gate) MinYear() int { return g.minYear }

// Valid reads the clock once.
func (g *Gate) Valid() bool {
	return IsTimeValid(g.now(), g.minYear)
}

// Wait blocks until the clock is valid or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	logger := log.WithFunc("clock.Wait")
	sometimes := rate.Sometimes{First: 1, Interval: waitLogInterval}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := g.now()
		if IsTimeValid(now, g.minYear) {
			if attempt > 1 {
				logger.Infof(ctx, "clock valid after %d checks: %s", attempt, now.UTC().Format(time.RFC3339))
			}
			return nil
		}
		sometimes.Do(func() {
			logger.Warnf(ctx, "waiting for valid time: now=%s, need year >= %d", now.UTC().Format(time.RFC3339), g.minYear)
		})
		if g.onWait != nil {
			g.onWait(now, attempt)
		}

		timer := time.NewTimer(g.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
