package ui

import (
	"fmt"
	"io"
	"sync"

	units "github.com/docker/go-units"

	"firstboot/internal/model"
	"firstboot/internal/progress"
)

// Plain writes one line per state or percent change. It is used when
// stdout is not a terminal, e.g. a serial console.
type Plain struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	started bool
	state   model.InstallState
	percent int
}

var _ progress.Reporter = (*Plain)(nil)

// NewPlain returns a Plain reporter writing to w. Fetch output is echoed
// only when verbose is set.
func NewPlain(w io.Writer, verbose bool) *Plain {
	return &Plain{w: w, verbose: verbose}
}

func (p *Plain) Update(u progress.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && u.State == p.state && u.Percent == p.percent {
		return
	}
	p.started = true
	p.state, p.percent = u.State, u.Percent
	if u.State == model.StateAwaitingClock {
		fmt.Fprintf(p.w, "%s\n", u.Message)
		return
	}
	fmt.Fprintf(p.w, "%3d%% %s\n", u.Percent, u.Message)
}

func (p *Plain) Log(l progress.Log) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  git: %s\n", l.Line)
}

func (p *Plain) Result(r progress.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Err != nil {
		fmt.Fprintf(p.w, "Installation failed: %v\n", r.Err)
		return
	}
	fmt.Fprintf(p.w, "Installed (%s), handoff script %s\n", units.HumanSize(float64(r.InstalledSize)), r.HandoffScript)
}
