package progress

import "firstboot/internal/model"

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys a state change or a new completion percent.
// Percent is 0..100; it only carries meaning while cloning and after.
type Update struct {
	RunID   string
	State   model.InstallState
	Percent int
	Message string // short human-friendly status line
}

// Log is a diagnostic line from the fetch tool.
type Log struct {
	RunID  string
	Stream LogStream
	Line   string
}

// Result is emitted exactly once when the install reaches a terminal state.
type Result struct {
	RunID         string
	State         model.InstallState
	HandoffScript string
	InstalledSize int64
	Err           error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Multi fans events out to every non-nil reporter in order.
func Multi(reporters ...Reporter) Reporter {
	var rs multi
	for _, r := range reporters {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return rs
}

type multi []Reporter

func (m multi) Update(u Update) {
	for _, r := range m {
		r.Update(u)
	}
}

func (m multi) Log(l Log) {
	for _, r := range m {
		r.Log(l)
	}
}

func (m multi) Result(res Result) {
	for _, r := range m {
		r.Result(res)
	}
}

// Nop discards every event.
var Nop Reporter = nop{}

type nop struct{}

func (nop) Update(Update) {}
func (nop) Log(Log)       {}
func (nop) Result(Result) {}
