package fetcher

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StageWeight is one phase of the fetch tool's progress output and its share
// of the overall percentage.
type StageWeight struct {
	Label  string // line prefix, including the trailing ": "
	Weight int
}

// GitStages mirrors the phase order of `git clone --progress`. The split is
// specific to git's output; an equivalent tool needs its own table.
var GitStages = []StageWeight{
	{Label: "Receiving objects: ", Weight: 91},
	{Label: "Resolving deltas: ", Weight: 2},
	{Label: "Updating files: ", Weight: 7},
}

var (
	ErrNoStages    = errors.New("stage table is empty")
	ErrStageWeight = errors.New("stage weights must sum to 100")
)

// ValidateStages checks that stages is non-empty, labels are set and unique,
// weights are positive and they sum to exactly 100.
func ValidateStages(stages []StageWeight) error {
	if len(stages) == 0 {
		return ErrNoStages
	}
	seen := make(map[string]struct{}, len(stages))
	sum := 0
	for i, s := range stages {
		if s.Label == "" {
			return fmt.Errorf("stage %d: empty label", i)
		}
		if _, dup := seen[s.Label]; dup {
			return fmt.Errorf("stage %d: duplicate label %q", i, s.Label)
		}
		seen[s.Label] = struct{}{}
		if s.Weight <= 0 {
			return fmt.Errorf("stage %q: weight %d must be positive", s.Label, s.Weight)
		}
		sum += s.Weight
	}
	if sum != 100 {
		return fmt.Errorf("%w: got %d", ErrStageWeight, sum)
	}
	return nil
}

// ProgressEvent is one diagnostic line and what could be read from it.
type ProgressEvent struct {
	Line         string
	Matched      bool
	Stage        string  // matched label, trimmed
	LocalPercent float64 // percent within the stage
	Base         int     // summed weight of the stages before this one
	Overall      int     // Base + stage share, truncated toward zero
}

// Translator turns a fetch tool's diagnostic line into an overall percent.
// ok is false for lines that carry no recognizable progress.
type Translator interface {
	Translate(line string) (percent int, ok bool)
}

var firstFloat = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// StageTranslator matches lines against an ordered stage table.
type StageTranslator struct {
	stages []StageWeight
}

// NewStageTranslator validates stages and returns a translator over a copy.
func NewStageTranslator(stages []StageWeight) (*StageTranslator, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	cp := make([]StageWeight, len(stages))
	copy(cp, stages)
	return &StageTranslator{stages: cp}, nil
}

// NewGitTranslator returns a StageTranslator over GitStages.
func NewGitTranslator() *StageTranslator {
	t, err := NewStageTranslator(GitStages)
	if err != nil {
		panic(err) // GitStages is a package constant
	}
	return t
}

// Stages returns a copy of the table.
func (t *StageTranslator) Stages() []StageWeight {
	cp := make([]StageWeight, len(t.stages))
	copy(cp, t.stages)
	return cp
}

// Parse scans the table in order and stops at the first label that prefixes line.
func (t *StageTranslator) Parse(line string) ProgressEvent {
	ev := ProgressEvent{Line: line}
	base := 0
	for _, s := range t.stages {
		if strings.HasPrefix(line, s.Label) {
			num := firstFloat.FindString(line[len(s.Label):])
			if num == "" {
				return ev
			}
			local, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return ev
			}
			// malformed counters must not push Overall past the stage
			local = min(local, 100)
			ev.Matched = true
			ev.Stage = strings.TrimSuffix(strings.TrimSpace(s.Label), ":")
			ev.LocalPercent = local
			ev.Base = base
			ev.Overall = base + int(float64(s.Weight)*local/100)
			return ev
		}
		base += s.Weight
	}
	return ev
}

// Translate implements Translator.
func (t *StageTranslator) Translate(line string) (int, bool) {
	ev := t.Parse(line)
	return ev.Overall, ev.Matched
}

// Monotonic wraps a Translator and never reports a value below the highest
// one seen so far.
type Monotonic struct {
	inner Translator
	last  int
}

// NewMonotonic returns a clamping wrapper around inner.
func NewMonotonic(inner Translator) *Monotonic {
	return &Monotonic{inner: inner}
}

// Translate implements Translator.
func (m *Monotonic) Translate(line string) (int, bool) {
	p, ok := m.inner.Translate(line)
	if !ok {
		return 0, false
	}
	if p < m.last {
		return m.last, true
	}
	m.last = p
	return p, true
}
