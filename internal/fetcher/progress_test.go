package fetcher

import (
	"errors"
	"testing"
)

func TestStageTranslator_Translate(t *testing.T) {
	tr := NewGitTranslator()

	tests := []struct {
		name      string
		line      string
		wantOk    bool
		want      int
		wantBase  int
		wantStage string
	}{
		{
			name:      "receiving half way",
			line:      "Receiving objects: 50% (500/1000)",
			wantOk:    true,
			want:      45,
			wantBase:  0,
			wantStage: "Receiving objects",
		},
		{
			name:      "receiving with git padding and throughput",
			line:      "Receiving objects:  57% (5700/10000), 12.34 MiB | 4.20 MiB/s",
			wantOk:    true,
			want:      51,
			wantStage: "Receiving objects",
		},
		{
			name:      "resolving complete",
			line:      "Resolving deltas: 100% (20/20)",
			wantOk:    true,
			want:      93,
			wantBase:  91,
			wantStage: "Resolving deltas",
		},
		{
			name:      "updating files with fraction",
			line:      "Updating files:  50.5% (101/200)",
			wantOk:    true,
			want:      96,
			wantBase:  93,
			wantStage: "Updating files",
		},
		{
			name:      "updating files done",
			line:      "Updating files: 100% (200/200), done.",
			wantOk:    true,
			want:      100,
			wantBase:  93,
			wantStage: "Updating files",
		},
		{
			name:      "receiving counter past 100",
			line:      "Receiving objects: 150% (3/2)",
			wantOk:    true,
			want:      91,
			wantBase:  0,
			wantStage: "Receiving objects",
		},
		{
			name:      "updating counter past 100",
			line:      "Updating files: 250% (500/200)",
			wantOk:    true,
			want:      100,
			wantBase:  93,
			wantStage: "Updating files",
		},
		{
			name:   "cloning banner",
			line:   "Cloning into '/data/tmppilot'...",
			wantOk: false,
		},
		{
			name:   "server side counting",
			line:   "remote: Counting objects: 100% (10/10), done.",
			wantOk: false,
		},
		{
			name:   "label without number",
			line:   "Receiving objects: done",
			wantOk: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.Translate(tt.line)
			if ok != tt.wantOk {
				t.Fatalf("Translate(%q) ok = %v, want %v", tt.line, ok, tt.wantOk)
			}
			if !tt.wantOk {
				return
			}
			if got != tt.want {
				t.Errorf("Translate(%q) = %d, want %d", tt.line, got, tt.want)
			}
			ev := tr.Parse(tt.line)
			if ev.Base != tt.wantBase {
				t.Errorf("Parse(%q).Base = %d, want %d", tt.line, ev.Base, tt.wantBase)
			}
			if ev.Stage != tt.wantStage {
				t.Errorf("Parse(%q).Stage = %q, want %q", tt.line, ev.Stage, tt.wantStage)
			}
		})
	}
}

func TestStageTranslator_Deterministic(t *testing.T) {
	tr := NewGitTranslator()
	line := "Receiving objects:  33% (330/1000)"
	first, _ := tr.Translate(line)
	for i := 0; i < 100; i++ {
		if got, _ := tr.Translate(line); got != first {
			t.Fatalf("call %d returned %d, first returned %d", i, got, first)
		}
	}
}

func TestStageTranslator_MonotonicInput(t *testing.T) {
	tr := NewGitTranslator()
	var lines []string
	for _, s := range tr.Stages() {
		for p := 0; p <= 100; p += 7 {
			lines = append(lines, s.Label+itoa(p)+"% (x/y)")
		}
		lines = append(lines, s.Label+"100% (y/y), done.")
	}

	last := -1
	for _, l := range lines {
		got, ok := tr.Translate(l)
		if !ok {
			t.Fatalf("line %q not recognized", l)
		}
		if got < last {
			t.Fatalf("percent went backwards at %q: %d < %d", l, got, last)
		}
		if got < 0 || got > 100 {
			t.Fatalf("percent out of range at %q: %d", l, got)
		}
		last = got
	}
	if last != 100 {
		t.Errorf("final percent = %d, want 100", last)
	}
}

func TestValidateStages(t *testing.T) {
	tests := []struct {
		name    string
		stages  []StageWeight
		wantErr error
		anyErr  bool
	}{
		{name: "git table", stages: GitStages},
		{name: "single stage", stages: []StageWeight{{Label: "Downloading: ", Weight: 100}}},
		{name: "empty", stages: nil, wantErr: ErrNoStages},
		{
			name:    "sums to 99",
			stages:  []StageWeight{{Label: "a: ", Weight: 90}, {Label: "b: ", Weight: 9}},
			wantErr: ErrStageWeight,
		},
		{
			name:    "sums to 101",
			stages:  []StageWeight{{Label: "a: ", Weight: 91}, {Label: "b: ", Weight: 10}},
			wantErr: ErrStageWeight,
		},
		{
			name:   "zero weight",
			stages: []StageWeight{{Label: "a: ", Weight: 100}, {Label: "b: ", Weight: 0}},
			anyErr: true,
		},
		{
			name:   "negative weight",
			stages: []StageWeight{{Label: "a: ", Weight: 110}, {Label: "b: ", Weight: -10}},
			anyErr: true,
		},
		{
			name:   "duplicate label",
			stages: []StageWeight{{Label: "a: ", Weight: 50}, {Label: "a: ", Weight: 50}},
			anyErr: true,
		},
		{
			name:   "empty label",
			stages: []StageWeight{{Label: "", Weight: 100}},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStages(tt.stages)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateStages() = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("ValidateStages() expected error, got nil")
				}
			default:
				if err != nil {
					t.Errorf("ValidateStages() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestNewStageTranslator_CustomTable(t *testing.T) {
	if _, err := NewStageTranslator([]StageWeight{{Label: "x: ", Weight: 50}}); err == nil {
		t.Fatal("expected error for table not summing to 100")
	}

	tr, err := NewStageTranslator([]StageWeight{
		{Label: "Fetching: ", Weight: 60},
		{Label: "Checkout: ", Weight: 40},
	})
	if err != nil {
		t.Fatalf("NewStageTranslator: %v", err)
	}
	if got, _ := tr.Translate("Checkout: 25%"); got != 70 {
		t.Errorf("Translate = %d, want 70", got)
	}
}

func TestMonotonic(t *testing.T) {
	m := NewMonotonic(NewGitTranslator())

	steps := []struct {
		line   string
		want   int
		wantOk bool
	}{
		{"Receiving objects: 80% (8/10)", 72, true},
		{"Receiving objects: 10% (1/10)", 72, true}, // regress clamped
		{"unrelated", 0, false},
		{"Resolving deltas: 50% (1/2)", 92, true},
	}
	for _, s := range steps {
		got, ok := m.Translate(s.line)
		if ok != s.wantOk || got != s.want {
			t.Errorf("Translate(%q) = (%d, %v), want (%d, %v)", s.line, got, ok, s.want, s.wantOk)
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [8]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}
