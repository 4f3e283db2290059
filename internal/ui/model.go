package ui

import (
	"context"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"firstboot/internal/model"
	"firstboot/internal/progress"
)

const (
	defaultBarWidth = 60
	maxBarWidth     = 100
)

// InstallFunc runs one install and sends its events to rep.
type InstallFunc func(ctx context.Context, rep progress.Reporter) error

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	install InstallFunc
	verbose bool

	state   model.InstallState
	percent int
	status  string
	lastLog string
	result  *progress.Result
	err     error
	done    bool

	spinner spinner.Model
	bar     bubblesprogress.Model

	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, install InstallFunc, verbose bool) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	sp := spinner.New()
	sp.Style = sty.Spinner

	return Model{
		ctx:     c,
		cancel:  cancel,
		install: install,
		verbose: verbose,
		state:   model.StateAwaitingClock,
		status:  "Waiting for valid time",
		spinner: sp,
		bar: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(defaultBarWidth),
			bubblesprogress.WithoutPercentage(),
		),
		styles:  sty,
		eventCh: make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listenEventsCmd(),
		m.runInstallCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = min(max(msg.Width-16, 10), maxBarWidth)
		return m, nil

	case installUpdateMsg:
		m.state = msg.U.State
		m.percent = msg.U.Percent
		if msg.U.Message != "" {
			m.status = msg.U.Message
		}
		return m, m.listenEventsCmd()

	case installLogMsg:
		m.lastLog = strings.TrimSpace(msg.L.Line)
		return m, m.listenEventsCmd()

	case installResultMsg:
		r := msg.R
		m.result = &r
		m.state = r.State
		m.err = r.Err
		if r.Err == nil {
			m.percent = 100
		}
		return m, m.listenEventsCmd()

	case installDoneMsg:
		m.done = true
		if m.err == nil {
			m.err = msg.Err
		}
		return m, tea.Quit

	case allDoneMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// Err returns the install error, if any.
func (m Model) Err() error { return m.err }

func (m Model) installed() bool {
	return m.err == nil && m.state == model.StateAwaitingHandoff
}

// Done reports whether the install function returned.
func (m Model) Done() bool { return m.done }

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) runInstallCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.install(m.ctx, teaReporter{ch: m.eventCh, done: m.ctx.Done()})
		return installDoneMsg{Err: err}
	}
}

type teaReporter struct {
	ch   chan tea.Msg
	done <-chan struct{}
}

func (r teaReporter) Update(u progress.Update) {
	// Terminal states must reach the screen.
	if u.State.Terminal() {
		r.send(installUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- installUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- installLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	r.send(installResultMsg{R: res})
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.done:
	}
}
