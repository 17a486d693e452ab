// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package tui is the terminal chart viewer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.design/x/clipboard"

	"github.com/Voxer/zag-sub000/internal/axis"
	"github.com/Voxer/zag-sub000/internal/chart"
	"github.com/Voxer/zag-sub000/internal/chartset"
	"github.com/Voxer/zag-sub000/internal/session"
)

// promptKind is what the key prompt is asking for.
type promptKind int

const (
	promptNone promptKind = iota
	promptGraph
	promptAdd
	promptRemove
	promptDashboard
)

func (p promptKind) label() string {
	switch p {
	case promptGraph:
		return "Graph: "
	case promptAdd:
		return "Add: "
	case promptRemove:
		return "Remove: "
	case promptDashboard:
		return "Dashboard: "
	}
	return ""
}

// Options configures the viewer.
type Options struct {
	// Refresh is how often the time axis is advanced and stale charts reloaded.
	Refresh time.Duration
	// LoadTimeout bounds one round of chart loads.
	LoadTimeout time.Duration
	// PanAmplification scales how far one pan key press moves the window.
	PanAmplification float64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Refresh <= 0 {
		o.Refresh = 2 * time.Second
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 30 * time.Second
	}
	if o.PanAmplification <= 0 {
		o.PanAmplification = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Model is the bubbletea model of the chart viewer.
type Model struct {
	ctx  context.Context
	sess *session.Session
	opts Options

	width, height int
	selected      int

	prompt promptKind
	input  textinput.Model

	loading    bool
	lastLoaded time.Time
	err        error
	status     string
}

type tickMsg time.Time

type loadedMsg struct {
	err error
	at  time.Time
}

type switchedMsg struct {
	what string
	err  error
}

// New creates a viewer over sess. The session's chart set should already
// show something, or the user picks keys with the prompt.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	opts.setDefaults()
	ti := textinput.New()
	ti.Placeholder = "metric key, comma separated for several"
	ti.CharLimit = 512
	ti.Width = 60
	return Model{
		ctx:    ctx,
		sess:   sess,
		opts:   opts,
		width:  80,
		height: 24,
		input:  ti,
	}
}

// Run shows the viewer until the user quits or ctx is done.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	p := tea.NewProgram(New(ctx, sess, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.loadCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadCmd loads every chart's visible window.
func (m Model) loadCmd() tea.Cmd {
	ctx, sess, timeout, now := m.ctx, m.sess, m.opts.LoadTimeout, m.opts.Now
	return func() tea.Msg {
		lctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := sess.Load(lctx)
		return loadedMsg{err: err, at: now()}
	}
}

// switchCmd runs a chart set switch off the UI loop since it may look up
// key types or dashboards.
func (m Model) switchCmd(what string, fn func(ctx context.Context, set *chartset.ChartSet) error) tea.Cmd {
	ctx, set, timeout := m.ctx, m.sess.ChartSet(), m.opts.LoadTimeout
	return func() tea.Msg {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return switchedMsg{what: what, err: fn(sctx, set)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = clampInt(msg.Width-20, 10, 200)
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)

	case tickMsg:
		m.sess.Tick()
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.loading && m.anyStale() {
			m.loading = true
			cmds = append(cmds, m.loadCmd())
		}
		return m, tea.Batch(cmds...)

	case loadedMsg:
		m.loading = false
		m.lastLoaded = msg.at
		// Charts keep their last good data, so only the status line changes.
		m.err = msg.err
		return m, nil

	case switchedMsg:
		if errors.Is(msg.err, chartset.ErrSuperseded) {
			// A newer switch owns the status line.
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.what
		m.selected = 0
		m.loading = true
		return m, m.loadCmd()
	}
	return m, nil
}

func (m Model) anyStale() bool {
	for _, c := range m.sess.Charts() {
		if c.Stale() {
			return true
		}
	}
	return false
}

// current returns the selected chart, or nil when there are none.
func (m Model) current() *chart.PointChart {
	charts := m.sess.Charts()
	if len(charts) == 0 {
		return nil
	}
	return charts[clampInt(m.selected, 0, len(charts)-1)]
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "j", "down":
		if n := len(m.sess.Charts()); n > 0 {
			m.selected = (m.selected + 1) % n
		}
		return m, nil

	case "shift+tab", "k", "up":
		if n := len(m.sess.Charts()); n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
		return m, nil

	case "+", "=":
		return m.zoom(0.5)

	case "-":
		return m.zoom(2)

	case "h", "left":
		return m.pan(-0.25)

	case "l", "right":
		return m.pan(0.25)

	case "u":
		c := m.current()
		if c == nil {
			return m, nil
		}
		if !c.XAxis().PopZoom() {
			m.status = "nothing to undo"
			return m, nil
		}
		return m.reload()

	case "r":
		return m.reload()

	case "y":
		if c := m.current(); c != nil {
			m.copyToClipboard(chartKeys(c), "copied keys of "+c.Title())
		}
		return m, nil

	case "/", "g":
		return m.openPrompt(promptGraph)

	case "a":
		return m.openPrompt(promptAdd)

	case "x":
		return m.openPrompt(promptRemove)

	case "d":
		return m.openPrompt(promptDashboard)
	}
	return m, nil
}

// copyToClipboard copies text and sets the status message
func (m *Model) copyToClipboard(text, successMsg string) {
	if err := clipboard.Init(); err != nil {
		m.status = "clipboard error: " + err.Error()
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	m.status = successMsg
}

// chartKeys returns a chart's keys the way the graph prompt accepts them.
func chartKeys(c *chart.PointChart) string {
	keys := c.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.MKey()
	}
	return strings.Join(out, ",")
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.loading = true
	return m, m.loadCmd()
}

// zoom scales the selected chart's time window around its center.
// factor < 1 zooms in.
func (m Model) zoom(factor float64) (tea.Model, tea.Cmd) {
	c := m.current()
	if c == nil {
		return m, nil
	}
	x := c.XAxis()
	r := x.Current()
	next := axis.ZoomAround(r, (r.Low+r.High)/2, factor)
	if ceiling, ok := x.Ceiling(); ok && next.High > ceiling {
		next = next.Shift(ceiling - next.High)
	}
	if err := x.Zoom(next.Low, next.High); err != nil {
		m.err = err
		return m, nil
	}
	return m.reload()
}

// pan moves the selected chart's time window by frac of its width, scaled
// by the pan amplification. A key press pans like dragging the plot by
// frac of its columns towards the past.
func (m Model) pan(frac float64) (tea.Model, tea.Cmd) {
	c := m.current()
	if c == nil {
		return m, nil
	}
	x := c.XAxis()
	plot := axis.Scale{Domain: x.Current(), Pixels: float64(m.plotCols())}
	x.PanBy(plot.PanDelta(-frac*plot.Pixels, m.opts.PanAmplification))
	x.PanDone()
	return m.reload()
}

func (m Model) openPrompt(kind promptKind) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.input.Reset()
	m.input.Prompt = ""
	return m, m.input.Focus()
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		kind, value := m.prompt, strings.TrimSpace(m.input.Value())
		m.prompt = promptNone
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		return m, m.submit(kind, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns a prompt answer into a chart set switch.
func (m Model) submit(kind promptKind, value string) tea.Cmd {
	switch kind {
	case promptGraph:
		keys := splitKeys(value)
		if len(keys) == 1 {
			return m.switchCmd("graphing "+keys[0], func(ctx context.Context, set *chartset.ChartSet) error {
				return set.GraphOne(ctx, keys[0])
			})
		}
		return m.switchCmd("graphing "+strings.Join(keys, ", "), func(ctx context.Context, set *chartset.ChartSet) error {
			return set.GraphMany(ctx, keys)
		})
	case promptAdd:
		return m.switchCmd("added "+value, func(ctx context.Context, set *chartset.ChartSet) error {
			return set.GraphAdd(ctx, value)
		})
	case promptRemove:
		return m.switchCmd("removed "+value, func(ctx context.Context, set *chartset.ChartSet) error {
			return set.GraphRemove(ctx, value)
		})
	case promptDashboard:
		return m.switchCmd(fmt.Sprintf("dashboard %s", value), func(ctx context.Context, set *chartset.ChartSet) error {
			return set.GraphDashboardID(ctx, value)
		})
	}
	return nil
}

func splitKeys(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
