// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/validate"
	"github.com/litescript/ls-sensitivity/internal/version"
)

// Backend serves descriptors and calculations.
type Backend interface {
	Descriptors(ctx context.Context) (param.Set, error)
	form.Calculator
}

// Msg types for Bubble Tea
type (
	// descriptorsMsg carries the backend's parameter descriptors.
	descriptorsMsg struct {
		set param.Set
		err error
	}

	// calcDoneMsg carries the response to a submitted ticket.
	calcDoneMsg struct {
		ticket form.Ticket
		result calc.Result
		err    error
	}

	// resetMsg asks for a reset followed by a fresh calculation.
	resetMsg struct{}

	// PresetMsg applies a preset to the form, typically after the preset
	// file changed on disk.
	PresetMsg struct {
		Preset form.Preset
		Err    error
	}
)

// Options configures the root model.
type Options struct {
	Layout    form.Layout
	Validator *validate.Validator
	Logger    *logging.Logger
	// Preset is applied once descriptors arrive.
	Preset *form.Preset
	// BaseURL is shown while loading.
	BaseURL string
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	ctx       context.Context
	backend   Backend
	layout    form.Layout
	validator *validate.Validator
	logger    *logging.Logger
	preset    *form.Preset
	baseURL   string

	// UI state
	width     int
	height    int
	ready     bool
	statusMsg string
	loadErr   error
	editing   bool

	// Sub-models
	form    FormModel
	spinner spinner.Model
	input   textinput.Model

	controller *form.Controller
}

// New creates a new root UI model.
func New(ctx context.Context, backend Backend, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Validator == nil {
		opts.Validator = validate.New(validate.WithLogger(opts.Logger.Named("validate")))
	}
	if opts.Layout.Name == "" {
		opts.Layout = form.PublicLayout()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 16

	return Model{
		ctx:       ctx,
		backend:   backend,
		layout:    opts.Layout,
		validator: opts.Validator,
		logger:    opts.Logger,
		preset:    opts.Preset,
		baseURL:   opts.BaseURL,
		form:      NewFormModel(),
		spinner:   sp,
		input:     ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchDescriptors(), m.spinner.Tick)
}

// Controller returns the form controller, or nil before descriptors load.
func (m Model) Controller() *form.Controller {
	return m.controller
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			cmds = append(cmds, m.updateEditing(msg))
			break
		}
		cmds = append(cmds, m.handleKey(msg))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.form = m.form.SetSize(msg.Width, msg.Height-6)

	case descriptorsMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			m.logger.Error("loading descriptors: %v", msg.err)
			break
		}
		c, err := form.NewController(m.layout, msg.set, m.validator, form.WithLogger(m.logger.Named("form")))
		if err != nil {
			m.loadErr = err
			break
		}
		m.loadErr = nil
		m.controller = c
		if m.preset != nil {
			if err := c.Restore(*m.preset); err != nil {
				m.statusMsg = "Preset not applied: " + err.Error()
			}
		}
		// Calculate straight away with the defaults.
		cmds = append(cmds, m.submit())

	case calcDoneMsg:
		if m.controller == nil {
			break
		}
		if !m.controller.CompleteSubmit(msg.ticket, msg.result, msg.err) {
			m.statusMsg = "Form changed; discarded stale result"
		} else if msg.err != nil {
			m.logger.Warn("calculation failed: %v", msg.err)
		}

	case resetMsg:
		if m.controller != nil {
			m.controller.Reset()
			m.statusMsg = "Form reset"
			cmds = append(cmds, m.submit())
		}

	case PresetMsg:
		switch {
		case msg.Err != nil:
			m.statusMsg = "Preset reload failed: " + msg.Err.Error()
		case m.controller == nil:
			p := msg.Preset
			m.preset = &p
		default:
			if err := m.controller.Restore(msg.Preset); err != nil {
				m.statusMsg = "Preset not applied: " + err.Error()
				break
			}
			m.statusMsg = "Preset reloaded"
			cmds = append(cmds, m.submit())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

// sync pushes the controller's state into the form view.
func (m *Model) sync() {
	if m.controller == nil {
		return
	}
	m.form = m.form.UpdateData(m.controller.Snapshot())
	m.form = m.form.SetBusy(m.spinner.View())
	if m.editing {
		m.form = m.form.SetEditor(m.input.View())
	} else {
		m.form = m.form.SetEditor("")
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	}

	if m.controller == nil {
		if msg.String() == "r" {
			m.loadErr = nil
			return m.fetchDescriptors()
		}
		return nil
	}

	m.statusMsg = ""
	fv, ok := m.form.Selected()

	switch msg.String() {
	case "enter", "e":
		if !ok {
			return nil
		}
		if fv.Spec.Kind == form.KindChoice {
			m.report(m.controller.CycleChoice(fv.Spec.Name))
			return nil
		}
		if fv.State.Disabled {
			m.statusMsg = fv.Spec.Label + " is disabled"
			return nil
		}
		m.editing = true
		m.input.SetValue(fv.State.Raw)
		m.input.CursorEnd()
		return m.input.Focus()

	case "u":
		if ok {
			if changed, err := m.controller.CycleUnit(fv.Spec.Name); err != nil {
				m.report(err)
			} else if !changed {
				m.statusMsg = fv.Spec.Label + " has a single unit"
			}
		}

	case "m":
		m.controller.CycleMode(form.GroupCalculation)

	case "o":
		m.controller.CycleMode(form.GroupObserving)

	case "b":
		if _, has := m.layout.Field("band"); has {
			m.report(m.controller.CycleChoice("band"))
		}

	case " ":
		if ok {
			m.report(m.controller.ToggleManual(fv.Spec.Name))
		}

	case "c":
		return m.submit()

	case "r":
		return func() tea.Msg { return resetMsg{} }

	default:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if fv, ok := m.form.Selected(); ok {
			m.report(m.controller.SetValue(fv.Spec.Name, m.input.Value()))
		}
		m.stopEditing()
		return nil
	case "esc":
		m.stopEditing()
		return nil
	case "ctrl+c":
		return tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
}

func (m *Model) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, form.ErrManualLocked):
		m.statusMsg = "Manual entry unavailable: " + err.Error()
	case errors.Is(err, form.ErrNotManual), errors.Is(err, form.ErrNotChoice):
		m.statusMsg = "Not available for this field"
	default:
		m.statusMsg = err.Error()
	}
}

// submit starts a calculation if the form allows it.
func (m *Model) submit() tea.Cmd {
	ticket, err := m.controller.BeginSubmit()
	switch {
	case errors.Is(err, form.ErrInvalidForm):
		m.statusMsg = "Form has invalid fields"
		return nil
	case errors.Is(err, form.ErrInFlight):
		m.statusMsg = "Calculation already running"
		return nil
	case err != nil:
		m.statusMsg = err.Error()
		return nil
	}

	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		res, err := backend.Calculate(ctx, ticket.Operation, ticket.Request)
		return calcDoneMsg{ticket: ticket, result: res, err: err}
	}
}

func (m Model) fetchDescriptors() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		set, err := backend.Descriptors(ctx)
		return descriptorsMsg{set: set, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch {
	case m.controller != nil:
		content = m.form.View()
	case m.loadErr != nil:
		content = errorStyle.Render("  Could not load parameters: "+m.loadErr.Error()) +
			"\n" + hintStyle.Render("  [r] retry  [q] quit")
	default:
		where := ""
		if m.baseURL != "" {
			where = " from " + m.baseURL
		}
		content = "  " + m.spinner.View() + " Loading parameters" + where + "..."
	}

	return m.renderHeader() + "\n" + content + "\n\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	title := "  LS-SENSITIVITY"
	runes := []rune(title)

	var b strings.Builder
	b.WriteString("\n")
	for col, r := range runes {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(gradientColor(col, 0, len(runes), 1)))
		b.WriteString(style.Render(string(r)))
	}
	b.WriteString("\n")

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	sub := fmt.Sprintf("  Radio telescope sensitivity calculator · v%s", version.Version)
	if m.layout.Name != "" {
		sub += " · " + m.layout.Name
	}
	b.WriteString(muted.Render(sub))
	b.WriteString("\n")
	return b.String()
}

// gradientColor returns a hex color for a position in the title gradient:
// blue -> purple -> magenta -> pink.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64
	if xRatio < 0.33 {
		t := xRatio / 0.33
		r = 59 + t*(139-59)
		g = 130 + t*(92-130)
		b = 246
	} else if xRatio < 0.66 {
		t := (xRatio - 0.33) / 0.33
		r = 139 + t*(217-139)
		g = 92 + t*(70-92)
		b = 246 + t*(239-246)
	} else {
		t := (xRatio - 0.66) / 0.34
		r = 217 + t*(236-217)
		g = 70 + t*(72-70)
		b = 239 + t*(153-239)
	}

	// Vertical fade
	brightness := 1.0 - (yRatio * 0.5)
	return fmt.Sprintf("#%02X%02X%02X", clamp8(r*brightness), clamp8(g*brightness), clamp8(b*brightness))
}

func clamp8(v float64) int {
	i := int(v)
	if i > 255 {
		return 255
	}
	if i < 0 {
		return 0
	}
	return i
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var help string
	switch {
	case m.editing:
		help = "enter: apply | esc: cancel"
	case m.controller == nil:
		help = "q: quit"
	default:
		help = "↑↓: move | enter: edit | u: unit | m: calculation mode"
		if m.form.hasObservingFields() {
			help += " | o: observing mode"
		}
		if _, has := m.layout.Field("band"); has {
			help += " | b: band | space: manual"
		}
		help += " | c: calculate | r: reset | q: quit"
	}

	footer := "  " + dimStyle.Render(help)
	if m.statusMsg != "" {
		footer += "\n  " + dimStyle.Render(m.statusMsg)
	}
	return footer
}
