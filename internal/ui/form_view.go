package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/report"
)

// Styles for the form
var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("60"))

	modeActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9D4EDD")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

const labelWidth = 28

// FormModel renders the field list and tracks the cursor.
type FormModel struct {
	width    int
	height   int
	cursor   int
	snapshot form.Snapshot

	// editor is the rendered text input shown in place of the selected
	// field's value while editing.
	editor string
	// busy is the spinner frame shown while a request is in flight.
	busy string
}

// NewFormModel creates an empty form view.
func NewFormModel() FormModel {
	return FormModel{}
}

// SetSize updates the viewport size.
func (m FormModel) SetSize(width, height int) FormModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData replaces the rendered snapshot.
func (m FormModel) UpdateData(snap form.Snapshot) FormModel {
	m.snapshot = snap
	if m.cursor >= len(snap.Fields) {
		m.cursor = max(0, len(snap.Fields)-1)
	}
	return m
}

// SetEditor shows view in place of the selected value. An empty view ends
// editing.
func (m FormModel) SetEditor(view string) FormModel {
	m.editor = view
	return m
}

// SetBusy sets the in-flight spinner frame.
func (m FormModel) SetBusy(frame string) FormModel {
	m.busy = frame
	return m
}

// Selected returns the field under the cursor.
func (m FormModel) Selected() (form.FieldView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Fields) {
		return form.FieldView{}, false
	}
	return m.snapshot.Fields[m.cursor], true
}

// Update handles cursor movement.
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		n := len(m.snapshot.Fields)
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < n-1 {
				m.cursor++
			}
		case "home":
			m.cursor = 0
		case "end":
			if n > 0 {
				m.cursor = n - 1
			}
		}
	}
	return m, nil
}

// View renders the modes, the fields and the result area.
func (m FormModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderModes())
	b.WriteString("\n")

	section := ""
	for i, fv := range m.snapshot.Fields {
		if fv.Spec.Section != section {
			section = fv.Spec.Section
			b.WriteString("\n")
			b.WriteString(sectionStyle.Render("  " + section))
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(i, fv))
		b.WriteString("\n")
		if fv.Message != "" {
			b.WriteString(errorStyle.Render("      ↳ " + fv.Message))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderResult())
	return b.String()
}

func (m FormModel) renderModes() string {
	var lines []string
	for _, g := range form.Groups {
		if g == form.GroupObserving && !m.hasObservingFields() {
			continue
		}
		key := "m"
		if g == form.GroupObserving {
			key = "o"
		}
		var parts []string
		for _, mode := range g.Members() {
			if m.snapshot.Modes[g] == mode {
				parts = append(parts, modeActiveStyle.Render("(●) "+mode.Label()))
			} else {
				parts = append(parts, disabledStyle.Render("( ) "+mode.Label()))
			}
		}
		lines = append(lines, fmt.Sprintf("  %s  %s", strings.Join(parts, "  "), hintStyle.Render("["+key+"]")))
	}
	return strings.Join(lines, "\n")
}

func (m FormModel) hasObservingFields() bool {
	for _, fv := range m.snapshot.Fields {
		if len(fv.Spec.Modes) > 0 && fv.Spec.Modes[0].Group() == form.GroupObserving {
			return true
		}
	}
	return false
}

func (m FormModel) renderRow(i int, fv form.FieldView) string {
	st := fv.State

	marker := "  "
	if i == m.cursor {
		marker = "▶ "
	}

	value := st.Raw
	if fv.Spec.Kind == form.KindChoice && value == "" {
		value = "(none)"
	}
	if i == m.cursor && m.editor != "" {
		value = m.editor
	}
	unit := ""
	if st.Unit != "" {
		unit = "[" + st.Unit + "]"
	}

	line := fmt.Sprintf("%s%-*s %-18s %-7s", marker, labelWidth, truncate(fv.Spec.Label, labelWidth), value, unit)

	if fv.Spec.Manual {
		switch {
		case fv.Locked:
			line += " [-] manual"
		case st.Manual:
			line += " [x] manual"
		default:
			line += " [ ] manual"
		}
	}
	if fv.Hint != "" && !st.Disabled {
		line += " " + hintStyle.Render(fv.Hint)
	}

	switch {
	case i == m.cursor:
		return selectedRowStyle.Render(line)
	case st.Disabled:
		return disabledStyle.Render(line)
	default:
		return rowStyle.Render(line)
	}
}

func (m FormModel) renderResult() string {
	snap := m.snapshot
	op := snap.Modes[form.GroupCalculation].Operation()

	switch {
	case snap.InFlight:
		return "  " + m.busy + " Calculating " + strings.ToLower(op.Label()) + "..."
	case snap.Result != nil:
		q := snap.Result.Quantity
		if q == "" {
			q = op
		}
		return resultStyle.Render(fmt.Sprintf("  %s: %s", q.Label(), calc.FormatResult(*snap.Result)))
	case snap.Err != nil:
		return errorStyle.Render("  " + report.ErrorText(snap.Err))
	case !snap.Valid:
		return hintStyle.Render("  Fix the highlighted fields to calculate")
	default:
		return hintStyle.Render("  Press c to calculate " + strings.ToLower(op.Label()))
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-2]) + ".."
}
