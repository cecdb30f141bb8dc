package components

import (
	"strconv"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grit/internal/ui/theme"
)

// Field is a labelled bubbles/textinput used by forms.
type Field struct {
	Label       string
	Model       textinput.Model
	NumericOnly bool
	err         string
}

// NewField creates an unfocused field.
func NewField(label, placeholder string, numericOnly bool, charLimit int) Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return Field{Label: label, Model: ti, NumericOnly: numericOnly}
}

// Focus focuses the field.
func (f *Field) Focus() tea.Cmd {
	return f.Model.Focus()
}

// Blur removes focus.
func (f *Field) Blur() {
	f.Model.Blur()
}

// Update handles messages. Numeric fields drop non-digit keys.
func (f Field) Update(msg tea.Msg) (Field, tea.Cmd) {
	if f.NumericOnly {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			key := kmsg.String()
			if len(key) == 1 && (key[0] < '0' || key[0] > '9') {
				return f, nil
			}
		}
	}
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd
}

// View renders the label, input and any error.
func (f Field) View(labelWidth int) string {
	label := lipgloss.NewStyle().Width(labelWidth).Foreground(theme.TextDim)
	if f.Model.Focused() {
		label = label.Foreground(theme.Primary).Bold(true)
	}
	view := label.Render(f.Label) + f.Model.View()
	if f.err != "" {
		view += "  " + theme.StatusErr.Render(f.err)
	}
	return view
}

// Value returns the current input value.
func (f Field) Value() string {
	return f.Model.Value()
}

// SetValue replaces the input value.
func (f *Field) SetValue(s string) {
	f.Model.SetValue(s)
}

// NumericValue returns the input value as an integer. Empty is 0.
func (f Field) NumericValue() (int, error) {
	if f.Model.Value() == "" {
		return 0, nil
	}
	return strconv.Atoi(f.Model.Value())
}

// SetError attaches a message shown next to the field; "" clears it.
func (f *Field) SetError(msg string) {
	f.err = msg
}
