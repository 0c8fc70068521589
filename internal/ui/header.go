package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one labelled value. Slices of Params keep their order when
// rendered.
type Param struct {
	Key   string
	Value string
}

// Header is the banner printed at the start of a command.
type Header struct {
	Title   string // e.g. "PROBE"
	Command string // e.g. "ecofan probe http://10.0.0.9"
	Params  []Param
	Width   int
}

// NewHeader creates a header sized to the terminal.
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", width-6))
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, renderParams(h.Params, "  "))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

func renderParams(params []Param, indent string) string {
	lines := make([]string, 0, len(params))
	for _, p := range params {
		lines = append(lines, KeyStyle.Render(indent+p.Key+":")+" "+ValueStyle.Render(p.Value))
	}
	return strings.Join(lines, "\n")
}
