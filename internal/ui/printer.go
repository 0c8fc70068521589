package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ecofan/internal/fan"
)

// Printer writes UI components to a writer. Commands print through it
// rather than to os.Stdout directly so output can be captured in tests.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	h := NewHeader(title, command, params...)
	h.Width = p.width
	p.Println(h.Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	r := NewSuccessResult(title, details...)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintError prints a failure result box with an optional hint
func (p *Printer) PrintError(title string, err error, hint string) {
	r := NewFailureResult(title, err, hint)
	r.Width = p.width
	p.Println(r.Render())
}

// PrintFans prints one row per fan: name, power, speed, availability and
// the time of the last update.
func (p *Printer) PrintFans(snaps []fan.Snapshot) {
	if len(snaps) == 0 {
		p.Println(HintStyle.Render("  No fans configured. Run `ecofan setup` to add one."))
		return
	}
	p.Println(RenderFanTable(snaps))
}

// RenderFanTable renders snapshots as an aligned table.
func RenderFanTable(snaps []fan.Snapshot) string {
	nameWidth := len("NAME")
	for _, s := range snaps {
		if n := lipgloss.Width(s.Name); n > nameWidth {
			nameWidth = n
		}
	}

	cell := func(text string, width int) string {
		return lipgloss.NewStyle().Width(width).Render(text)
	}

	var b strings.Builder
	b.WriteString(HeaderCommandStyle.Render(
		cell("NAME", nameWidth+2) + cell("POWER", 7) + cell("SPEED", 8) + cell("STATUS", 13) + "UPDATED",
	))
	b.WriteString("\n")

	for _, s := range snaps {
		power := OffStyle.Render("off")
		if s.On {
			power = OnStyle.Render("on")
		}
		status := OnStyle.Render("available")
		if !s.Available {
			status = UnavailableStyle.Render("unavailable")
		}
		updated := "never"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Format(time.TimeOnly)
		}

		b.WriteString("  ")
		b.WriteString(cell(s.Name, nameWidth+2))
		b.WriteString(cell(power, 7))
		b.WriteString(cell(s.PresetMode.String(), 8))
		b.WriteString(cell(status, 13))
		b.WriteString(updated)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
