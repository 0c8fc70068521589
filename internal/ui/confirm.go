package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm prints question with a [y/N] suffix and reads one line from in.
// Only "y" or "yes" (any case) confirm.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	prompt := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(fmt.Sprintf("%s  %s [y/N]: ", WarningMarker, question))
	_, _ = fmt.Fprint(out, prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Cancelled."))
		return false
	}
}
