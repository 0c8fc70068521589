package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ecofan/internal/version"
)

// Application branding constants
const (
	AppName   = "ECOFAN SETUP"
	GitHubURL = "github.com/muurk/ecofan"
)

// MinTerminalWidth is the narrowest layout the wizard renders for.
const MinTerminalWidth = 72

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
	BorderColor = PrimaryColor
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	MenuItemStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(TextColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	SuccessBoxStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor).
			Padding(1, 2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	FocusedInputStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	BlurredInputStyle = lipgloss.NewStyle().
				Foreground(SubtleColor)
)

// RenderTitle renders a title with consistent styling
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderSubtitle renders a subtitle with consistent styling
func RenderSubtitle(text string) string {
	return SubtitleStyle.Render(text)
}

// RenderError renders an inline form error
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

func buildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// RenderApplicationContainer wraps a screen's content in the full-terminal
// frame: header with name and version, content, then footer help text.
// Every screen renders through it.
func RenderApplicationContainer(content string, footerText string, terminalWidth int, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}

	sectionWidth := terminalWidth - 4 // outer border

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(sectionWidth).
		Padding(0, 1).
		Render(buildHeaderContent())

	footer := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(sectionWidth).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText))

	body := lipgloss.NewStyle().Width(sectionWidth).Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}
