package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result is the box printed when a command finishes.
type Result struct {
	Type    ResultType
	Title   string
	Details []Param
	Error   error
	Hint    string // shown under the error for failures
	Width   int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, hint string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Hint: hint, Width: GetTerminalWidth()}
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	lines := []string{""}
	color := SuccessColor
	if r.Type == ResultFailure {
		color = ErrorColor
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title)), "")
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
		}
		if r.Hint != "" {
			lines = append(lines, HintStyle.Width(width-10).PaddingLeft(3).Render(r.Hint), "")
		}
	} else {
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title)), "")
	}

	if len(r.Details) > 0 {
		lines = append(lines, renderParams(r.Details, "   "), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
