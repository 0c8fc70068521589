package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/setup"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenForm    Screen = "form"
	ScreenProbing Screen = "probing"
	ScreenSuccess Screen = "success"
)

const (
	fieldHost = iota
	fieldName
	fieldCount
)

// Submitter runs one step of the setup flow.
type Submitter interface {
	Submit(ctx context.Context, input *setup.UserInput) setup.FlowResult
}

// flowResultMsg carries the outcome of a submit back into Update.
type flowResultMsg struct {
	result setup.FlowResult
}

// formKeyMap defines key bindings for the form screen
type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Submit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Submit, k.Quit},
	}
}

// successKeyMap defines key bindings for the success screen
type successKeyMap struct {
	Another key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k successKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Another, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k successKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Another, k.Quit}}
}

// AppModel is the setup wizard: a two-field form, a probing spinner and a
// result screen.
type AppModel struct {
	CurrentScreen Screen

	Inputs  []textinput.Model
	Focused int
	Spinner spinner.Model

	// Inline error from the last submit, if any.
	FormError setup.ErrorCode
	// Short description of the probe failure behind FormError.
	FormDetail string
	// Entries created during this session.
	Created []setup.FlowResult

	Width  int
	Height int

	Help        help.Model
	FormKeys    formKeyMap
	SuccessKeys successKeyMap

	flow    Submitter
	timeout time.Duration
}

// NewAppModel creates the wizard. timeout bounds each probe.
func NewAppModel(flow Submitter, timeout time.Duration) AppModel {
	host := textinput.New()
	host.Placeholder = "http://192.168.1.50"
	host.Prompt = "Host: "
	host.CharLimit = 253
	host.Focus()

	name := textinput.New()
	name.Placeholder = "Living Room Fan"
	name.Prompt = "Name: "
	name.CharLimit = 64

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return AppModel{
		CurrentScreen: ScreenForm,
		Inputs:        []textinput.Model{host, name},
		Spinner:       s,
		Width:         MinTerminalWidth,
		Height:        24,
		Help:          help.New(),
		FormKeys: formKeyMap{
			Next: key.NewBinding(
				key.WithKeys("tab", "down"),
				key.WithHelp("tab", "next field"),
			),
			Prev: key.NewBinding(
				key.WithKeys("shift+tab", "up"),
				key.WithHelp("shift+tab", "previous"),
			),
			Submit: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "add fan"),
			),
			Quit: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "quit"),
			),
		},
		SuccessKeys: successKeyMap{
			Another: key.NewBinding(
				key.WithKeys("a", "enter"),
				key.WithHelp("a", "add another"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
		flow:    flow,
		timeout: timeout,
	}
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case flowResultMsg:
		return m.handleResult(msg.result)

	case spinner.TickMsg:
		if m.CurrentScreen != ScreenProbing {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	switch m.CurrentScreen {
	case ScreenForm:
		return m.updateForm(msg)
	case ScreenSuccess:
		return m.updateSuccess(msg)
	}
	return m, nil
}

func (m AppModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.FormKeys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.FormKeys.Next):
			return m.focus((m.Focused + 1) % fieldCount), nil
		case key.Matches(keyMsg, m.FormKeys.Prev):
			return m.focus((m.Focused + fieldCount - 1) % fieldCount), nil
		case key.Matches(keyMsg, m.FormKeys.Submit):
			if m.Focused == fieldHost && strings.TrimSpace(m.Inputs[fieldName].Value()) == "" {
				return m.focus(fieldName), nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
	return m, cmd
}

func (m AppModel) focus(i int) AppModel {
	inputs := make([]textinput.Model, len(m.Inputs))
	copy(inputs, m.Inputs)
	for j := range inputs {
		if j == i {
			inputs[j].Focus()
		} else {
			inputs[j].Blur()
		}
	}
	m.Inputs = inputs
	m.Focused = i
	return m
}

// submit validates the form locally and starts the probe.
func (m AppModel) submit() (tea.Model, tea.Cmd) {
	input := setup.UserInput{
		Host: strings.TrimSpace(m.Inputs[fieldHost].Value()),
		Name: strings.TrimSpace(m.Inputs[fieldName].Value()),
	}
	if input.Host == "" {
		m.FormError = setup.CodeCannotConnect
		m.FormDetail = "No host entered"
		return m.focus(fieldHost), nil
	}
	if input.Name == "" {
		input.Name = input.Host
	}

	m.FormError = ""
	m.FormDetail = ""
	m.CurrentScreen = ScreenProbing
	return m, tea.Batch(m.Spinner.Tick, m.probe(input))
}

func (m AppModel) probe(input setup.UserInput) tea.Cmd {
	flow := m.flow
	timeout := m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return flowResultMsg{result: flow.Submit(ctx, &input)}
	}
}

func (m AppModel) handleResult(result setup.FlowResult) (tea.Model, tea.Cmd) {
	if result.Type == setup.ResultCreateEntry {
		m.Created = append(m.Created, result)
		m.CurrentScreen = ScreenSuccess
		return m, nil
	}

	m.FormError = result.Errors["base"]
	m.FormDetail = ""
	if result.Cause != nil {
		m.FormDetail = deviceapi.GetShortErrorMessage(result.Cause)
	}
	m.CurrentScreen = ScreenForm
	return m.focus(fieldHost), textinput.Blink
}

func (m AppModel) updateSuccess(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.SuccessKeys.Another):
		for i := range m.Inputs {
			m.Inputs[i].Reset()
		}
		m.CurrentScreen = ScreenForm
		return m.focus(fieldHost), textinput.Blink
	case key.Matches(keyMsg, m.SuccessKeys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	var content, helpText string
	switch m.CurrentScreen {
	case ScreenForm:
		content = m.buildFormContent()
		helpText = m.Help.View(m.FormKeys)
	case ScreenProbing:
		content = m.buildProbingContent()
		helpText = "ctrl+c: quit"
	case ScreenSuccess:
		content = m.buildSuccessContent()
		helpText = m.Help.View(m.SuccessKeys)
	default:
		return "Unknown screen"
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m AppModel) buildFormContent() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Add a ceiling fan"))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Enter the address of an eCO controller on your network."))
	b.WriteString("\n\n")

	for i, in := range m.Inputs {
		style := BlurredInputStyle
		if i == m.Focused {
			style = FocusedInputStyle
		}
		b.WriteString("  ")
		b.WriteString(style.Render(in.View()))
		b.WriteString("\n\n")
	}

	if m.FormError != "" {
		b.WriteString(RenderError(m.FormError.Message()))
		b.WriteString("\n")
		if m.FormDetail != "" {
			b.WriteString("  ")
			b.WriteString(SubtitleStyle.Render(m.FormDetail))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m AppModel) buildProbingContent() string {
	host := strings.TrimSpace(m.Inputs[fieldHost].Value())
	return fmt.Sprintf("\n  %s Connecting to %s ...\n", m.Spinner.View(), host)
}

func (m AppModel) buildSuccessContent() string {
	var b strings.Builder

	b.WriteString(RenderTitle("✓ Fan added"))
	b.WriteString("\n\n")

	last := m.Created[len(m.Created)-1]
	details := fmt.Sprintf("  Name: %s\n  Host: %s", last.Title, last.Data.Host)
	if last.Entry != nil {
		details += fmt.Sprintf("\n  ID:   %s", last.Entry.ID)
	}
	b.WriteString(SuccessBoxStyle.Render(details))
	b.WriteString("\n\n")

	if len(m.Created) > 1 {
		b.WriteString(fmt.Sprintf("  %d fans added this session.\n\n", len(m.Created)))
	}

	b.WriteString(MenuItemStyle.Render("  a - Add another fan"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("  q - Exit"))
	b.WriteString("\n")

	return b.String()
}
