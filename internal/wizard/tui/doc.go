// Package tui implements the interactive setup wizard for ecofan.
//
// The wizard is a Bubble Tea program with three screens:
//
//  1. Form: host and name text inputs. Tab moves between fields; enter
//     submits.
//  2. Probing: a spinner while the setup flow probes <host>/api/state.
//  3. Success: the created entry. The user can add another fan or quit.
//
// A failed probe returns to the form with the flow's inline error
// ("Failed to connect" or "Unexpected error") and the typed values kept.
//
// The probe runs inside a tea.Cmd so the UI keeps animating while the
// request is in flight.
//
// # Usage Example
//
//	flow := setup.NewFlow(setup.NewProber(), exec, registry, nil)
//	app := tui.NewAppModel(flow, 15*time.Second)
//	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
//	    return err
//	}
package tui
