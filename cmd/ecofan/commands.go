package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/discovery"
	"github.com/muurk/ecofan/internal/fan"
	"github.com/muurk/ecofan/internal/logging"
	"github.com/muurk/ecofan/internal/platform"
	"github.com/muurk/ecofan/internal/setup"
	"github.com/muurk/ecofan/internal/ui"
	"github.com/muurk/ecofan/internal/wizard/tui"
)

// Command flags
var (
	setupHost    string
	setupName    string
	outputFormat string
	assumeYes    bool
	onPreset     string
	scanTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(bridgesCmd)

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesRemoveCmd)

	setupCmd.Flags().StringVar(&setupHost, "host", "", "Fan address, e.g. http://192.168.1.50 (skips the wizard)")
	setupCmd.Flags().StringVar(&setupName, "name", "", "Display name for the fan (default: the host)")

	statusCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	entriesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	entriesRemoveCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	bridgesCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to browse")
	bridgesCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	onCmd.Flags().StringVar(&onPreset, "preset", "", "Preset to switch to (low, medium, high); default keeps the current speed")
}

// setupCmd adds a fan, interactively or from flags
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Add a fan",
	Long: `Add a fan to the registry.

Without --host this launches the interactive wizard. With --host the
address is probed once; if it answers with JSON at /api/state the fan is
saved, otherwise the error is printed and nothing is stored.`,
	Example: `  # Interactive
  ecofan setup

  # Non-interactive
  ecofan setup --host http://192.168.1.50 --name "Living Room"`,
	RunE: runSetup,
}

func newFlow(reg *config.Registry) (*setup.Flow, *platform.Executor) {
	exec := platform.NewExecutor(1, logging.Named("executor"))
	prober := setup.NewProber(setup.WithTimeout(requestTimeout(reg)))
	return setup.NewFlow(prober, exec, reg, nil), exec
}

func runWizard(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	flow, exec := newFlow(reg)
	defer exec.Close()

	app := tui.NewAppModel(flow, requestTimeout(reg)+5*time.Second)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupHost == "" {
		return runWizard(cmd, args)
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	flow, exec := newFlow(reg)
	defer exec.Close()

	name := setupName
	if name == "" {
		name = setupHost
	}

	p := ui.NewPrinter(nil)
	p.PrintHeader("Add fan", "ecofan setup", ui.Param{Key: "Host", Value: setupHost}, ui.Param{Key: "Name", Value: name})

	result := flow.Submit(cmd.Context(), &setup.UserInput{Name: name, Host: setupHost})
	if result.Type != setup.ResultCreateEntry {
		code := result.Errors["base"]
		reason := errors.New(code.Message())
		if result.Cause != nil {
			reason = fmt.Errorf("%s: %s", code.Message(), deviceapi.GetShortErrorMessage(result.Cause))
		}
		hint := "Check the address and that the fan is on the same network."
		if result.Cause != nil {
			hint = hintFor(result.Cause)
		}
		p.PrintError("Fan not added", reason, hint)
		return fmt.Errorf("setup failed: %s", code)
	}

	p.PrintSuccess("Fan added",
		ui.Param{Key: "ID", Value: result.Entry.ID},
		ui.Param{Key: "Name", Value: result.Title},
		ui.Param{Key: "Host", Value: result.Data.Host},
		ui.Param{Key: "Config", Value: reg.Path()},
	)
	return nil
}

// probeCmd checks an address without saving anything
var probeCmd = &cobra.Command{
	Use:   "probe <host>",
	Short: "Check that an address answers like a fan",
	Args:  cobra.ExactArgs(1),
	Example: `  ecofan probe http://192.168.1.50
  ecofan probe http://fan.local:8080 --timeout 3s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := args[0]
		prober := setup.NewProber(setup.WithTimeout(requestTimeout(nil)))
		res := prober.Probe(cmd.Context(), host)

		p := ui.NewPrinter(nil)
		if !res.Connected {
			p.PrintError("Probe failed", errors.New(deviceapi.GetShortErrorMessage(res.Err)), hintFor(res.Err))
			return fmt.Errorf("%s did not answer like a fan", host)
		}

		p.PrintSuccess("Fan reachable",
			ui.Param{Key: "Host", Value: host},
			ui.Param{Key: "HTTP status", Value: fmt.Sprint(res.StatusCode)},
			ui.Param{Key: "Payload", Value: res.Payload.String()},
			ui.Param{Key: "State keys", Value: fmt.Sprint(res.HasStateKeys)},
		)
		return nil
	},
}

func hintFor(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, setup.ErrUnexpectedPayload) {
		return "The address answered, but not with a JSON object. Is this an eCO controller?"
	}
	return deviceapi.GetTroubleshootingHint(err)
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage configured fans",
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured fans",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		entries := reg.ListEntries()

		if outputFormat == "json" {
			return writeJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No fans configured. Run 'ecofan setup' to add one.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-20s %s\n", e.ID, e.Name, e.Host)
		}
		return nil
	},
}

var entriesRemoveCmd = &cobra.Command{
	Use:   "remove <id|name>",
	Short: "Remove a configured fan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		entry, err := reg.GetEntry(args[0])
		if err != nil {
			return err
		}

		if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, fmt.Sprintf("Remove %q (%s)?", entry.Name, entry.Host)) {
			return nil
		}

		if _, err := reg.RemoveEntry(entry.ID); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Removed %s\n", entry.Name)
		return nil
	},
}

// statusCmd refreshes every fan once and prints the result
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of every configured fan",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, cleanup, err := loadPlatform(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer cleanup()

		snaps := p.Snapshots()
		if outputFormat == "json" {
			return writeJSON(snaps)
		}
		ui.NewPrinter(nil).PrintFans(snaps)
		return nil
	},
}

var onCmd = &cobra.Command{
	Use:   "on <id|name>",
	Short: "Turn a fan on",
	Args:  cobra.ExactArgs(1),
	Example: `  ecofan on "Living Room"
  ecofan on "Living Room" --preset high`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var preset *fan.Speed
		if onPreset != "" {
			speed, err := fan.ParseSpeed(onPreset)
			if err != nil {
				return err
			}
			preset = &speed
		}
		return runCommand(cmd.Context(), args[0], func(ctx context.Context, p *platform.Platform, id string) (fan.Snapshot, error) {
			return p.TurnOn(ctx, id, preset)
		})
	},
}

var offCmd = &cobra.Command{
	Use:   "off <id|name>",
	Short: "Turn a fan off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), args[0], func(ctx context.Context, p *platform.Platform, id string) (fan.Snapshot, error) {
			return p.TurnOff(ctx, id)
		})
	},
}

var presetCmd = &cobra.Command{
	Use:       "preset <id|name> <low|medium|high>",
	Short:     "Set a fan's speed without changing power",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"low", "medium", "high"},
	RunE: func(cmd *cobra.Command, args []string) error {
		speed, err := fan.ParseSpeed(args[1])
		if err != nil {
			return err
		}
		return runCommand(cmd.Context(), args[0], func(ctx context.Context, p *platform.Platform, id string) (fan.Snapshot, error) {
			return p.SetPresetMode(ctx, id, speed)
		})
	},
}

type commandFunc func(ctx context.Context, p *platform.Platform, id string) (fan.Snapshot, error)

// runCommand loads one fan, applies fn and prints the resulting state.
func runCommand(ctx context.Context, idOrName string, fn commandFunc) error {
	p, entry, cleanup, err := loadPlatform(ctx, idOrName)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := fn(ctx, p, entry.ID)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(nil)
	printer.PrintFans([]fan.Snapshot{snap})
	if !snap.Available {
		return fmt.Errorf("%s did not accept the command", entry.Name)
	}
	return nil
}

// loadPlatform sets up every configured fan, or only idOrName when given.
// Each fan is refreshed once during setup.
func loadPlatform(ctx context.Context, idOrName string) (*platform.Platform, *config.Entry, func(), error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, nil, nil, err
	}

	entries := reg.ListEntries()
	var selected *config.Entry
	if idOrName != "" {
		selected, err = reg.GetEntry(idOrName)
		if err != nil {
			return nil, nil, nil, err
		}
		entries = []*config.Entry{selected}
	}

	exec := platform.NewExecutor(platform.DefaultWorkers, logging.Named("executor"))
	p := platform.New(exec,
		platform.WithRequestTimeout(requestTimeout(reg)),
		platform.WithLogger(logging.Named("platform")),
	)

	var setupErrs []string
	for _, e := range entries {
		if _, err := p.SetupEntry(ctx, e); err != nil {
			setupErrs = append(setupErrs, fmt.Sprintf("%s: %v", e.Name, err))
		}
	}
	if len(setupErrs) > 0 {
		exec.Close()
		return nil, nil, nil, errors.New(strings.Join(setupErrs, "; "))
	}

	return p, selected, exec.Close, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// bridgesCmd lists bridges announced with 'ecofan run --advertise'
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Find ecofan bridges on the local network",
	Long: `Browse mDNS for bridges started with 'ecofan run --advertise'.

This finds other ecofan bridges, not fans. Fans are added by address
with 'ecofan setup'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := discovery.NewScanner()
		if scanTimeout > 0 {
			scanner.Timeout = scanTimeout
		}
		bridges, err := scanner.Scan(cmd.Context())
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(bridges)
		}
		if len(bridges) == 0 {
			fmt.Println("No bridges found.")
			return nil
		}
		for _, b := range bridges {
			fmt.Printf("%-30s %-8s %d fans  %s\n", b.Instance, b.Version, b.Fans, b.URL())
		}
		return nil
	},
}
