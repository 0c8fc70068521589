package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muurk/ecofan/internal/fan"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Remove fan?")
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Remove fan?") {
				t.Errorf("prompt not written: %q", out.String())
			}
		})
	}
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out).SetWidth(80)

	p.PrintHeader("probe", "ecofan probe http://10.0.0.9", Param{"Host", "http://10.0.0.9"})
	p.PrintSuccess("Fan reachable", Param{"Payload", "object"})
	p.PrintError("Probe failed", errors.New("connection refused"), "Is the fan powered on?")

	got := out.String()
	for _, want := range []string{"PROBE", "http://10.0.0.9", "Fan reachable", "object", "connection refused", "powered on"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderFanTable(t *testing.T) {
	snaps := []fan.Snapshot{
		{ID: "a", Name: "Living Room", On: true, PresetMode: fan.SpeedHigh, Available: true, UpdatedAt: time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)},
		{ID: "b", Name: "Bedroom", PresetMode: fan.SpeedLow},
	}

	table := RenderFanTable(snaps)
	lines := strings.Split(table, "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3:\n%s", len(lines), table)
	}
	if !strings.Contains(lines[1], "Living Room") || !strings.Contains(lines[1], "high") || !strings.Contains(lines[1], "12:30:00") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "unavailable") || !strings.Contains(lines[2], "never") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestPrintFans_Empty(t *testing.T) {
	var out bytes.Buffer
	NewPrinter(&out).PrintFans(nil)
	if !strings.Contains(out.String(), "ecofan setup") {
		t.Errorf("empty output = %q", out.String())
	}
}
