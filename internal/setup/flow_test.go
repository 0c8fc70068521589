package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/platform"
	"github.com/muurk/ecofan/internal/simulator"
)

type stubValidator struct {
	result ProbeResult
	panics bool
	calls  int
	hosts  []string
}

func (s *stubValidator) Probe(ctx context.Context, host string) ProbeResult {
	s.calls++
	s.hosts = append(s.hosts, host)
	if s.panics {
		panic("probe exploded")
	}
	return s.result
}

type failingStore struct{}

func (failingStore) AddEntry(name, host string) (*config.Entry, error) {
	return &config.Entry{ID: "x", Name: name, Host: host}, nil
}
func (failingStore) Save() error { return errors.New("disk full") }

func newExecutor(t *testing.T) *platform.Executor {
	t.Helper()
	exec := platform.NewExecutor(1, nil)
	t.Cleanup(exec.Close)
	return exec
}

func TestSubmit_NilInputShowsForm(t *testing.T) {
	v := &stubValidator{}
	res := NewFlow(v, newExecutor(t), nil, nil).Submit(context.Background(), nil)

	if res.Type != ResultForm || res.StepID != StepUser {
		t.Errorf("result = %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
	if len(res.Schema) != 2 || res.Schema[0].Key != "host" || res.Schema[1].Key != "name" {
		t.Errorf("Schema = %+v", res.Schema)
	}
	if v.calls != 0 {
		t.Error("probe ran for nil input")
	}
}

func TestSubmit_OutcomeCodes(t *testing.T) {
	tests := []struct {
		name      string
		validator *stubValidator
		wantType  ResultType
		wantCode  ErrorCode
	}{
		{
			name:      "connected",
			validator: &stubValidator{result: ProbeResult{Connected: true}},
			wantType:  ResultCreateEntry,
		},
		{
			name:      "network failure",
			validator: &stubValidator{result: ProbeResult{Err: deviceapi.NewNetworkError("down", "", errors.New("refused"))}},
			wantType:  ResultForm,
			wantCode:  CodeCannotConnect,
		},
		{
			name:      "parse failure",
			validator: &stubValidator{result: ProbeResult{Err: deviceapi.NewParseError("bad", "", errors.New("eof"))}},
			wantType:  ResultForm,
			wantCode:  CodeCannotConnect,
		},
		{
			name:      "unexpected payload",
			validator: &stubValidator{result: ProbeResult{Err: fmt.Errorf("%w: top-level number", ErrUnexpectedPayload)}},
			wantType:  ResultForm,
			wantCode:  CodeUnknown,
		},
		{
			name:      "panic",
			validator: &stubValidator{panics: true},
			wantType:  ResultForm,
			wantCode:  CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlow(tt.validator, newExecutor(t), nil, nil)
			res := flow.Submit(context.Background(), &UserInput{Name: "Bedroom", Host: "http://fan.local:80"})

			if res.Type != tt.wantType {
				t.Fatalf("Type = %s, want %s", res.Type, tt.wantType)
			}
			if tt.validator.calls != 1 {
				t.Errorf("probe ran %d times, want 1", tt.validator.calls)
			}
			if tt.wantType == ResultForm {
				if len(res.Errors) != 1 || res.Errors["base"] != tt.wantCode {
					t.Errorf("Errors = %v, want base=%s", res.Errors, tt.wantCode)
				}
				return
			}
			if res.Title != "Bedroom" || res.Data.Name != "Bedroom" || res.Data.Host != "http://fan.local:80" {
				t.Errorf("created = %+v / %+v", res, res.Data)
			}
		})
	}
}

func TestSubmit_NeverProducesInvalidAuth(t *testing.T) {
	results := []ProbeResult{
		{Connected: true},
		{Err: errors.New("x")},
		{Err: ErrUnexpectedPayload},
		{},
	}
	for _, r := range results {
		out := NewFlow(&stubValidator{result: r}, newExecutor(t), nil, nil).Validate(context.Background(), UserInput{Host: "h"})
		if out.Code == CodeInvalidAuth {
			t.Errorf("Validate(%+v) produced invalid_auth", r)
		}
	}
}

func TestSubmit_ScenarioCreatesEntry(t *testing.T) {
	server := httptest.NewServer(simulator.New(deviceapi.State{On: true, Fan: 2}, nil))
	defer server.Close()

	registry, err := config.LoadRegistryFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	flow := NewFlow(NewProber(), newExecutor(t), registry, nil)
	res := flow.Submit(context.Background(), &UserInput{Name: "Bedroom", Host: server.URL})

	if res.Type != ResultCreateEntry {
		t.Fatalf("Type = %s, errors %v", res.Type, res.Errors)
	}
	if res.Entry == nil || res.Entry.Name != "Bedroom" || res.Entry.Host != server.URL {
		t.Fatalf("Entry = %+v", res.Entry)
	}

	reloaded, err := config.LoadRegistryFrom(registry.Path())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reloaded.GetEntry(res.Entry.ID); err != nil {
		t.Errorf("entry not persisted: %v", err)
	}
}

func TestSubmit_UnreachableHostReshowsForm(t *testing.T) {
	server := httptest.NewServer(nil)
	host := server.URL
	server.Close()

	flow := NewFlow(NewProber(), newExecutor(t), nil, nil)
	res := flow.Submit(context.Background(), &UserInput{Name: "Bedroom", Host: host})

	if res.Type != ResultForm || res.Errors["base"] != CodeCannotConnect {
		t.Errorf("result = %+v", res)
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	flow := NewFlow(&stubValidator{result: ProbeResult{Connected: true}}, newExecutor(t), failingStore{}, nil)
	res := flow.Submit(context.Background(), &UserInput{Name: "Bedroom", Host: "http://fan"})

	if res.Type != ResultForm || res.Errors["base"] != CodeUnknown {
		t.Errorf("result = %+v", res)
	}
}

func TestSubmit_TrimsHost(t *testing.T) {
	v := &stubValidator{result: ProbeResult{Connected: true}}
	registry, err := config.LoadRegistryFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	res := NewFlow(v, newExecutor(t), registry, nil).Submit(context.Background(), &UserInput{Name: "A", Host: "  http://fan  "})

	if len(v.hosts) != 1 || v.hosts[0] != "http://fan" {
		t.Errorf("probed %q", v.hosts)
	}
	if res.Data == nil || res.Data.Host != "http://fan" {
		t.Errorf("Data = %+v, want trimmed host", res.Data)
	}
	if res.Entry == nil || res.Entry.Host != "http://fan" {
		t.Errorf("stored entry = %+v, want trimmed host", res.Entry)
	}
}

func TestSubmit_FailureCarriesCause(t *testing.T) {
	server := httptest.NewServer(nil)
	host := server.URL
	server.Close()

	res := NewFlow(NewProber(), newExecutor(t), nil, nil).Submit(context.Background(), &UserInput{Name: "A", Host: host})

	if res.Errors["base"] != CodeCannotConnect {
		t.Fatalf("errors = %v", res.Errors)
	}
	if !deviceapi.IsNetworkError(res.Cause) {
		t.Errorf("Cause = %v, want a network error", res.Cause)
	}
}

func TestErrorCodeMessage(t *testing.T) {
	if CodeCannotConnect.Message() != "Failed to connect" {
		t.Errorf("Message() = %q", CodeCannotConnect.Message())
	}
	if CodeUnknown.Message() != "Unexpected error" {
		t.Errorf("Message() = %q", CodeUnknown.Message())
	}
}
