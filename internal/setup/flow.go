package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/logging"
)

// StepUser is the only step of the flow.
const StepUser = "user"

// ErrorCode is shown inline on the form under the "base" key.
type ErrorCode string

const (
	CodeCannotConnect ErrorCode = "cannot_connect"
	// CodeInvalidAuth is reserved; the fan has no authentication.
	CodeInvalidAuth ErrorCode = "invalid_auth"
	CodeUnknown     ErrorCode = "unknown"
)

// Message returns the text shown for the code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeCannotConnect:
		return "Failed to connect"
	case CodeInvalidAuth:
		return "Invalid authentication"
	case CodeUnknown:
		return "Unexpected error"
	default:
		return string(c)
	}
}

// ResultType tells the caller what to render next.
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
)

// Field describes one form input.
type Field struct {
	Key      string
	Type     string
	Required bool
}

// UserSchema is the form shown for StepUser.
var UserSchema = []Field{
	{Key: "host", Type: "string", Required: true},
	{Key: "name", Type: "string", Required: true},
}

// UserInput is what the user typed into the form.
type UserInput struct {
	Name string
	Host string
}

// Info is the data stored with a created entry.
type Info struct {
	Name string
	Host string
}

// Outcome is the result of validating input: either Info or a Code.
type Outcome struct {
	Info *Info
	Code ErrorCode

	// Err is the probe failure behind Code, if any.
	Err error
}

// OK reports whether validation succeeded.
func (o Outcome) OK() bool {
	return o.Info != nil && o.Code == ""
}

// FlowResult is returned by every Submit call.
type FlowResult struct {
	Type   ResultType
	StepID string
	Schema []Field
	Errors map[string]ErrorCode

	// Cause is the probe failure behind Errors, for display only.
	Cause error

	// Set when Type is ResultCreateEntry.
	Title string
	Data  *Info
	Entry *config.Entry
}

// Validator probes an address.
type Validator interface {
	Probe(ctx context.Context, host string) ProbeResult
}

// Executor runs blocking work off the caller's goroutine and waits for it.
type Executor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntryStore persists created entries.
type EntryStore interface {
	AddEntry(name, host string) (*config.Entry, error)
	Save() error
}

// Flow is the single-step setup form: ask for name and host, probe the
// host, then create an entry or show an inline error.
type Flow struct {
	validator Validator
	exec      Executor
	store     EntryStore
	log       *zap.Logger
}

// NewFlow creates a Flow. store may be nil, in which case created entries
// are returned but not persisted.
func NewFlow(validator Validator, exec Executor, store EntryStore, log *zap.Logger) *Flow {
	if log == nil {
		log = logging.Named("setup")
	}
	return &Flow{validator: validator, exec: exec, store: store, log: log}
}

// Submit advances the flow. A nil input shows the empty form.
func (f *Flow) Submit(ctx context.Context, input *UserInput) FlowResult {
	if input == nil {
		return showForm(nil)
	}

	outcome := f.Validate(ctx, *input)
	if !outcome.OK() {
		result := showForm(map[string]ErrorCode{"base": outcome.Code})
		result.Cause = outcome.Err
		return result
	}

	result := FlowResult{
		Type:   ResultCreateEntry,
		StepID: StepUser,
		Title:  outcome.Info.Name,
		Data:   outcome.Info,
	}

	if f.store != nil {
		entry, err := f.store.AddEntry(outcome.Info.Name, outcome.Info.Host)
		if err == nil {
			err = f.store.Save()
		}
		if err != nil {
			f.log.Error("Unable to store entry", zap.Error(err))
			return showForm(map[string]ErrorCode{"base": CodeUnknown})
		}
		result.Entry = entry
		f.log.Info("Entry created",
			zap.String("entry_id", entry.ID),
			zap.String("name", entry.Name),
			zap.String("host", entry.Host),
		)
	}

	return result
}

// Validate probes the host exactly once on the executor and maps the result
// to an Outcome.
func (f *Flow) Validate(ctx context.Context, input UserInput) Outcome {
	host := strings.TrimSpace(input.Host)
	results := make(chan ProbeResult, 1)
	err := f.exec.Run(ctx, func(ctx context.Context) error {
		results <- f.validator.Probe(ctx, host)
		return nil
	})
	if err != nil {
		f.log.Error("Unexpected exception", zap.Error(err))
		return Outcome{Code: CodeUnknown, Err: err}
	}

	var res ProbeResult
	select {
	case res = <-results:
	default:
		f.log.Error("Unexpected exception", zap.Error(fmt.Errorf("probe produced no result")))
		return Outcome{Code: CodeUnknown}
	}

	switch {
	case res.Connected:
		return Outcome{Info: &Info{Name: input.Name, Host: host}}
	case errors.Is(res.Err, ErrUnexpectedPayload):
		f.log.Error("Unexpected exception", zap.Error(res.Err))
		return Outcome{Code: CodeUnknown, Err: res.Err}
	default:
		return Outcome{Code: CodeCannotConnect, Err: res.Err}
	}
}

func showForm(errs map[string]ErrorCode) FlowResult {
	if errs == nil {
		errs = map[string]ErrorCode{}
	}
	return FlowResult{
		Type:   ResultForm,
		StepID: StepUser,
		Schema: UserSchema,
		Errors: errs,
	}
}
