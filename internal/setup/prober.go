package setup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/logging"
)

// ErrUnexpectedPayload is reported when the address answered with JSON that
// cannot be a state document at all (a bare number, boolean or null).
var ErrUnexpectedPayload = errors.New("unexpected payload")

// ProbeResult is the outcome of a single probe.
type ProbeResult struct {
	// Connected is true when the address answered with usable JSON.
	Connected bool

	// StatusCode is the HTTP status, or 0 when no response arrived.
	// It never affects Connected.
	StatusCode int

	// Payload is the top-level JSON type of the body.
	Payload deviceapi.PayloadKind

	// HasStateKeys is true when the body was an object carrying both
	// "on" and "fan". It is informational only.
	HasStateKeys bool

	// Err explains why Connected is false.
	Err error
}

// Prober checks that an address looks like an eCO fan.
type Prober struct {
	timeout time.Duration
	log     *zap.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithTimeout bounds the probe request.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProberLogger sets the logger.
func WithProberLogger(l *zap.Logger) ProberOption {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProber creates a Prober with the default request timeout.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		timeout: deviceapi.DefaultTimeout,
		log:     logging.Named("setup"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe GETs <host>/api/state once.
//
// Any JSON document that can hold keys counts as a fan, even {} or one
// without "on" and "fan". A transport failure or a non-JSON body does not.
// The HTTP status is ignored.
func (p *Prober) Probe(ctx context.Context, host string) ProbeResult {
	client := deviceapi.NewClient(host)
	client.SetTimeout(p.timeout)
	log := p.log.With(zap.String("host", host))

	resp, err := client.Fetch(ctx)
	if err != nil {
		log.Error("Unable to connect", zap.Error(err))
		return ProbeResult{Err: err}
	}
	log.Debug("Probe answered", zap.Int("status_code", resp.StatusCode))

	kind, err := deviceapi.ClassifyPayload(resp.Body)
	if err != nil {
		log.Error("Unable to parse response", zap.Error(err))
		return ProbeResult{
			StatusCode: resp.StatusCode,
			Err:        deviceapi.NewParseError("probe response is not JSON", client.BaseURL, err),
		}
	}

	if !kind.Searchable() {
		log.Error("Unexpected probe payload", zap.Stringer("payload", kind))
		return ProbeResult{
			StatusCode: resp.StatusCode,
			Payload:    kind,
			Err:        fmt.Errorf("%w: top-level %s", ErrUnexpectedPayload, kind),
		}
	}

	result := ProbeResult{Connected: true, StatusCode: resp.StatusCode, Payload: kind}
	if kind == deviceapi.PayloadObject {
		if state, err := deviceapi.DecodeState(resp.Body); err == nil {
			result.HasStateKeys = slices.Contains(state.Keys, "on") && slices.Contains(state.Keys, "fan")
		}
	}
	if !result.HasStateKeys {
		log.Debug("Probe payload lacks on/fan keys, accepting anyway", zap.Stringer("payload", kind))
	}

	return result
}
