package setup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/ecofan/internal/deviceapi"
	"github.com/muurk/ecofan/internal/simulator"
)

func serveBody(t *testing.T, status int, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/state" {
			t.Errorf("probe hit %s, want /api/state", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantConnected bool
		wantKeys      bool
		wantPayload   error
	}{
		{name: "state document", status: 200, body: `{"on": true, "fan": 2}`, wantConnected: true, wantKeys: true},
		{name: "empty object", status: 200, body: `{}`, wantConnected: true},
		{name: "unrelated object", status: 200, body: `{"hello":"world"}`, wantConnected: true},
		{name: "array", status: 200, body: `["on","fan"]`, wantConnected: true},
		{name: "string", status: 200, body: `"on fan"`, wantConnected: true},
		{name: "error status with json", status: 500, body: `{"on":false,"fan":1}`, wantConnected: true, wantKeys: true},
		{name: "html", status: 200, body: `<html></html>`},
		{name: "empty body", status: 204, body: ``},
		{name: "number", status: 200, body: `42`, wantPayload: ErrUnexpectedPayload},
		{name: "null", status: 200, body: `null`, wantPayload: ErrUnexpectedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := serveBody(t, tt.status, tt.body)

			res := NewProber().Probe(context.Background(), host)

			if res.Connected != tt.wantConnected {
				t.Errorf("Connected = %v, want %v (err %v)", res.Connected, tt.wantConnected, res.Err)
			}
			if res.HasStateKeys != tt.wantKeys {
				t.Errorf("HasStateKeys = %v, want %v", res.HasStateKeys, tt.wantKeys)
			}
			if res.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.status)
			}
			if tt.wantPayload != nil && !errors.Is(res.Err, tt.wantPayload) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantPayload)
			}
			if !tt.wantConnected && res.Err == nil {
				t.Error("Err should explain a failed probe")
			}
		})
	}
}

func TestProbe_ParseFailureIsExplicitFalse(t *testing.T) {
	host := serveBody(t, 200, "not json")

	res := NewProber().Probe(context.Background(), host)

	if res.Connected {
		t.Error("Connected = true for non-JSON body")
	}
	if !deviceapi.IsParseError(res.Err) {
		t.Errorf("Err = %v, want parse error", res.Err)
	}
}

func TestProbe_TransportError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	res := NewProber(WithProberLogger(zap.New(core))).Probe(context.Background(), host)

	if res.Connected {
		t.Error("Connected = true for unreachable host")
	}
	if !deviceapi.IsNetworkError(res.Err) {
		t.Errorf("Err = %v, want network error", res.Err)
	}
	if logs.FilterMessage("Unable to connect").Len() != 1 {
		t.Error("expected an 'Unable to connect' log entry")
	}
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	res := NewProber(WithTimeout(50*time.Millisecond)).Probe(context.Background(), server.URL)

	if res.Connected {
		t.Error("Connected = true after timeout")
	}
}

func TestProbe_Simulator(t *testing.T) {
	server := httptest.NewServer(simulator.New(deviceapi.State{On: true, Fan: 2}, nil))
	defer server.Close()

	res := NewProber().Probe(context.Background(), server.URL+"/")
	if !res.Connected || !res.HasStateKeys {
		t.Errorf("Probe() = %+v", res)
	}
}

func TestProbe_InvalidAddress(t *testing.T) {
	res := NewProber().Probe(context.Background(), "")
	if res.Connected {
		t.Error("Connected = true for empty address")
	}
}
