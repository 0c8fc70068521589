package deviceapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func dialError(inner error) error {
	return &url.Error{
		Op:  "Get",
		URL: "http://192.168.1.40/api/state",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: inner},
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{
			name:        "timeout",
			err:         dialError(&timeoutError{}),
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name:        "connection refused",
			err:         dialError(syscall.ECONNREFUSED),
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "host unreachable",
			err:         dialError(syscall.EHOSTUNREACH),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
		},
		{
			name:        "network unreachable",
			err:         dialError(syscall.ENETUNREACH),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorNetworkUnreachable,
		},
		{
			name:        "dns",
			err:         &net.DNSError{Err: "no such host", Name: "fan.local", IsNotFound: true},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
		},
		{
			name:        "generic",
			err:         errors.New("connection reset by peer"),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "http://192.168.1.40")
			if devErr == nil {
				t.Fatal("Expected DeviceError, got nil")
			}
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSubtype)
			}
			if devErr.Host != "http://192.168.1.40" {
				t.Errorf("Host = %q", devErr.Host)
			}
			if !IsNetworkError(devErr) {
				t.Error("IsNetworkError() = false, want true")
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if ClassifyNetworkError(nil, "") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestNewNetworkError_KeepsMessage(t *testing.T) {
	err := NewNetworkError("GET request failed", "http://fan", dialError(syscall.ECONNREFUSED))

	if err.Message != "GET request failed" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Type != ErrTypeConnectionRefused {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeConnectionRefused)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("Expected error chain to contain ECONNREFUSED")
	}
}

func TestErrorPredicates(t *testing.T) {
	parseErr := NewParseError("bad body", "http://fan", errors.New("invalid character"))
	netErr := NewNetworkError("down", "http://fan", errors.New("reset"))
	reqErr := NewRequestError("bad url", "::", errors.New("missing scheme"))
	wrapped := fmt.Errorf("refresh: %w", parseErr)

	tests := []struct {
		name      string
		err       error
		wantNet   bool
		wantParse bool
	}{
		{"parse", parseErr, false, true},
		{"network", netErr, true, false},
		{"request", reqErr, true, false},
		{"wrapped parse", wrapped, false, true},
		{"plain", errors.New("other"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.wantNet {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.wantNet)
			}
			if got := IsParseError(tt.err); got != tt.wantParse {
				t.Errorf("IsParseError() = %v, want %v", got, tt.wantParse)
			}
		})
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", ClassifyNetworkError(dialError(&timeoutError{}), ""), "Fan not responding (timeout)"},
		{"refused", ClassifyNetworkError(dialError(syscall.ECONNREFUSED), ""), "Fan refused connection"},
		{"unreachable", ClassifyNetworkError(dialError(syscall.EHOSTUNREACH), ""), "Fan unreachable - check network connection"},
		{"parse", NewParseError("x", "", nil), "Failed to parse fan response"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	hint := GetTroubleshootingHint(NewParseError("x", "", nil))
	if !strings.Contains(hint, "not with JSON") {
		t.Errorf("parse hint = %q", hint)
	}

	hint = GetTroubleshootingHint(errors.New("boom"))
	if !strings.Contains(hint, "unexpected") {
		t.Errorf("fallback hint = %q", hint)
	}
}

func TestDeviceError_Error(t *testing.T) {
	err := NewParseError("failed to parse state response", "http://fan", errors.New("unexpected EOF"))
	want := "Parse Error: failed to parse state response (caused by: unexpected EOF)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
