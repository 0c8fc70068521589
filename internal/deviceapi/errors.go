package deviceapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (unreachable host, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the fan refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeParse indicates the fan answered with a body that is not usable JSON
	ErrTypeParse
	// ErrTypeRequest indicates the request could not be built (bad address)
	ErrTypeRequest
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeRequest:
		return "Request Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError is returned by every Client method.
type DeviceError struct {
	Type           ErrorType
	Message        string
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Host           string
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a classified DeviceError.
func ClassifyNetworkError(err error, host string) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Fan refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message, host string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, host)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Host: host}
	}
	classified.Message = message
	return classified
}

// NewParseError creates a parsing error
func NewParseError(message, host string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
		Host:    host,
	}
}

// NewRequestError creates an error for a request that never left the process.
func NewRequestError(message, host string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeRequest,
		Message: message,
		Err:     err,
		Host:    host,
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a transport failure: the fan could not
// be reached or did not answer. Request construction failures count as
// network failures because the request never produced a response.
func IsNetworkError(err error) bool {
	devErr, ok := asDeviceError(err)
	if !ok {
		return false
	}
	switch devErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeRequest:
		return true
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeParse
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Fan not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Fan refused connection"
	case ErrTypeDNS:
		return "Cannot resolve fan hostname"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Fan unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable"
		default:
			return "Network error - check connection"
		}
	case ErrTypeParse:
		return "Failed to parse fan response"
	case ErrTypeRequest:
		return "Invalid fan address"
	default:
		return devErr.Message
	}
}

// GetTroubleshootingHint returns user-facing advice for an error.
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The fan did not respond in time.",
			"Troubleshooting:",
			"  • Check that the fan controller is powered",
			"  • Verify it is joined to the same WiFi network",
			"  • Try a longer --timeout",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The fan refused the connection.",
			"Troubleshooting:",
			"  • Verify the port in the address (default is 80)",
			"  • Power cycle the fan controller",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the fan hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Check your network DNS settings",
		}, "\n")

	case ErrTypeNetwork:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Verify the fan address is correct",
			"  • Check that you're on the same network as the fan",
		}, "\n")

	case ErrTypeParse:
		return strings.Join([]string{
			"The address answered, but not with JSON.",
			"Troubleshooting:",
			"  • Make sure the address points at the fan, not another web server",
			"  • The address must include the scheme, e.g. http://192.168.1.40",
		}, "\n")

	case ErrTypeRequest:
		return "The address is not a valid URL. Use the form http://host[:port]."

	default:
		return "An error occurred. Please check the error message for details."
	}
}
