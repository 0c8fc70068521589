package deviceapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// StatePath is the only endpoint an eCO fan controller serves.
const StatePath = "/api/state"

// State is the body POSTed to /api/state.
//
// Both fields are always sent; the controller has no partial update.
type State struct {
	On  bool `json:"on"`
	Fan int  `json:"fan"` // 1 (low), 2 (medium) or 3 (high)
}

// StateResponse is a leniently decoded GET /api/state body.
//
// The controller firmware is not versioned, so fields are kept raw and
// interpreted by the caller:
//   - On is nil when "on" is missing or not a boolean
//   - Fan is nil when "fan" is missing; it may hold any JSON value otherwise
type StateResponse struct {
	On  *bool
	Fan json.RawMessage

	// Keys lists every top-level key the controller returned.
	Keys []string
}

// HasFan reports whether the response carried a "fan" key at all.
func (r *StateResponse) HasFan() bool {
	return r != nil && r.Fan != nil
}

// FanLevel returns the fan value as an integer level. ok is false when the
// value is missing, not a number, or not integral.
func (r *StateResponse) FanLevel() (level int, ok bool) {
	if !r.HasFan() {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(r.Fan, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// DecodeState parses a GET /api/state body. Anything that is not a JSON
// object yields a parse error.
func DecodeState(body []byte) (*StateResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode state: body is null")
	}

	resp := &StateResponse{Keys: make([]string, 0, len(fields))}
	for k := range fields {
		resp.Keys = append(resp.Keys, k)
	}

	if raw, ok := fields["on"]; ok {
		var on bool
		if err := json.Unmarshal(raw, &on); err == nil && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			resp.On = &on
		}
	}
	if raw, ok := fields["fan"]; ok {
		resp.Fan = raw
	}

	return resp, nil
}

// PayloadKind classifies an arbitrary JSON document by its top-level type.
type PayloadKind int

const (
	PayloadInvalid PayloadKind = iota
	PayloadObject
	PayloadArray
	PayloadString
	PayloadNumber
	PayloadBool
	PayloadNull
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadObject:
		return "object"
	case PayloadArray:
		return "array"
	case PayloadString:
		return "string"
	case PayloadNumber:
		return "number"
	case PayloadBool:
		return "bool"
	case PayloadNull:
		return "null"
	default:
		return "invalid"
	}
}

// Searchable reports whether a key lookup ("on" in payload) is meaningful
// for this kind of document.
func (k PayloadKind) Searchable() bool {
	return k == PayloadObject || k == PayloadArray || k == PayloadString
}

// ClassifyPayload reports the top-level JSON type of body, or PayloadInvalid
// with the decode error when body is not JSON.
func ClassifyPayload(body []byte) (PayloadKind, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return PayloadInvalid, err
	}
	switch v.(type) {
	case map[string]any:
		return PayloadObject, nil
	case []any:
		return PayloadArray, nil
	case string:
		return PayloadString, nil
	case float64:
		return PayloadNumber, nil
	case bool:
		return PayloadBool, nil
	default:
		return PayloadNull, nil
	}
}
