package deviceapi

import (
	"encoding/json"
	"testing"
)

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantOn    *bool
		wantFan   bool
		wantLevel int
		levelOK   bool
	}{
		{name: "full", body: `{"on":true,"fan":3}`, wantOn: boolPtr(true), wantFan: true, wantLevel: 3, levelOK: true},
		{name: "float level", body: `{"on":false,"fan":2.0}`, wantOn: boolPtr(false), wantFan: true, wantLevel: 2, levelOK: true},
		{name: "fractional level", body: `{"on":true,"fan":2.5}`, wantOn: boolPtr(true), wantFan: true},
		{name: "string level", body: `{"on":true,"fan":"2"}`, wantOn: boolPtr(true), wantFan: true},
		{name: "missing fan", body: `{"on":true}`, wantOn: boolPtr(true)},
		{name: "missing on", body: `{"fan":1}`, wantFan: true, wantLevel: 1, levelOK: true},
		{name: "null on", body: `{"on":null,"fan":1}`, wantFan: true, wantLevel: 1, levelOK: true},
		{name: "string on", body: `{"on":"yes","fan":1}`, wantFan: true, wantLevel: 1, levelOK: true},
		{name: "empty object", body: `{}`},
		{name: "array", body: `[1,2]`, wantErr: true},
		{name: "null", body: `null`, wantErr: true},
		{name: "garbage", body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeState([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch {
			case tt.wantOn == nil && got.On != nil:
				t.Errorf("On = %v, want nil", *got.On)
			case tt.wantOn != nil && (got.On == nil || *got.On != *tt.wantOn):
				t.Errorf("On = %v, want %v", got.On, *tt.wantOn)
			}

			if got.HasFan() != tt.wantFan {
				t.Errorf("HasFan() = %v, want %v", got.HasFan(), tt.wantFan)
			}
			level, ok := got.FanLevel()
			if ok != tt.levelOK || (ok && level != tt.wantLevel) {
				t.Errorf("FanLevel() = %d, %v, want %d, %v", level, ok, tt.wantLevel, tt.levelOK)
			}
		})
	}
}

func TestClassifyPayload(t *testing.T) {
	tests := []struct {
		body       string
		want       PayloadKind
		searchable bool
	}{
		{`{"on":true,"fan":1}`, PayloadObject, true},
		{`{}`, PayloadObject, true},
		{`[]`, PayloadArray, true},
		{`"on"`, PayloadString, true},
		{`42`, PayloadNumber, false},
		{`true`, PayloadBool, false},
		{`null`, PayloadNull, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, err := ClassifyPayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("ClassifyPayload() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ClassifyPayload() = %v, want %v", got, tt.want)
			}
			if got.Searchable() != tt.searchable {
				t.Errorf("Searchable() = %v, want %v", got.Searchable(), tt.searchable)
			}
		})
	}

	if kind, err := ClassifyPayload([]byte("<html>")); err == nil || kind != PayloadInvalid {
		t.Errorf("ClassifyPayload(html) = %v, %v", kind, err)
	}
}

func TestStateMarshal(t *testing.T) {
	b, err := json.Marshal(State{On: false, Fan: 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"on":false,"fan":1}` {
		t.Errorf("Marshal = %s", b)
	}
}

func boolPtr(b bool) *bool { return &b }
