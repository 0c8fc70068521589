package deviceapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://192.168.1.40/")

	if client.BaseURL != "http://192.168.1.40" {
		t.Errorf("BaseURL = %s, want http://192.168.1.40", client.BaseURL)
	}
	if client.StateURL() != "http://192.168.1.40/api/state" {
		t.Errorf("StateURL() = %s", client.StateURL())
	}
	if client.HTTPClient == nil || client.HTTPClient.Timeout != DefaultTimeout {
		t.Error("HTTPClient should use DefaultTimeout")
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient("http://fan")
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestGetState_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/state" {
			t.Errorf("Path = %s, want /api/state", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "ecofan/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"on": true, "fan": 2}`))
	}))
	defer server.Close()

	state, err := NewClient(server.URL).GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.On == nil || !*state.On {
		t.Errorf("On = %v, want true", state.On)
	}
	if level, ok := state.FanLevel(); !ok || level != 2 {
		t.Errorf("FanLevel() = %d, %v, want 2, true", level, ok)
	}
}

func TestGetState_StatusIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"on": false, "fan": 1}`))
	}))
	defer server.Close()

	state, err := NewClient(server.URL).GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.On == nil || *state.On {
		t.Errorf("On = %v, want false", state.On)
	}
}

func TestGetState_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>router login</html>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetState(context.Background())
	if !IsParseError(err) {
		t.Fatalf("Expected parse error, got %v", err)
	}
	if IsNetworkError(err) {
		t.Error("parse error must not be classified as network error")
	}
}

func TestGetState_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).GetState(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("Expected network error, got %v", err)
	}
}

func TestGetState_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL)
	client.SetTimeout(50 * time.Millisecond)

	_, err := client.GetState(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("Expected network error, got %v", err)
	}
}

func TestSetState(t *testing.T) {
	var got State
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid body %s: %v", body, err)
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	status, err := NewClient(server.URL).SetState(context.Background(), State{On: true, Fan: 3})
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", status, http.StatusTeapot)
	}
	if !got.On || got.Fan != 3 {
		t.Errorf("device received %+v, want {On:true Fan:3}", got)
	}
}

func TestSetState_RequestError(t *testing.T) {
	_, err := NewClient("http://bad host").SetState(context.Background(), State{})
	if !IsNetworkError(err) {
		t.Fatalf("Expected request error to count as network error, got %v", err)
	}
}
