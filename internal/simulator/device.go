// Package simulator emulates an eCO fan controller's /api/state endpoint.
//
// It backs the ecofan-sim command and the tests of every package that talks
// to a fan.
package simulator

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/deviceapi"
)

// Device is an in-memory fan controller served over HTTP.
type Device struct {
	mu     sync.Mutex
	state  deviceapi.State
	raw    []byte
	status int
	writes []deviceapi.State
	gets   int

	log *zap.Logger
}

// New returns a simulated controller with the given initial state.
func New(initial deviceapi.State, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{state: initial, status: http.StatusOK, log: log}
}

// State returns the controller's current state.
func (d *Device) State() deviceapi.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetState changes the state as if someone used the wall remote.
func (d *Device) SetState(s deviceapi.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

// SetRawResponse makes GET return body verbatim instead of the state.
// nil restores normal behaviour.
func (d *Device) SetRawResponse(body []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = body
}

// SetStatus sets the HTTP status of every response.
func (d *Device) SetStatus(code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = code
}

// Writes returns every state POSTed so far, oldest first.
func (d *Device) Writes() []deviceapi.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]deviceapi.State, len(d.writes))
	copy(out, d.writes)
	return out
}

// Reads returns how many GETs have been served.
func (d *Device) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gets
}

// ServeHTTP implements http.Handler.
func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != deviceapi.StatePath {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		d.handleGet(w)
	case http.MethodPost:
		d.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d *Device) handleGet(w http.ResponseWriter) {
	d.mu.Lock()
	d.gets++
	status := d.status
	body := d.raw
	state := d.state
	d.mu.Unlock()

	if body == nil {
		var err error
		body, err = json.Marshal(state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	d.log.Debug("GET state", zap.ByteString("body", body))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (d *Device) handlePost(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var next deviceapi.State
	if err := json.Unmarshal(payload, &next); err != nil {
		d.log.Warn("Rejected POST", zap.Error(err))
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	d.writes = append(d.writes, next)
	d.state = next
	status := d.status
	d.mu.Unlock()

	d.log.Info("State changed", zap.Bool("on", next.On), zap.Int("fan", next.Fan))
	w.WriteHeader(status)
}
