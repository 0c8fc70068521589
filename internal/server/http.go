package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/ecofan/internal/fan"
	"github.com/muurk/ecofan/internal/platform"
	"github.com/muurk/ecofan/internal/version"
)

// FanView is the JSON representation of one fan.
type FanView struct {
	fan.Snapshot
	Capabilities fan.Capabilities `json:"capabilities"`
	Device       fan.DeviceInfo   `json:"device"`
}

type presetRequest struct {
	PresetMode *string `json:"preset_mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleEvents)

		r.Route("/fans", func(r chi.Router) {
			r.Get("/", s.handleList)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Post("/turn_on", s.handleTurnOn)
				r.Post("/turn_off", s.handleTurnOff)
				r.Post("/preset_mode", s.handlePreset)
			})
		})
	})

	return r
}

// logRequests logs each request once the handler returns. The wrapped
// writer keeps http.Hijacker so websocket upgrades pass through.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status_code", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"fans":    len(s.ctrl.Snapshots()),
	})
}

func (s *Server) view(snap fan.Snapshot) FanView {
	v := FanView{Snapshot: snap}
	if e, ok := s.ctrl.Entity(snap.ID); ok {
		v.Capabilities = e.Capabilities()
		v.Device = e.DeviceInfo()
	}
	return v
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	snaps := s.ctrl.Snapshots()
	views := make([]FanView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, s.view(snap))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ctrl.Entity(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, platform.ErrUnknownEntity)
		return
	}
	writeJSON(w, http.StatusOK, s.view(e.Snapshot()))
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	req, err := decodePreset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var preset *fan.Speed
	if req.PresetMode != nil {
		speed, err := fan.ParseSpeed(*req.PresetMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		preset = &speed
	}

	snap, err := s.ctrl.TurnOn(r.Context(), chi.URLParam(r, "id"), preset)
	s.writeCommandResult(w, snap, err)
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.TurnOff(r.Context(), chi.URLParam(r, "id"))
	s.writeCommandResult(w, snap, err)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	req, err := decodePreset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PresetMode == nil {
		writeError(w, http.StatusBadRequest, errors.New("preset_mode is required"))
		return
	}

	speed, err := fan.ParseSpeed(*req.PresetMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := s.ctrl.SetPresetMode(r.Context(), chi.URLParam(r, "id"), speed)
	s.writeCommandResult(w, snap, err)
}

func (s *Server) writeCommandResult(w http.ResponseWriter, snap fan.Snapshot, err error) {
	switch {
	case errors.Is(err, platform.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, fan.ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.log.Error("Command failed", zap.String("entry_id", snap.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, s.view(snap))
	}
}

// decodePreset reads an optional {"preset_mode": "..."} body.
func decodePreset(r *http.Request) (presetRequest, error) {
	var req presetRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		return req, err
	}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
