package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"zha_status/core-go/internal/metrics"
	"zha_status/core-go/internal/snapshot"
)

// Pinger is the readiness slice of the optional history store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the status API over the latest snapshot file. It never talks
// to the hub itself; collection happens in the background worker, and
// POST /api/v1/collect only nudges it.
type Handler struct {
	log          zerolog.Logger
	metrics      *metrics.Metrics
	history      Pinger
	snapshotPath string
	trigger      func() bool
}

// NewHandler wires the API. history may be nil (file-only mode); trigger may
// be nil when no background worker is running.
func NewHandler(log zerolog.Logger, m *metrics.Metrics, history Pinger, snapshotPath string, trigger func() bool) *Handler {
	return &Handler{
		log:          log,
		metrics:      m,
		history:      history,
		snapshotPath: snapshotPath,
		trigger:      trigger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)

	// Metrics
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/snapshot", h.handleSnapshot)
			r.Get("/devices", h.handleDevices)
			r.Get("/stats", h.handleStats)
			r.Post("/collect", h.handleCollect)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		// File-only mode: ready as soon as the process is serving.
		h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.history.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "history database not ready", map[string]any{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

// loadSnapshot reads the latest snapshot, translating absence into a 404.
func (h *Handler) loadSnapshot(w http.ResponseWriter) (snapshot.RunSnapshot, bool) {
	snap, err := snapshot.Load(h.snapshotPath)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			h.writeError(w, http.StatusNotFound, "no_snapshot", "no collection run has completed yet", nil)
			return snapshot.RunSnapshot{}, false
		}
		h.log.Error().Err(err).Msg("snapshot read failed")
		h.writeError(w, http.StatusInternalServerError, "snapshot_error", "failed to read snapshot", nil)
		return snapshot.RunSnapshot{}, false
	}
	return snap, true
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.loadSnapshot(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.loadSnapshot(w)
	if !ok {
		return
	}
	if snap.Devices == nil {
		snap.Devices = []snapshot.DeviceSnapshot{}
	}
	h.writeJSON(w, http.StatusOK, snap.Devices)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.loadSnapshot(w)
	if !ok {
		return
	}

	offline := 0
	batteryDevices := 0
	for _, d := range snap.Devices {
		if d.Offline {
			offline++
		}
		if d.BatteryLevel != nil {
			batteryDevices++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"device_count":    len(snap.Devices),
		"offline_count":   offline,
		"battery_devices": batteryDevices,
		"generated_at":    snap.Timestamp,
	})
}

func (h *Handler) handleCollect(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		h.writeError(w, http.StatusServiceUnavailable, "collector_unavailable", "no collector worker is running", nil)
		return
	}
	if !h.trigger() {
		h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "already_pending"})
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}
