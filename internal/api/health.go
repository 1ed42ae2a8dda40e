package api

import (
	"net/http"
	"time"

	"github.com/snarg/va-engine/internal/database"
	"github.com/snarg/va-engine/internal/diarize"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Provider      string            `json:"provider,omitempty"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        *database.DB
	provider  diarize.Provider
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, provider diarize.Provider, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		provider:  provider,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "down: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}
	if h.provider != nil {
		resp.Provider = h.provider.Name()
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, resp)
}
