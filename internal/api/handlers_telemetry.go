package api

import (
	"net/http"
	"time"

	"github.com/dgallion1/storysignals/internal/telemetry"
)

const defaultDashboardWindow = time.Hour

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.recorder.Health()
	code := http.StatusOK
	if h.Status == telemetry.StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"health":      h,
		"queue_depth": s.orchestrator.QueueDepth(),
		"capacity":    s.orchestrator.Capacity(),
	})
}

// handleDashboard serves the aggregate view. window accepts Go durations
// such as 15m or 24h.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	window := defaultDashboardWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			jsonError(w, "invalid window: "+v, http.StatusBadRequest)
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.recorder.Dashboard(window))
}
