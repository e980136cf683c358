package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/storysignals/internal/defaults"
	"github.com/dgallion1/storysignals/internal/urgency"
)

type suggestRequest struct {
	Category  string `json:"category"`
	Urgency   string `json:"urgency"`
	Name      string `json:"name"`
	Narrative string `json:"narrative"`
}

type suggestResponse struct {
	Goal    defaults.Goal `json:"goal"`
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
}

// handleSuggest synthesizes default campaign fields without running
// extraction. An unknown urgency label is treated as absent.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxNarrativeBytes)+4096)

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	level, _ := urgency.ParseLevel(req.Urgency)
	goal := defaults.SuggestGoal(req.Category, level, req.Narrative)

	writeJSON(w, http.StatusOK, suggestResponse{
		Goal:    goal,
		Title:   defaults.Title(req.Name, req.Category),
		Summary: defaults.Summary(req.Name, req.Category, goal.Amount),
	})
}
