package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil || s.deps.Stats.Stats() == nil {
		s.writeError(w, http.StatusServiceUnavailable, "llm stats unavailable", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"provider": s.deps.Stats.Provider(),
		"model":    s.deps.Stats.Model(),
		"stats":    s.deps.Stats.Stats().Snapshot(),
	})
}
