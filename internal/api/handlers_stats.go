package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil || s.provider.Stats() == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.provider.Name(),
		"model":    s.provider.Model(),
		"stats":    s.provider.Stats().Report(),
	})
}
