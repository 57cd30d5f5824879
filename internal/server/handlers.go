package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth reports service health, including the run store when one is wired.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "plaquette",
	}
	status := http.StatusOK

	if s.health != nil {
		if err := s.health.HealthCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Health check failed")
			response["status"] = "unhealthy"
			response["error"] = "database unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
