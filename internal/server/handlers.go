package server

import (
	"encoding/json"
	"net/http"
)

// handleRoot lists the available routes
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "kite-bridge",
		"routes": []string{
			"/auth/login",
			"/auth/callback",
			"/auth/check-token",
			"/api/portfolio?mode=auto|live|cache",
			"/api/save_daily_data",
			"/api/positions",
			"/api/quote?i=NSE:RELIANCE",
			"/api/ohlc?symbol=RELIANCE&exchange=NSE&interval=day",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "kite-bridge",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{
		"detail": detail,
	})
}
