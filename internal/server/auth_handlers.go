package server

import (
	"net/http"
)

// handleLogin redirects the operator to the Kite Connect login page
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.kc.LoginURL(), http.StatusFound)
}

// handleCallback exchanges the request token from the OAuth redirect for
// an access token. The token is returned for the operator to persist as
// KITE_ACCESS_TOKEN; there is no automatic credential rotation.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	requestToken := r.URL.Query().Get("request_token")
	if requestToken == "" {
		s.writeError(w, http.StatusBadRequest, "missing request_token query parameter")
		return
	}

	sess, err := s.kc.GenerateSession(r.Context(), requestToken, s.cfg.KiteAPISecret)
	if err != nil {
		s.log.Error().Err(err).Msg("Session exchange failed")
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":       "success",
		"message":      "Access token generated. Set it as the KITE_ACCESS_TOKEN environment variable and restart.",
		"access_token": sess.AccessToken,
	})
}

// handleCheckToken probes whether the configured access token is still
// usable by making a lightweight identity call.
func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	client, err := s.sessions.Acquire()
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "invalid",
			"reason": "no access token configured, log in via /auth/login",
		})
		return
	}

	profile, err := client.Profile(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "invalid",
			"reason": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "valid",
		"user_id": profile.UserID,
	})
}
