package web

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.app.GetDashboard(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
