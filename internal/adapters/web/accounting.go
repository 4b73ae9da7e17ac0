package web

import (
	"net/http"

	"station-backoffice/internal/core"
)

func (s *Server) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	balances, err := s.app.Ledger.GetBalances(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handlePostEntry(w http.ResponseWriter, r *http.Request) {
	var entry core.Entry
	if err := decodeBody(r, &entry); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	stationID, err := stationFor(r, entry.StationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry.StationID = stationID

	if err := s.app.Ledger.Commit(r.Context(), entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "posted"})
}

func (s *Server) handleValidateEntry(w http.ResponseWriter, r *http.Request) {
	var entry core.Entry
	if err := decodeBody(r, &entry); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	stationID, err := stationFor(r, entry.StationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry.StationID = stationID

	if err := s.app.Ledger.Validate(r.Context(), entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}
