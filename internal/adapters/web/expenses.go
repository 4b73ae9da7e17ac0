package web

import (
	"net/http"

	"station-backoffice/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	expenses, err := s.app.Expenses.ListExpenses(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	stationID, err := stationFor(r, in.StationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in.StationID = stationID

	expenseID, err := s.app.Expenses.RecordExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"expense_id": expenseID})
}
