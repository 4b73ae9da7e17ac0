package web

import (
	"fmt"
	"net/http"
	"time"

	"station-backoffice/internal/core"
)

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var in core.SaleInput
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

	tx, err := s.app.Sales.CreateTransaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), stationID)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	tx, err := s.app.Sales.GetTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requireStationAccess(r.Context(), tx.StationID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	filter := core.ListSalesFilter{PaymentMethod: r.URL.Query().Get("paymentMethod")}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			badRequest(w, "invalid from date, want YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			badRequest(w, "invalid to date, want YYYY-MM-DD")
			return
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}

	txs, err := s.app.Sales.ListTransactions(r.Context(), stationID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	tx, err := s.app.Sales.GetTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requireStationAccess(r.Context(), tx.StationID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if user := userFrom(r.Context()); user == nil || !user.CanDelete() {
		s.writeError(w, r, fmt.Errorf("deleting sales requires a manager role: %w", core.ErrUnauthorized))
		return
	}

	if err := s.app.Sales.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), tx.StationID)
	w.WriteHeader(http.StatusNoContent)
}
