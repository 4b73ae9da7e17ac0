package web

import (
	"net/http"

	"station-backoffice/internal/core"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	customers, err := s.app.Parties.ListCustomers(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in core.PartyInput
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

	customer, err := s.app.Parties.CreateCustomer(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleCustomerPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	customer, err := s.app.Parties.GetCustomer(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requireStationAccess(r.Context(), customer.StationID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var in core.PaymentInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	in.StationID = customer.StationID
	in.PartyID = customer.ID

	paymentID, err := s.app.Parties.RecordCustomerPayment(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), customer.StationID)
	writeJSON(w, http.StatusCreated, map[string]int{"payment_id": paymentID})
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	suppliers, err := s.app.Parties.ListSuppliers(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var in core.PartyInput
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

	supplier, err := s.app.Parties.CreateSupplier(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (s *Server) handleSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	supplier, err := s.app.Parties.GetSupplier(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requireStationAccess(r.Context(), supplier.StationID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var in core.PaymentInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	in.StationID = supplier.StationID
	in.PartyID = supplier.ID

	paymentID, err := s.app.Parties.RecordSupplierPayment(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"payment_id": paymentID})
}
