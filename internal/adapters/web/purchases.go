package web

import (
	"context"
	"fmt"
	"net/http"

	"station-backoffice/internal/core"
)

func (s *Server) handleCreatePO(w http.ResponseWriter, r *http.Request) {
	var in core.POInput
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

	po, err := s.app.Orders.CreatePO(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), stationID)
	writeJSON(w, http.StatusCreated, po)
}

func (s *Server) handleGetPO(w http.ResponseWriter, r *http.Request) {
	po, err := s.authorizedPO(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (s *Server) handleListPOs(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := core.POStatus(r.URL.Query().Get("status"))
	orders, err := s.app.Orders.ListPOs(r.Context(), stationID, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// authorizedPO loads the order named by {id} and checks station access.
func (s *Server) authorizedPO(r *http.Request) (*core.PurchaseOrder, error) {
	id, ok := idParam(r)
	if !ok {
		return nil, fmt.Errorf("invalid id: %w", core.ErrValidation)
	}
	po, err := s.app.Orders.GetPO(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := requireStationAccess(r.Context(), po.StationID); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Server) handleUpdatePO(w http.ResponseWriter, r *http.Request) {
	po, err := s.authorizedPO(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in struct {
		Items []core.POItemInput `json:"items"`
	}
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.app.Orders.UpdatePO(r.Context(), po.ID, in.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleApprovePO(w http.ResponseWriter, r *http.Request) {
	s.transitionPO(w, r, s.app.Orders.ApprovePO)
}

func (s *Server) handleDeliverPO(w http.ResponseWriter, r *http.Request) {
	s.transitionPO(w, r, s.app.Orders.DeliverPO)
}

func (s *Server) handleCancelPO(w http.ResponseWriter, r *http.Request) {
	s.transitionPO(w, r, s.app.Orders.CancelPO)
}

func (s *Server) transitionPO(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, poID int) (*core.PurchaseOrder, error)) {
	po, err := s.authorizedPO(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := fn(r.Context(), po.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), po.StationID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePO(w http.ResponseWriter, r *http.Request) {
	po, err := s.authorizedPO(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user := userFrom(r.Context()); user == nil || !user.CanDelete() {
		s.writeError(w, r, fmt.Errorf("deleting purchase orders requires a manager role: %w", core.ErrUnauthorized))
		return
	}

	if err := s.app.Orders.DeletePO(r.Context(), po.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.InvalidateDashboard(r.Context(), po.StationID)
	w.WriteHeader(http.StatusNoContent)
}
