package web

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"station-backoffice/internal/core"
)

func (s *Server) handleListTanks(w http.ResponseWriter, r *http.Request) {
	stationID, err := stationFor(r, stationQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("lowStock") == "true" {
		tanks, err := s.app.Inventory.LowStockTanks(r.Context(), stationID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tanks)
		return
	}

	tanks, err := s.app.Inventory.GetTanks(r.Context(), stationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tanks)
}

type createTankRequest struct {
	StationID    int             `json:"station_id"`
	ProductID    int             `json:"product_id"`
	Code         string          `json:"code"`
	Capacity     decimal.Decimal `json:"capacity"`
	MinimumLevel decimal.Decimal `json:"minimum_level"`
}

func (s *Server) handleCreateTank(w http.ResponseWriter, r *http.Request) {
	var req createTankRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	stationID, err := stationFor(r, req.StationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tank, err := s.app.Inventory.CreateTank(r.Context(), stationID, req.ProductID, req.Code, req.Capacity, req.MinimumLevel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tank)
}

// authorizedTank loads the tank named by {id} and checks station access.
func (s *Server) authorizedTank(r *http.Request) (*core.Tank, error) {
	id, ok := idParam(r)
	if !ok {
		return nil, fmt.Errorf("invalid id: %w", core.ErrValidation)
	}
	tank, err := s.app.Inventory.GetTank(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := requireStationAccess(r.Context(), tank.StationID); err != nil {
		return nil, err
	}
	return tank, nil
}

func (s *Server) handleTankMovements(w http.ResponseWriter, r *http.Request) {
	tank, err := s.authorizedTank(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	movements, err := s.app.Inventory.GetStockMovements(r.Context(), tank.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (s *Server) handleTankReconcile(w http.ResponseWriter, r *http.Request) {
	tank, err := s.authorizedTank(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.app.Inventory.ReconcileTank(r.Context(), tank.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type adjustStockRequest struct {
	Delta     decimal.Decimal `json:"delta"`
	Reference string          `json:"reference"`
}

func (s *Server) handleTankAdjust(w http.ResponseWriter, r *http.Request) {
	tank, err := s.authorizedTank(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req adjustStockRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	newLevel, err := s.app.Inventory.AdjustStock(r.Context(), tank.ID, req.Delta, req.Reference)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tank_id": tank.ID, "current_stock": newLevel})
}
