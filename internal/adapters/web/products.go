package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"station-backoffice/internal/core"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.app.Products.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil || user.Role == core.RoleOperator {
		s.writeError(w, r, core.ErrUnauthorized)
		return
	}

	var in core.ProductInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	product, err := s.app.Products.CreateProduct(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type updatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil || user.Role == core.RoleOperator {
		s.writeError(w, r, core.ErrUnauthorized)
		return
	}

	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var req updatePriceRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	product, err := s.app.Products.UpdatePrice(r.Context(), id, req.Price, user.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	history, err := s.app.Products.GetPriceHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
