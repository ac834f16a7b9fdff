package api

import (
	"errors"
	"net/http"

	"github.com/tomasvik/threadline-go/internal/domain"
)

// cartItemView hydrates a line with the current product record, mirroring
// the populated cart the clients expect. Lines whose product vanished are
// dropped from the view, not from the cart.
type cartItemView struct {
	Product  *domain.Product `json:"product"`
	Size     domain.Size     `json:"size"`
	Quantity int             `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemView `json:"items"`
}

func (s *Server) cartView(r *http.Request, cart *domain.Cart) cartResponse {
	items := make([]cartItemView, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.Catalog.GetByID(r.Context(), line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			continue
		}
		items = append(items, cartItemView{Product: product, Size: line.Size, Quantity: line.Quantity})
	}
	return cartResponse{Items: items}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	cart, err := s.Carts.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, cart))
}

type cartLineRequest struct {
	ProductID string      `json:"product_id"`
	Size      domain.Size `json:"size"`
	Quantity  int         `json:"quantity"`
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.Carts.Add(r.Context(), userID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, cart))
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.Carts.Update(r.Context(), userID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, cart))
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req cartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.Carts.Remove(r.Context(), userID, req.ProductID, req.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, cart))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if err := s.Carts.Clear(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "cart cleared successfully", "items": []cartItemView{}})
}

type syncCartRequest struct {
	GuestCart []domain.CartLine `json:"guest_cart"`
}

func (s *Server) handleSyncCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req syncCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.Carts.Merge(r.Context(), userID, req.GuestCart)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, cart))
}
