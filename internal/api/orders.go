package api

import (
	"fmt"
	"net/http"

	"github.com/tomasvik/threadline-go/internal/checkout"
	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/pkg/idempotency"
	"github.com/tomasvik/threadline-go/pkg/logging"
)

type checkoutRequest struct {
	Items           []domain.OrderLine `json:"items"`
	TotalPrice      int64              `json:"total_price"`
	ShippingAddress domain.Address     `json:"shipping_address"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	order, err := s.Checkout.Checkout(r.Context(), checkout.Input{
		UserID:          userID,
		Lines:           req.Items,
		TotalPrice:      req.TotalPrice,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  idempotency.Key(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	orders, err := s.Orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, admin := identity(r)
	order, err := s.Orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if order.UserID != userID && !admin {
		writeError(w, fmt.Errorf("not authorized to view this order: %w", domain.ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Orders.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

type setStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status == "" {
		writeError(w, fmt.Errorf("status is required: %w", domain.ErrValidation))
		return
	}
	if !domain.ValidOrderStatus(req.Status) {
		writeError(w, fmt.Errorf("invalid status: %w", domain.ErrValidation))
		return
	}

	id := r.PathValue("id")
	if err := s.Orders.SetStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	order, err := s.Orders.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.Events != nil {
		if err := s.Events.OrderStatusChanged(r.Context(), order); err != nil {
			logging.Log(logging.Fields{
				Service: "storefront", OrderID: order.ID,
				Step: "status_event", Status: "failed", Message: err.Error(),
			})
		}
	}
	writeJSON(w, http.StatusOK, order)
}
