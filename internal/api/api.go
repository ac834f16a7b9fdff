package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomasvik/threadline-go/internal/checkout"
	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/internal/store"
	"github.com/tomasvik/threadline-go/pkg/logging"
	"github.com/tomasvik/threadline-go/pkg/metrics"
)

type Catalog interface {
	List(ctx context.Context, f store.Filter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id string, patch store.Patch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID, productID string, size domain.Size, quantity int) (*domain.Cart, error)
	Update(ctx context.Context, userID, productID string, size domain.Size, quantity int) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID string, size domain.Size) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
	Merge(ctx context.Context, userID string, incoming []domain.CartLine) (*domain.Cart, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, in checkout.Input) (*domain.Order, error)
}

type OrderService interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// StatusNotifier emits the status-changed event; nil disables emission.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order *domain.Order) error
}

type Server struct {
	Catalog  Catalog
	Carts    CartService
	Checkout CheckoutService
	Orders   OrderService
	Events   StatusNotifier
	Metrics  *metrics.ServerMetrics
}

func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", s.instrument("list_products", s.handleListProducts))
	mux.HandleFunc("GET /api/products/{id}", s.instrument("get_product", s.handleGetProduct))
	mux.HandleFunc("POST /api/products", s.instrument("create_product", s.requireAdmin(s.handleCreateProduct)))
	mux.HandleFunc("PUT /api/products/{id}", s.instrument("update_product", s.requireAdmin(s.handleUpdateProduct)))
	mux.HandleFunc("DELETE /api/products/{id}", s.instrument("delete_product", s.requireAdmin(s.handleDeleteProduct)))

	mux.HandleFunc("GET /api/cart", s.instrument("get_cart", s.requireUser(s.handleGetCart)))
	mux.HandleFunc("POST /api/cart/add", s.instrument("add_to_cart", s.requireUser(s.handleAddToCart)))
	mux.HandleFunc("PUT /api/cart/update", s.instrument("update_cart", s.requireUser(s.handleUpdateCart)))
	mux.HandleFunc("DELETE /api/cart/remove", s.instrument("remove_from_cart", s.requireUser(s.handleRemoveFromCart)))
	mux.HandleFunc("DELETE /api/cart/clear", s.instrument("clear_cart", s.requireUser(s.handleClearCart)))
	mux.HandleFunc("POST /api/cart/sync", s.instrument("sync_cart", s.requireUser(s.handleSyncCart)))

	mux.HandleFunc("POST /api/orders", s.instrument("checkout", s.requireUser(s.handleCheckout)))
	mux.HandleFunc("GET /api/orders", s.instrument("list_orders", s.requireUser(s.handleListOrders)))
	mux.HandleFunc("GET /api/orders/admin/all", s.instrument("admin_list_orders", s.requireAdmin(s.handleListAllOrders)))
	mux.HandleFunc("GET /api/orders/{id}", s.instrument("get_order", s.requireUser(s.handleGetOrder)))
	mux.HandleFunc("PUT /api/orders/{id}/status", s.instrument("set_order_status", s.requireAdmin(s.handleSetOrderStatus)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// instrument wraps a handler with the request counter and latency histogram.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.Metrics != nil {
			s.Metrics.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
			s.Metrics.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds onto the {"message": ...} envelope.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientStock):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		logging.Log(logging.Fields{Service: "storefront", Step: "request", Status: "internal_error", Message: err.Error()})
		writeJSON(w, code, map[string]any{"message": "internal server error"})
		return
	}
	writeJSON(w, code, map[string]any{"message": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", domain.ErrValidation)
	}
	return nil
}
