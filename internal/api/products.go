package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/internal/store"
)

type productListResponse struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Search:   q.Get("search"),
		Category: domain.Category(q.Get("category")),
		Size:     domain.Size(q.Get("size")),
		Featured: q.Get("featured") == "true",
	}
	if v := q.Get("minPrice"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("invalid minPrice: %w", domain.ErrValidation))
			return
		}
		f.MinPrice = &n
	}
	if v := q.Get("maxPrice"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("invalid maxPrice: %w", domain.ErrValidation))
			return
		}
		f.MaxPrice = &n
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = store.DefaultPageSize
	}

	products, total, err := s.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	pages := (total + f.Limit - 1) / f.Limit
	writeJSON(w, http.StatusOK, productListResponse{Products: products, Page: f.Page, Pages: pages, Total: total})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.Catalog.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Image       string          `json:"image"`
	Category    domain.Category `json:"category"`
	Sizes       []domain.Size   `json:"sizes"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Description == "" || req.Price <= 0 || req.Image == "" || len(req.Sizes) == 0 {
		writeError(w, fmt.Errorf("please provide all required fields: %w", domain.ErrValidation))
		return
	}
	if !domain.ValidCategory(req.Category) {
		writeError(w, fmt.Errorf("invalid category: %w", domain.ErrValidation))
		return
	}
	for _, size := range req.Sizes {
		if !domain.ValidSize(size) {
			writeError(w, fmt.Errorf("invalid size %q: %w", size, domain.ErrValidation))
			return
		}
	}
	if req.Stock < 0 {
		writeError(w, fmt.Errorf("stock must not be negative: %w", domain.ErrValidation))
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Sizes:       req.Sizes,
		Stock:       req.Stock,
		Featured:    req.Featured,
	}
	if err := s.Catalog.Create(r.Context(), product); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *int64           `json:"price"`
	Image       *string          `json:"image"`
	Category    *domain.Category `json:"category"`
	Sizes       []domain.Size    `json:"sizes"`
	Stock       *int             `json:"stock"`
	Featured    *bool            `json:"featured"`
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Category != nil && !domain.ValidCategory(*req.Category) {
		writeError(w, fmt.Errorf("invalid category: %w", domain.ErrValidation))
		return
	}
	for _, size := range req.Sizes {
		if !domain.ValidSize(size) {
			writeError(w, fmt.Errorf("invalid size %q: %w", size, domain.ErrValidation))
			return
		}
	}

	product, err := s.Catalog.Update(r.Context(), r.PathValue("id"), store.Patch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Sizes:       req.Sizes,
		Stock:       req.Stock,
		Featured:    req.Featured,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product deleted successfully"})
}
