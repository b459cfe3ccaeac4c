package product

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

// Routes serves the catalogue to every caller; writes are admin only.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListProducts)
	r.Get("/{id}", s.GetProduct)
	r.Group(func(r chi.Router) {
		r.Use(user.RequireMiddleware(user.AdminOnly))
		r.Post("/", s.CreateProduct)
		r.Put("/{id}", s.UpdateProduct)
		r.Patch("/{id}", s.UpdateProduct)
		r.Delete("/{id}", s.DeleteProduct)
	})
}

type ProductRequest struct {
	Name  *string `json:"name"`
	IsVIP *bool   `json:"isVip"`
}

type ListProductsResponse struct {
	Products []*Product `json:"products"`
	Total    int        `json:"total"`
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if v := r.URL.Query().Get("is_vip"); v != "" {
		vip := v == "true" || v == "1"
		filtered := products[:0]
		for _, p := range products {
			if p.IsVIP == vip {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	if products == nil {
		products = []*Product{}
	}
	cerr.SetJSONResponse(ctx, &ListProductsResponse{Products: products, Total: len(products)})
}

func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ProductRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name is required", nil)
		return
	}
	now := time.Now()
	p := &Product{
		ID:        ulid.Make().String(),
		Name:      strings.TrimSpace(*req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsVIP != nil {
		p.IsVIP = *req.IsVIP
	}
	if err := s.repo.Create(ctx, p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, p)
}

func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req ProductRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name must not be empty", nil)
			return
		}
		p.Name = name
	}
	if req.IsVIP != nil {
		p.IsVIP = *req.IsVIP
	}
	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, p)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}
