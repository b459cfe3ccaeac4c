package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListClients)
	r.Post("/", s.CreateClient)
	r.Get("/{id}", s.GetClient)
	r.Put("/{id}", s.UpdateClient)
	r.Delete("/{id}", s.DeleteClient)
}

type ClientRequest struct {
	Name   string `json:"name"`
	Number string `json:"clientNumber"`
	Phone  string `json:"phone"`
}

type ListClientsResponse struct {
	Clients []*Client `json:"clients"`
	Total   int       `json:"total"`
}

func (s *Server) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ClientRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name is required", nil)
		return
	}
	now := time.Now()
	c := &Client{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Number:    req.Number,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, c)
}

func (s *Server) GetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

func (s *Server) ListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := 50, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	clients, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if clients == nil {
		clients = []*Client{}
	}
	cerr.SetJSONResponse(ctx, &ListClientsResponse{Clients: clients, Total: total})
}

func (s *Server) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req ClientRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Number != "" {
		c.Number = req.Number
	}
	if req.Phone != "" {
		c.Phone = req.Phone
	}
	c.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, c); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

func (s *Server) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}
