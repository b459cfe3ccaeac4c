package status

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo        Repository
	catalogOpts []CatalogOption
}

func NewServer(repo Repository, catalogOpts ...CatalogOption) *Server {
	return &Server{
		repo:        repo,
		catalogOpts: catalogOpts,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListStatuses)
	r.Post("/", s.CreateStatus)
	r.Get("/{id}", s.GetStatus)
	r.Put("/{id}", s.UpdateStatus)
	r.Delete("/{id}", s.DeleteStatus)
	r.Get("/{id}/next", s.ListNextStatuses)
}

type ListStatusesResponse struct {
	Statuses []*Status `json:"statuses"`
}

func (s *Server) ListStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog, err := LoadCatalog(ctx, s.repo, s.catalogOpts...)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &ListStatusesResponse{Statuses: catalog.Statuses()})
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, st)
}

func (s *Server) ListNextStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog, err := LoadCatalog(ctx, s.repo, s.catalogOpts...)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	next := catalog.AllowedNextStatuses(chi.URLParam(r, "id"))
	if next == nil {
		next = []*Status{}
	}
	cerr.SetJSONResponse(ctx, &ListStatusesResponse{Statuses: next})
}

func (s *Server) CreateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var st Status
	if err := cerr.DecodeJSONRequest(r, &st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if st.ID == "" || st.Label == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "id and label are required", nil)
		return
	}
	st.CreatedAt = time.Now()
	if err := s.repo.Create(ctx, &st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &st)
}

func (s *Server) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var st Status
	if err := cerr.DecodeJSONRequest(r, &st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	st.ID = current.ID
	st.CreatedAt = current.CreatedAt
	if st.Label == "" {
		st.Label = current.Label
	}
	if err := s.repo.Update(ctx, &st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &st)
}

func (s *Server) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}
