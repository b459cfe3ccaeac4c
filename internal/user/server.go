package user

import (
	"context"
	"fmt"
	"net/http"
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

// ActorMiddleware attaches the acting account to every request.
func (s *Server) ActorMiddleware() func(http.Handler) http.Handler {
	return ActorMiddleware(s.repo)
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListUsers)
	r.Get("/{id}", s.GetUser)
	r.Group(func(r chi.Router) {
		r.Use(RequireMiddleware(AdminOnly))
		r.Post("/", s.CreateUser)
		r.Put("/{id}", s.UpdateUser)
		r.Patch("/{id}", s.UpdateUser)
		r.Delete("/{id}", s.DeleteUser)
		r.Post("/{id}/toggle_active", s.ToggleActive)
	})
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        Role   `json:"role"`
	PhoneNumber string `json:"phoneNumber"`
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Role        *Role   `json:"role"`
	PhoneNumber *string `json:"phoneNumber"`
	IsActive    *bool   `json:"isActive"`
}

type ListUsersResponse struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("password must be at least %d characters", MinPasswordLength), nil)
	}
	return nil
}

func validateRole(r Role) error {
	if !r.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown role %q", r), nil)
	}
	return nil
}

// ListUsers returns active accounts, newest first. include_inactive=true
// lists deactivated ones too.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	users := []*User{}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	for _, u := range all {
		if u.IsActive || includeInactive {
			users = append(users, u)
		}
	}
	cerr.SetJSONResponse(ctx, &ListUsersResponse{Users: users, Total: len(users)})
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, u)
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateUserRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "username is required", nil)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Role == "" {
		req.Role = RoleDesigner
	}
	if err := validateRole(req.Role); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	now := time.Now()
	u := &User{
		ID:          ulid.Make().String(),
		Username:    strings.TrimSpace(req.Username),
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
		DateJoined:  now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, u, req.Password); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, u)
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req UpdateUserRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	password, err := applyUpdate(u, &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, u, password); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, u)
}

// applyUpdate copies the set fields of req onto u and returns the new
// password, if one was given.
func applyUpdate(u *User, req *UpdateUserRequest) (string, error) {
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return "", cerr.NewError(cerr.InvalidArgument, "username must not be empty", nil)
		}
		u.Username = name
	}
	if req.Role != nil {
		if err := validateRole(*req.Role); err != nil {
			return "", err
		}
		u.Role = *req.Role
	}
	var password string
	if req.Password != nil && *req.Password != "" {
		if err := validatePassword(*req.Password); err != nil {
			return "", err
		}
		password = *req.Password
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	return password, nil
}

// DeleteUser deactivates the account instead of removing it.
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.otherUser(ctx, chi.URLParam(r, "id"), "cannot delete your own account")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	u.IsActive = false
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, u, ""); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

func (s *Server) ToggleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.otherUser(ctx, chi.URLParam(r, "id"), "cannot toggle your own account status")
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	u.IsActive = !u.IsActive
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, u, ""); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, u)
}

// otherUser loads id and refuses when it is the acting account.
func (s *Server) otherUser(ctx context.Context, id, selfMsg string) (*User, error) {
	if actor, ok := ActorFrom(ctx); ok && actor.ID == id {
		return nil, cerr.NewError(cerr.InvalidArgument, selfMsg, nil)
	}
	return s.repo.Get(ctx, id)
}
