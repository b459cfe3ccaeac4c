package user

import (
	"context"
	"net/http"

	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

// ActorHeader names the staff account a request acts for. Requests without it
// run as the API key holder, which may do everything.
const ActorHeader = "X-User-ID"

type actorKey struct{}

func WithActor(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, actorKey{}, u)
}

func ActorFrom(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(actorKey{}).(*User)
	return u, ok && u != nil
}

// Permission decides whether a role may perform an action.
type Permission func(Role) bool

var (
	// AdminOnly guards writes to catalogue and account data.
	AdminOnly Permission = func(r Role) bool { return r == RoleAdmin }
	// CanCreateTask lets every staff role create and edit tasks.
	CanCreateTask Permission = func(r Role) bool { return r.Valid() }
	// CanDeleteTask keeps task deletion to admins.
	CanDeleteTask Permission = AdminOnly
)

// Require returns PermissionDenied when ctx acts for a user whose role lacks p.
func Require(ctx context.Context, p Permission) error {
	u, ok := ActorFrom(ctx)
	if !ok {
		return nil
	}
	if !p(u.Role) {
		return cerr.NewError(cerr.PermissionDenied, "you do not have permission to perform this action", nil)
	}
	return nil
}

// ActorMiddleware resolves ActorHeader against repo. Unknown or inactive
// accounts are rejected, as are accounts with no staff role.
func ActorMiddleware(repo Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(ActorHeader)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			u, err := repo.Get(ctx, id)
			if err != nil {
				if cerr.IsCode(err, cerr.NotFound) {
					cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "unknown user", nil)
					return
				}
				cerr.SetJSONError(ctx, err)
				return
			}
			if !u.IsActive {
				cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "user account is disabled", nil)
				return
			}
			if !u.Role.Valid() {
				cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "user has no valid role", nil)
				return
			}
			clog.AddAttribute(ctx, "user_id", u.ID)
			next.ServeHTTP(w, r.WithContext(WithActor(ctx, u)))
		})
	}
}

// RequireMiddleware rejects requests whose actor lacks p.
func RequireMiddleware(p Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Require(r.Context(), p); err != nil {
				cerr.SetJSONError(r.Context(), err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
