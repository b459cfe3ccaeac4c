package internal

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/product"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

type Server struct {
	server             *http.Server
	env                *config.Env
	statusServer       *status.Server
	taskServer         *task.Server
	templateServer     *msgtemplate.Server
	notificationServer *notification.Server
	settingsServer     *settings.Server
	clientServer       *client.Server
	productServer      *product.Server
	userServer         *user.Server
	eventServer        *event.Server
}

func NewServer(
	env *config.Env,
	statusServer *status.Server,
	taskServer *task.Server,
	templateServer *msgtemplate.Server,
	notificationServer *notification.Server,
	settingsServer *settings.Server,
	clientServer *client.Server,
	productServer *product.Server,
	userServer *user.Server,
	eventServer *event.Server,
) *Server {
	return &Server{
		env:                env,
		statusServer:       statusServer,
		taskServer:         taskServer,
		templateServer:     templateServer,
		notificationServer: notificationServer,
		settingsServer:     settingsServer,
		clientServer:       clientServer,
		productServer:      productServer,
		userServer:         userServer,
		eventServer:        eventServer,
	}
}

// Handler builds the full HTTP handler: JSON API under /api, health checks,
// CORS and API key authentication. Requests naming a staff account in
// X-User-ID are checked against that account's role.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(clog.WithChiFilter(clog.HealthCheckFilter)),
			cerr.NewConvertErrorChiMiddleware(),
			s.userServer.ActorMiddleware(),
		)
		r.Route("/statuses", s.statusServer.Routes)
		r.Route("/tasks", s.taskServer.Routes)
		r.Route("/templates", s.templateServer.Routes)
		r.Route("/push", s.notificationServer.Routes)
		r.Route("/settings", s.settingsServer.Routes)
		r.Route("/clients", s.clientServer.Routes)
		r.Route("/products", s.productServer.Routes)
		r.Route("/users", s.userServer.Routes)
		r.Route("/events", s.eventServer.Routes)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux))
}

// ListenAndServe starts the HTTP server. ctx is the base context of every
// request, so cancelling it also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for health endpoints and CORS preflight.
		if r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		// Browsers cannot set headers on websocket handshakes.
		if apiKey == "" && strings.HasPrefix(r.URL.Path, "/api/events/") {
			apiKey = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.env.APIKey)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
