package notification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	env        *config.NotificationEnv
	repo       pushsubscription.Repository
	dispatcher *Dispatcher
}

func NewServer(env *config.NotificationEnv, repo pushsubscription.Repository, dispatcher *Dispatcher) *Server {
	return &Server{
		env:        env,
		repo:       repo,
		dispatcher: dispatcher,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/vapid-public-key", s.GetVapidPublicKey)
	r.Post("/subscriptions", s.RegisterPushSubscription)
	r.Delete("/subscriptions", s.UnregisterPushSubscription)
	r.Post("/test", s.SendTestNotification)
}

type VapidPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

func (s *Server) GetVapidPublicKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.env.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(ctx, &VapidPublicKeyResponse{PublicKey: s.env.VAPIDPublicKey})
}

type SubscriptionRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh"`
	AuthKey   string `json:"auth"`
	Group     string `json:"group"`
}

func validGroup(g settings.Group) bool {
	switch g {
	case settings.GroupManagement, settings.GroupDesigner, settings.GroupPrintManager:
		return true
	}
	return false
}

func (s *Server) RegisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SubscriptionRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	switch {
	case req.Endpoint == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	case req.P256dhKey == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "p256dh is required", nil)
		return
	case req.AuthKey == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "auth is required", nil)
		return
	case !validGroup(settings.Group(req.Group)):
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "group must be management, designer or print_manager", nil)
		return
	}

	sub := &pushsubscription.Subscription{
		ID:        pushsubscription.IDFor(req.Endpoint),
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		Group:     req.Group,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, sub)
}

func (s *Server) UnregisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SubscriptionRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	if err := s.repo.DeleteByEndpoint(ctx, req.Endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

type TestNotificationRequest struct {
	Message string           `json:"message"`
	Groups  []settings.Group `json:"groups"`
}

type TestOutcome struct {
	Recipient string         `json:"recipient"`
	Group     settings.Group `json:"group"`
	Channel   string         `json:"channel"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

type TestNotificationResponse struct {
	Results []TestOutcome `json:"results"`
}

const defaultTestMessage = "🔔 رسالة تجريبية من نظام المهام"

func (s *Server) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req TestNotificationRequest
	if err := cerr.DecodeJSONRequest(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	for _, g := range req.Groups {
		if !validGroup(g) {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown group "+string(g), nil)
			return
		}
	}
	if req.Message == "" {
		req.Message = defaultTestMessage
	}
	outcomes, err := s.dispatcher.SendTest(ctx, req.Message, req.Groups...)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	resp := &TestNotificationResponse{Results: make([]TestOutcome, 0, len(outcomes))}
	for _, o := range outcomes {
		res := TestOutcome{Recipient: o.Recipient, Group: o.Group, Channel: o.Channel, Success: o.Err == nil}
		if o.Err != nil {
			res.Error = o.Err.Error()
		}
		resp.Results = append(resp.Results, res)
	}
	cerr.SetJSONResponse(ctx, resp)
}
