package settings

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{repo: repo, eventBus: eventBus}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.GetSettings)
	r.Put("/", s.SaveSettings)
}

func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := s.repo.Get(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, st)
}

// SaveSettings replaces the whole document.
func (s *Server) SaveSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := Default()
	if err := cerr.DecodeJSONRequest(r, st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	for _, rc := range st.WhatsAppNumbers {
		switch rc.Group {
		case GroupManagement, GroupDesigner, GroupPrintManager:
		default:
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown recipient group "+string(rc.Group), nil)
			return
		}
	}
	st.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, st); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.eventBus.PublishNew(eventbus.SettingsUpdated, "settings", nil)
	cerr.SetJSONResponse(ctx, st)
}
