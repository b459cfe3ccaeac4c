package event

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kazz187/taskdesk/internal/eventbus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Server streams bus events to websocket clients as JSON messages.
type Server struct {
	eventBus *eventbus.Bus
	upgrader websocket.Upgrader
}

func NewServer(eventBus *eventbus.Bus) *Server {
	return &Server{
		eventBus: eventBus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/ws", s.subscribe)
}

// subscribe upgrades the request and forwards events until the client goes
// away. ?types=a,b limits the stream to those event types and ?task_id=x to
// events about task x or its subtasks.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	typeFilter := map[eventbus.EventType]struct{}{}
	for _, raw := range r.URL.Query()["types"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				typeFilter[eventbus.EventType(t)] = struct{}{}
			}
		}
	}
	taskID := r.URL.Query().Get("task_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ch := s.eventBus.Subscribe(64)
	defer s.eventBus.Unsubscribe(subID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if len(typeFilter) > 0 {
				if _, match := typeFilter[ev.Type]; !match {
					continue
				}
			}
			if taskID != "" && ev.ResourceID != taskID && ev.Metadata[eventbus.MetaParentID] != taskID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.DebugContext(r.Context(), "websocket write failed", "error", err)
				return
			}
		}
	}
}
