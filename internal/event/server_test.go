package event

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/eventbus"
)

func dial(t *testing.T, bus *eventbus.Bus, query string) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	NewServer(bus).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServer_StreamsFilteredEvents(t *testing.T) {
	bus := eventbus.New()
	conn := dial(t, bus, "?types=task.created&task_id=main")
	// The server subscribes after the handshake, so keep publishing until
	// the filtered event arrives.
	go func() {
		for range 50 {
			bus.PublishNew(eventbus.TaskDeleted, "main", nil)
			bus.PublishNew(eventbus.TaskCreated, "other", nil)
			bus.PublishNew(eventbus.TaskCreated, "sub", map[string]string{eventbus.MetaParentID: "main"})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev eventbus.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, eventbus.TaskCreated, ev.Type)
	assert.Equal(t, "sub", ev.ResourceID)
	assert.Equal(t, "main", ev.Metadata[eventbus.MetaParentID])
}
