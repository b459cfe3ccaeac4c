package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal"
	"github.com/kazz187/taskdesk/internal/client"
	clientrepo "github.com/kazz187/taskdesk/internal/client/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/event"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/product"
	productrepo "github.com/kazz187/taskdesk/internal/product/repositoryimpl"
	pushrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/settings"
	settingsrepo "github.com/kazz187/taskdesk/internal/settings/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/status"
	statusrepo "github.com/kazz187/taskdesk/internal/status/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	userrepo "github.com/kazz187/taskdesk/internal/user/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const apiKey = "test-key"

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &config.Env{BaseEnv: config.BaseEnv{APIKey: apiKey}}
	bus := eventbus.New()
	statuses := statusrepo.NewYAMLRepository(s)
	require.NoError(t, status.EnsureDefaults(context.Background(), statuses))
	tasks := taskrepo.NewYAMLRepository(s)
	clients := clientrepo.NewYAMLRepository(s)
	settingsRepo := settingsrepo.NewYAMLRepository(s)
	templates := msgtemplate.NewEngine(settingsRepo)
	dispatcher := notification.NewDispatcher(bus, tasks, statuses, clients, settingsRepo, templates,
		notification.NewWhatsAppSender("http://127.0.0.1:0", nil))

	srv := internal.NewServer(
		env,
		status.NewServer(statuses),
		task.NewServer(task.NewEngine(tasks, statuses, s, bus)),
		msgtemplate.NewServer(templates),
		notification.NewServer(&env.NotificationEnv, pushrepo.NewYAMLRepository(s), dispatcher),
		settings.NewServer(settingsRepo, bus),
		client.NewServer(clients),
		product.NewServer(productrepo.NewYAMLRepository(s)),
		user.NewServer(userrepo.NewYAMLRepository(s)),
		event.NewServer(bus),
	)
	return srv.Handler()
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Auth(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statuses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/statuses", nil)
	req.Header.Set("X-API-Key", apiKey)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[status.ListStatusesResponse](t, rec)
	assert.Len(t, list.Statuses, len(status.DefaultStatuses()))
}

func TestServer_CommentOnSubtaskMarksParent(t *testing.T) {
	h := newHandler(t)

	rec := call(t, h, http.MethodPost, "/api/tasks", map[string]any{"title": "Catalogue", "urgency": "Urgent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	parent := decode[task.Task](t, rec)
	assert.Equal(t, status.IDPending, parent.StatusID)

	rec = call(t, h, http.MethodPost, "/api/tasks", map[string]any{"title": "Cover", "parentId": parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[task.Task](t, rec)

	rec = call(t, h, http.MethodPost, "/api/tasks/"+sub.ID+"/comments", map[string]any{"text": "logo too small"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/api/tasks/"+parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, status.IDHasComments, decode[task.Task](t, rec).StatusID)

	rec = call(t, h, http.MethodGet, "/api/tasks?main_only=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[task.ListTasksResponse](t, rec).Total)
}

func TestServer_Errors(t *testing.T) {
	h := newHandler(t)

	rec := call(t, h, http.MethodGet, "/api/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, rec)["code"])

	rec = call(t, h, http.MethodPost, "/api/tasks", map[string]any{"title": "x", "status": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func callAs(t *testing.T, h http.Handler, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set(user.ActorHeader, userID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RolePermissions(t *testing.T) {
	h := newHandler(t)

	rec := call(t, h, http.MethodPost, "/api/users", map[string]any{"username": "mona", "password": "secret1", "role": "admin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	admin := decode[user.User](t, rec)
	rec = call(t, h, http.MethodPost, "/api/users", map[string]any{"username": "sara", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	designer := decode[user.User](t, rec)
	assert.Equal(t, user.RoleDesigner, designer.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	// Catalogue writes are admin only; reads are open to every role.
	rec = callAs(t, h, designer.ID, http.MethodPost, "/api/products", map[string]any{"name": "Flyer"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = callAs(t, h, admin.ID, http.MethodPost, "/api/products", map[string]any{"name": "Flyer", "isVip": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = callAs(t, h, admin.ID, http.MethodPost, "/api/products", map[string]any{"name": "flyer ", "isVip": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = callAs(t, h, designer.ID, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[product.ListProductsResponse](t, rec).Total)

	// Every role creates tasks; only admins delete them.
	rec = callAs(t, h, designer.ID, http.MethodPost, "/api/tasks", map[string]any{"title": "Poster"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode[task.Task](t, rec)
	rec = callAs(t, h, designer.ID, http.MethodDelete, "/api/tasks/"+tk.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = callAs(t, h, admin.ID, http.MethodDelete, "/api/tasks/"+tk.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Account management.
	rec = callAs(t, h, designer.ID, http.MethodPost, "/api/users/"+admin.ID+"/toggle_active", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = callAs(t, h, admin.ID, http.MethodDelete, "/api/users/"+admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = callAs(t, h, admin.ID, http.MethodPost, "/api/users/"+designer.ID+"/toggle_active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[user.User](t, rec).IsActive)

	rec = callAs(t, h, designer.ID, http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = callAs(t, h, "ghost", http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[user.ListUsersResponse](t, rec).Total)
	rec = call(t, h, http.MethodGet, "/api/users?include_inactive=true", nil)
	assert.Equal(t, 2, decode[user.ListUsersResponse](t, rec).Total)
}
