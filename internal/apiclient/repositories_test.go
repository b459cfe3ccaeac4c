package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/internal/product"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const remoteSubtask = `{
  "id": "t2", "title": "Cover", "description": "", "urgency": "Urgent",
  "status": "in_design", "client": null, "parent": "t1", "parentIdRead": "t1",
  "orderIndex": 2, "printingType": "Digital", "size": "A4", "isVip": false,
  "deadline": 1767225600000, "createdAt": 1764547200000,
  "comments": [{"id": "c1", "text": "bigger", "isResolved": false, "parentComment": null, "createdAt": 1764547300000,
    "replies": [{"id": "c2", "text": "ok", "isResolved": false, "parentComment": "c1", "createdAt": 1764547400000, "replies": []}]}],
  "attachments": [{"id": "a1", "name": "proof.pdf", "type": "application/pdf", "url": "/media/proof.pdf", "size": 42, "createdAt": "2025-12-01T00:00:00Z"}],
  "activityLogs": [{"id": "l1", "timestamp": 1764547500000, "type": "statusChange", "description": "x", "details": {"newStatus": "in_design", "n": 3}}]
}`

func TestTaskRepository(t *testing.T) {
	var statusBody map[string]string
	var patched map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks/":
			w.Write([]byte(`{"results": [` + remoteSubtask + `], "next": null}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks/t2/":
			w.Write([]byte(remoteSubtask))
		case r.Method == http.MethodPost && r.URL.Path == "/api/tasks/t2/update_status/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&statusBody))
			w.Write([]byte(remoteSubtask))
		case r.Method == http.MethodPatch && r.URL.Path == "/api/tasks/t2/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.Write([]byte(remoteSubtask))
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
	})
	c, _, _ := newTestClient(t, mux)
	repo := NewTaskRepository(c)
	ctx := context.Background()

	got, err := repo.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "in_design", got.StatusID)
	assert.Equal(t, "t1", got.ParentID)
	assert.True(t, got.IsSubtask())
	assert.Equal(t, task.UrgencyUrgent, got.Urgency)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got.Deadline.UTC())
	require.Len(t, got.Comments, 1)
	require.Len(t, got.Comments[0].Replies, 1)
	assert.Equal(t, "c1", got.Comments[0].Replies[0].ParentCommentID)
	assert.Equal(t, 2, got.CommentCount())
	assert.Equal(t, "application/pdf", got.Attachments[0].ContentType)
	assert.Equal(t, map[string]string{"newStatus": "in_design", "n": "3"}, got.ActivityLog[0].Details)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.UpdateStatus(ctx, "t2", "design_completed")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"statusId": "design_completed"}, statusBody)

	got.Title = "Cover v2"
	got.ActivityLog = append(got.ActivityLog, &task.ActivityEntry{ID: "l2", Type: task.ActivityTaskUpdated, Timestamp: time.Now()})
	require.NoError(t, repo.Update(ctx, got))
	assert.Equal(t, "Cover v2", patched["title"])
	assert.Equal(t, "t1", patched["parentId"])
	assert.NotContains(t, patched, "id")
	logs := patched["activityLogsData"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "l2", logs[0].(map[string]any)["id"])

	_, err = repo.Get(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestClientRepository(t *testing.T) {
	var created map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clients/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			writeJSON(w, http.StatusBadRequest, map[string][]string{"number": {"client with this number must be unique."}})
			return
		}
		w.Write([]byte(`[{"id":"c2","name":"Zeta","number":"Z-1"},{"id":"c1","name":"Alpha","number":"A-1"}]`))
	})
	c, _, _ := newTestClient(t, mux)
	repo := NewClientRepository(c)
	ctx := context.Background()

	found, err := repo.FindByNumber(ctx, "Z-1")
	require.NoError(t, err)
	assert.Equal(t, "c2", found.ID)

	_, err = repo.FindByNumber(ctx, "nope")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	page, total, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Alpha", page[0].Name)

	err = repo.Create(ctx, &client.Client{ID: "c3", Name: "Nile", Number: "A-1"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
	assert.Equal(t, "A-1", created["number"])
}

func TestProductRepository(t *testing.T) {
	var base string
	var posted, put map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/products/" && r.URL.Query().Get("page") == "":
			writeJSON(w, http.StatusOK, map[string]any{
				"results": []map[string]any{{"id": "p2", "name": "Poster", "isVip": false, "createdAt": "2026-01-02T00:00:00Z"}},
				"next":    base + "/api/products/?page=2",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/products/":
			writeJSON(w, http.StatusOK, map[string]any{
				"results": []map[string]any{{"id": "p1", "name": "Flyer", "isVip": true, "createdAt": "2026-01-01T00:00:00Z"}},
				"next":    nil,
			})
		case r.Method == http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			if posted["name"] == "Flyer" {
				writeJSON(w, http.StatusBadRequest, map[string][]string{
					"non_field_errors": {"The fields name, is_vip must make a unique set."},
				})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": "p9", "name": posted["name"], "isVip": posted["isVip"], "createdAt": "2026-02-01T00:00:00Z"})
		case r.Method == http.MethodPut && r.URL.Path == "/api/products/p9/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			writeJSON(w, http.StatusOK, put)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/products/p9/":
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
	})
	c, _, srv := newTestClient(t, mux)
	base = srv.URL
	repo := NewProductRepository(c)
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Flyer", all[0].Name)
	assert.True(t, all[0].IsVIP)
	assert.Equal(t, "Poster", all[1].Name)

	err = repo.Create(ctx, &product.Product{ID: "local", Name: "Flyer", IsVIP: true})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))
	assert.Equal(t, true, posted["isVip"])

	p := &product.Product{ID: "local", Name: "Banner"}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, "p9", p.ID)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p.CreatedAt.UTC())

	p.IsVIP = true
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, map[string]any{"name": "Banner", "isVip": true}, put)
	require.NoError(t, repo.Delete(ctx, "p9"))

	_, err = repo.Get(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestUserRepository(t *testing.T) {
	var posted, patched map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/users/":
			w.Write([]byte(`[
  {"id": 1, "username": "mona", "email": "", "first_name": "Mona", "last_name": "", "is_active": true,
   "date_joined": "2026-01-01T00:00:00Z", "role": "admin", "phone_number": "+201000000001"},
  {"id": 2, "username": "sara", "email": "", "first_name": "", "last_name": "", "is_active": true,
   "date_joined": "2026-02-01T00:00:00Z", "role": "designer", "phone_number": null}
]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/users/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			if posted["username"] == "mona" {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": 7, "username": posted["username"], "role": posted["role"],
				"is_active": true, "date_joined": "2026-03-01T00:00:00Z"})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/users/7/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			writeJSON(w, http.StatusOK, patched)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
	})
	c, _, _ := newTestClient(t, mux)
	repo := NewUserRepository(c)
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)
	assert.Equal(t, user.RoleDesigner, all[0].Role)
	assert.Empty(t, all[0].PhoneNumber)

	mona, err := repo.FindByUsername(ctx, "Mona")
	require.NoError(t, err)
	assert.Equal(t, "1", mona.ID)
	assert.Equal(t, user.RoleAdmin, mona.Role)

	err = repo.Create(ctx, &user.User{Username: "mona", Role: user.RoleAdmin}, "secret1")
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	u := &user.User{ID: "local", Username: "omar", Role: user.RolePrintManager, IsActive: true}
	require.NoError(t, repo.Create(ctx, u, "secret1"))
	assert.Equal(t, "secret1", posted["password"])
	assert.Equal(t, "print_manager", posted["role"])
	assert.Equal(t, "7", u.ID)

	u.IsActive = false
	require.NoError(t, repo.Update(ctx, u, ""))
	assert.Equal(t, false, patched["is_active"])
	assert.NotContains(t, patched, "password")
}
