package apiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/kazz187/taskdesk/internal/task"
)

const tasksPath = "/api/tasks/"

func taskPath(id string) string {
	return fmt.Sprintf("%s%s/", tasksPath, id)
}

// The backend stores task times as Unix milliseconds.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

type remoteComment struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	IsResolved    bool            `json:"isResolved"`
	ParentComment *string         `json:"parentComment"`
	CreatedAt     int64           `json:"createdAt"`
	Replies       []remoteComment `json:"replies"`
}

func (c remoteComment) toComment() *task.Comment {
	out := &task.Comment{
		ID:         c.ID,
		Text:       c.Text,
		IsResolved: c.IsResolved,
		CreatedAt:  fromMillis(c.CreatedAt),
	}
	if c.ParentComment != nil {
		out.ParentCommentID = *c.ParentComment
	}
	for _, r := range c.Replies {
		out.Replies = append(out.Replies, r.toComment())
	}
	return out
}

type remoteAttachment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type remoteActivity struct {
	ID          string         `json:"id"`
	Timestamp   int64          `json:"timestamp"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

func activityToRemote(a *task.ActivityEntry) remoteActivity {
	out := remoteActivity{
		ID:          a.ID,
		Timestamp:   toMillis(a.Timestamp),
		Type:        string(a.Type),
		Description: a.Description,
	}
	if len(a.Details) > 0 {
		out.Details = make(map[string]any, len(a.Details))
		for k, v := range a.Details {
			out.Details[k] = v
		}
	}
	return out
}

// remoteTask is the task as the backend returns it: status and parent are
// ids, the client is embedded.
type remoteTask struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Urgency      string             `json:"urgency"`
	Status       string             `json:"status"`
	Client       *remoteClient      `json:"client"`
	Parent       *string            `json:"parent"`
	ParentIDRead *string            `json:"parentIdRead"`
	OrderIndex   int                `json:"orderIndex"`
	PrintingType string             `json:"printingType"`
	Size         string             `json:"size"`
	IsVIP        bool               `json:"isVip"`
	Deadline     *int64             `json:"deadline"`
	CreatedAt    int64              `json:"createdAt"`
	Comments     []remoteComment    `json:"comments"`
	Attachments  []remoteAttachment `json:"attachments"`
	ActivityLogs []remoteActivity   `json:"activityLogs"`
}

func (r *remoteTask) toTask() *task.Task {
	t := &task.Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Urgency:      task.Urgency(r.Urgency),
		StatusID:     r.Status,
		OrderIndex:   r.OrderIndex,
		PrintingType: task.PrintingType(r.PrintingType),
		Size:         r.Size,
		IsVIP:        r.IsVIP,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.CreatedAt),
	}
	switch {
	case r.ParentIDRead != nil:
		t.ParentID = *r.ParentIDRead
	case r.Parent != nil:
		t.ParentID = *r.Parent
	}
	if r.Client != nil {
		t.ClientID = r.Client.ID
	}
	if r.Deadline != nil {
		d := fromMillis(*r.Deadline)
		t.Deadline = &d
	}
	for _, c := range r.Comments {
		t.Comments = append(t.Comments, c.toComment())
	}
	for _, a := range r.Attachments {
		t.Attachments = append(t.Attachments, &task.Attachment{
			ID: a.ID, Name: a.Name, ContentType: a.Type, Size: a.Size, Path: a.URL, CreatedAt: a.CreatedAt,
		})
	}
	for _, a := range r.ActivityLogs {
		entry := &task.ActivityEntry{
			ID:          a.ID,
			Timestamp:   fromMillis(a.Timestamp),
			Type:        task.ActivityType(a.Type),
			Description: a.Description,
		}
		if len(a.Details) > 0 {
			entry.Details = make(map[string]string, len(a.Details))
			for k, v := range a.Details {
				entry.Details[k] = fmt.Sprint(v)
			}
		}
		t.ActivityLog = append(t.ActivityLog, entry)
		if entry.Timestamp.After(t.UpdatedAt) {
			t.UpdatedAt = entry.Timestamp
		}
	}
	return t
}

// taskWrite is the body accepted by create and update.
type taskWrite struct {
	ID               string           `json:"id,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Urgency          string           `json:"urgency"`
	StatusID         string           `json:"statusId,omitempty"`
	ClientID         *string          `json:"clientId,omitempty"`
	ParentID         *string          `json:"parentId"`
	OrderIndex       int              `json:"orderIndex"`
	PrintingType     string           `json:"printingType,omitempty"`
	Size             string           `json:"size"`
	IsVIP            bool             `json:"isVip"`
	Deadline         *int64           `json:"deadline"`
	CreatedAt        int64            `json:"createdAt,omitempty"`
	ActivityLogsData []remoteActivity `json:"activityLogsData,omitempty"`
}

func newTaskWrite(t *task.Task) *taskWrite {
	w := &taskWrite{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Urgency:      string(t.Urgency),
		StatusID:     t.StatusID,
		OrderIndex:   t.OrderIndex,
		PrintingType: string(t.PrintingType),
		Size:         t.Size,
		IsVIP:        t.IsVIP,
		CreatedAt:    toMillis(t.CreatedAt),
	}
	if t.ClientID != "" {
		w.ClientID = &t.ClientID
	}
	if t.ParentID != "" {
		w.ParentID = &t.ParentID
	}
	if t.Deadline != nil {
		ms := toMillis(*t.Deadline)
		w.Deadline = &ms
	}
	return w
}

// TaskRepository implements task.Repository over the REST backend. Comments
// and attachments are read back from the backend but only activity entries
// are written through it.
type TaskRepository struct {
	client *Client
}

var _ task.Repository = (*TaskRepository)(nil)

func NewTaskRepository(c *Client) *TaskRepository {
	return &TaskRepository{client: c}
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	w := newTaskWrite(t)
	for _, a := range t.ActivityLog {
		w.ActivityLogsData = append(w.ActivityLogsData, activityToRemote(a))
	}
	return r.client.Post(ctx, tasksPath, w, nil)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	var rt remoteTask
	if err := r.client.Get(ctx, taskPath(id), &rt); err != nil {
		return nil, err
	}
	return rt.toTask(), nil
}

func (r *TaskRepository) List(ctx context.Context) ([]*task.Task, error) {
	items, err := FetchAllPages[remoteTask](ctx, r.client, tasksPath)
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(items))
	for i := range items {
		tasks = append(tasks, items[i].toTask())
	}
	return tasks, nil
}

// Update writes the scalar fields of t and appends activity entries the
// backend does not know yet.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	w := newTaskWrite(t)
	w.ID = ""
	w.CreatedAt = 0

	current, err := r.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(current.ActivityLog))
	for _, a := range current.ActivityLog {
		known[a.ID] = true
	}
	for _, a := range t.ActivityLog {
		if !known[a.ID] {
			w.ActivityLogsData = append(w.ActivityLogsData, activityToRemote(a))
		}
	}
	return r.client.Patch(ctx, taskPath(t.ID), w, nil)
}

// UpdateStatus uses the backend's status action, which also records the
// statusChange activity entry.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id, statusID string) (*task.Task, error) {
	var rt remoteTask
	if err := r.client.Post(ctx, taskPath(id)+"update_status/", map[string]string{"statusId": statusID}, &rt); err != nil {
		return nil, err
	}
	return rt.toTask(), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, taskPath(id))
}
