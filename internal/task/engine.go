package task

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

// Engine owns every rule-bearing task mutation: status changes with parent
// inheritance, comments, attachments and ordering. It publishes one event per
// observable change.
type Engine struct {
	repo        Repository
	statusRepo  status.Repository
	files       storage.Storage
	bus         *eventbus.Bus
	catalogOpts []status.CatalogOption

	attachmentPatterns []string
	maxAttachmentSize  int64

	mu sync.Mutex
}

type EngineOption func(*Engine)

func WithCatalogOptions(opts ...status.CatalogOption) EngineOption {
	return func(e *Engine) { e.catalogOpts = append(e.catalogOpts, opts...) }
}

// WithAttachmentPatterns replaces the glob patterns attachment names must match.
func WithAttachmentPatterns(patterns ...string) EngineOption {
	return func(e *Engine) { e.attachmentPatterns = patterns }
}

func WithMaxAttachmentSize(n int64) EngineOption {
	return func(e *Engine) { e.maxAttachmentSize = n }
}

func NewEngine(repo Repository, statusRepo status.Repository, files storage.Storage, bus *eventbus.Bus, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:               repo,
		statusRepo:         statusRepo,
		files:              files,
		bus:                bus,
		attachmentPatterns: DefaultAttachmentPatterns,
		maxAttachmentSize:  DefaultMaxAttachmentSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Catalog(ctx context.Context) (*status.Catalog, error) {
	return status.LoadCatalog(ctx, e.statusRepo, e.catalogOpts...)
}

func (e *Engine) Get(ctx context.Context, id string) (*Task, error) {
	return e.repo.Get(ctx, id)
}

// List returns every task narrowed by f.
func (e *Engine) List(ctx context.Context, f Filters, now time.Time) ([]*Task, error) {
	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(all, f, catalog, now), nil
}

// getTask is repo.Get with absence reported as an explicit NotFound.
func (e *Engine) getTask(ctx context.Context, id string) (*Task, error) {
	t, err := e.repo.Get(ctx, id)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return nil, cerr.NewError(cerr.NotFound, "task not found", err)
		}
		return nil, err
	}
	return t, nil
}

// UpdateStatus moves a task to statusID and, for a subtask, recomputes its
// parent's status from all siblings. Setting the current status again is
// persisted and still recomputes the parent.
func (e *Engine) UpdateStatus(ctx context.Context, taskID, statusID string) (*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateStatus(ctx, taskID, statusID)
}

func (e *Engine) updateStatus(ctx context.Context, taskID, statusID string) (*Task, error) {
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := catalog.Find(statusID); !ok {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown status %q", statusID), nil)
	}
	current, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	oldStatus := current.StatusID

	updated, err := e.repo.UpdateStatus(ctx, taskID, statusID)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "task status updated", "task_id", taskID, "from", oldStatus, "to", statusID)
	e.publishStatusChange(ctx, updated, oldStatus, false)

	if updated.IsSubtask() {
		if err := e.recomputeParent(ctx, catalog, updated.ParentID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// DeriveParentStatus picks the status a main task inherits from its subtasks:
// the has-comments status if any subtask is in it, otherwise the earliest
// status by OrderIndex with ties broken by catalog order. Subtasks in unknown
// statuses are ignored; ok is false when nothing could be derived.
func DeriveParentStatus(catalog *status.Catalog, subtasks []*Task) (string, bool) {
	var (
		best    *status.Status
		bestPos int
	)
	for _, t := range subtasks {
		if t.StatusID == catalog.HasCommentsID() {
			return t.StatusID, true
		}
		s, ok := catalog.Find(t.StatusID)
		if !ok {
			continue
		}
		pos := catalog.Position(s.ID)
		if best == nil || s.OrderIndex < best.OrderIndex || (s.OrderIndex == best.OrderIndex && pos < bestPos) {
			best, bestPos = s, pos
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

func (e *Engine) recomputeParent(ctx context.Context, catalog *status.Catalog, parentID string) error {
	all, err := e.repo.List(ctx)
	if err != nil {
		return err
	}
	derived, ok := DeriveParentStatus(catalog, SubtasksOf(all, parentID))
	if !ok {
		return nil
	}
	parent, err := e.repo.Get(ctx, parentID)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			slog.WarnContext(ctx, "parent task missing, skipping status inheritance", "parent_id", parentID)
			return nil
		}
		return err
	}
	oldStatus := parent.StatusID
	parent.StatusID = derived
	parent.UpdatedAt = time.Now()
	if err := e.repo.Update(ctx, parent); err != nil {
		return err
	}
	if oldStatus != derived {
		slog.DebugContext(ctx, "parent status inherited", "task_id", parentID, "from", oldStatus, "to", derived)
		e.publishStatusChange(ctx, parent, oldStatus, true)
	}
	return nil
}

// publish stamps meta with the acting account, if any, so notifications can
// skip the person who caused the change.
func (e *Engine) publish(ctx context.Context, typ eventbus.EventType, taskID string, meta map[string]string) {
	if u, ok := user.ActorFrom(ctx); ok {
		meta[eventbus.MetaActorID] = u.ID
		if u.PhoneNumber != "" {
			meta[eventbus.MetaActorPhone] = u.PhoneNumber
		}
	}
	e.bus.PublishNew(typ, taskID, meta)
}

func (e *Engine) publishStatusChange(ctx context.Context, t *Task, oldStatus string, inherited bool) {
	meta := map[string]string{
		eventbus.MetaParentID:  t.ParentID,
		eventbus.MetaOldStatus: oldStatus,
		eventbus.MetaNewStatus: t.StatusID,
	}
	if inherited {
		meta[eventbus.MetaInherited] = "true"
	}
	e.publish(ctx, eventbus.TaskStatusChanged, t.ID, meta)
}

type CreateInput struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Urgency      Urgency      `json:"urgency"`
	StatusID     string       `json:"status"`
	ParentID     string       `json:"parentId"`
	ClientID     string       `json:"clientId"`
	PrintingType PrintingType `json:"printingType"`
	Size         string       `json:"size"`
	IsVIP        bool         `json:"isVip"`
	Deadline     *time.Time   `json:"deadline"`
}

func (e *Engine) Create(ctx context.Context, in CreateInput) (*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(in.Title) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if in.Urgency == "" {
		in.Urgency = UrgencyNormal
	}
	if !in.Urgency.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid urgency %q", in.Urgency), nil)
	}

	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	statusID := in.StatusID
	if statusID == "" {
		def, ok := catalog.Default()
		if !ok {
			return nil, cerr.NewError(cerr.FailedPrecondition, "status catalog is empty", nil)
		}
		statusID = def.ID
	} else if _, ok := catalog.Find(statusID); !ok {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown status %q", statusID), nil)
	}

	clientID := in.ClientID
	if in.ParentID != "" {
		parent, err := e.repo.Get(ctx, in.ParentID)
		if err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return nil, cerr.NewError(cerr.InvalidArgument, "parent task not found", err)
			}
			return nil, err
		}
		if parent.IsSubtask() {
			return nil, cerr.NewError(cerr.InvalidArgument, "subtasks cannot have subtasks", nil)
		}
		if clientID == "" {
			clientID = parent.ClientID
		}
	}

	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	orderIndex := 0
	for _, s := range SubtasksOf(all, in.ParentID) {
		if s.OrderIndex >= orderIndex {
			orderIndex = s.OrderIndex + 1
		}
	}

	now := time.Now()
	t := &Task{
		ID:           ulid.Make().String(),
		Title:        in.Title,
		Description:  in.Description,
		Urgency:      in.Urgency,
		StatusID:     statusID,
		ParentID:     in.ParentID,
		ClientID:     clientID,
		OrderIndex:   orderIndex,
		PrintingType: in.PrintingType,
		Size:         in.Size,
		IsVIP:        in.IsVIP,
		Deadline:     in.Deadline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	e.publish(ctx, eventbus.TaskCreated, t.ID, map[string]string{eventbus.MetaParentID: t.ParentID})

	if t.IsSubtask() {
		if err := e.recomputeParent(ctx, catalog, t.ParentID); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Patch carries the fields of an update; nil fields are left untouched.
type Patch struct {
	Title         *string       `json:"title"`
	Description   *string       `json:"description"`
	Urgency       *Urgency      `json:"urgency"`
	ClientID      *string       `json:"clientId"`
	PrintingType  *PrintingType `json:"printingType"`
	Size          *string       `json:"size"`
	IsVIP         *bool         `json:"isVip"`
	Deadline      *time.Time    `json:"deadline"`
	ClearDeadline bool          `json:"clearDeadline"`
}

func (e *Engine) Update(ctx context.Context, id string, p Patch) (*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	details := map[string]string{}
	if p.Title != nil && *p.Title != t.Title {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
		}
		t.Title = *p.Title
		changed = append(changed, "title")
	}
	if p.Description != nil && *p.Description != t.Description {
		details["description_diff"] = descriptionDiff(t.Description, *p.Description)
		t.Description = *p.Description
		changed = append(changed, "description")
	}
	if p.Urgency != nil && *p.Urgency != t.Urgency {
		if !p.Urgency.Valid() {
			return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid urgency %q", *p.Urgency), nil)
		}
		t.Urgency = *p.Urgency
		changed = append(changed, "urgency")
	}
	if p.ClientID != nil && *p.ClientID != t.ClientID {
		t.ClientID = *p.ClientID
		changed = append(changed, "client")
	}
	specsChanged := false
	if p.PrintingType != nil && *p.PrintingType != t.PrintingType {
		t.PrintingType = *p.PrintingType
		changed = append(changed, "printing_type")
		specsChanged = true
	}
	if p.Size != nil && *p.Size != t.Size {
		t.Size = *p.Size
		changed = append(changed, "size")
		specsChanged = true
	}
	if p.IsVIP != nil && *p.IsVIP != t.IsVIP {
		t.IsVIP = *p.IsVIP
		changed = append(changed, "is_vip")
	}
	switch {
	case p.ClearDeadline && t.Deadline != nil:
		t.Deadline = nil
		changed = append(changed, "deadline")
	case p.Deadline != nil && (t.Deadline == nil || !p.Deadline.Equal(*t.Deadline)):
		d := *p.Deadline
		t.Deadline = &d
		changed = append(changed, "deadline")
	}
	if len(changed) == 0 {
		return t, nil
	}

	now := time.Now()
	details["fields"] = strings.Join(changed, ",")
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityTaskUpdated, "updated "+strings.Join(changed, ", "), details))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	eventType := eventbus.TaskUpdated
	if t.IsSubtask() && specsChanged {
		eventType = eventbus.TaskSpecsUpdated
	}
	e.publish(ctx, eventType, t.ID, map[string]string{eventbus.MetaParentID: t.ParentID})
	return t, nil
}

func descriptionDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Delete removes a task together with its subtasks and stored attachments.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.getTask(ctx, id)
	if err != nil {
		return err
	}
	all, err := e.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, sub := range SubtasksOf(all, t.ID) {
		if err := e.deleteOne(ctx, sub); err != nil {
			return err
		}
	}
	if err := e.deleteOne(ctx, t); err != nil {
		return err
	}

	if t.IsSubtask() {
		catalog, err := e.Catalog(ctx)
		if err != nil {
			return err
		}
		return e.recomputeParent(ctx, catalog, t.ParentID)
	}
	return nil
}

func (e *Engine) deleteOne(ctx context.Context, t *Task) error {
	for _, a := range t.Attachments {
		e.removeAttachmentFile(ctx, a)
	}
	if err := e.repo.Delete(ctx, t.ID); err != nil {
		return err
	}
	e.publish(ctx, eventbus.TaskDeleted, t.ID, map[string]string{eventbus.MetaParentID: t.ParentID})
	return nil
}

// Progress counts a main task's finished subtasks.
func (e *Engine) Progress(ctx context.Context, id string) (*Progress, error) {
	if _, err := e.getTask(ctx, id); err != nil {
		return nil, err
	}
	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeProgress(catalog, SubtasksOf(all, id)), nil
}

func ComputeProgress(catalog *status.Catalog, subtasks []*Task) *Progress {
	p := &Progress{Total: len(subtasks)}
	for _, t := range subtasks {
		if catalog.IsFinished(t.StatusID) {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percentage = p.Completed * 100 / p.Total
	}
	return p
}

// Reorder moves the listed siblings to the front of their group in the given
// order. Siblings left out keep their relative order after them, so OrderIndex
// stays a dense 0..n-1 sequence within the group. The whole group is returned
// in its new order.
func (e *Engine) Reorder(ctx context.Context, ids []string) ([]*Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "ids are required", nil)
	}
	listed := make(map[string]bool, len(ids))
	var parentID string
	for i, id := range ids {
		if listed[id] {
			return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("task %q listed more than once", id), nil)
		}
		listed[id] = true
		t, err := e.getTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			parentID = t.ParentID
		} else if t.ParentID != parentID {
			return nil, cerr.NewError(cerr.InvalidArgument, "reordered tasks must share a parent", nil)
		}
	}

	all, err := e.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	siblings := SubtasksOf(all, parentID)
	slices.SortStableFunc(siblings, func(a, b *Task) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
	byID := make(map[string]*Task, len(siblings))
	for _, t := range siblings {
		byID[t.ID] = t
	}

	ordered := make([]*Task, 0, len(siblings))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	for _, t := range siblings {
		if !listed[t.ID] {
			ordered = append(ordered, t)
		}
	}

	now := time.Now()
	for i, t := range ordered {
		if t.OrderIndex == i {
			continue
		}
		t.OrderIndex = i
		t.UpdatedAt = now
		if err := e.repo.Update(ctx, t); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// AddActivity appends a free-form entry to the task's activity log.
func (e *Engine) AddActivity(ctx context.Context, id string, typ ActivityType, description string, details map[string]string) (*ActivityEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if typ == "" || strings.TrimSpace(description) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "activity type and description are required", nil)
	}
	t, err := e.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	entry := newActivity(now, typ, description, details)
	t.ActivityLog = append(t.ActivityLog, entry)
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return entry, nil
}

func newActivity(at time.Time, typ ActivityType, description string, details map[string]string) *ActivityEntry {
	if len(details) == 0 {
		details = nil
	}
	return &ActivityEntry{
		ID:          ulid.Make().String(),
		Timestamp:   at,
		Type:        typ,
		Description: description,
		Details:     details,
	}
}
