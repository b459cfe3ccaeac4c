package task_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/status"
	statusrepo "github.com/kazz187/taskdesk/internal/status/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/user"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

type fixture struct {
	engine *task.Engine
	repo   task.Repository
	files  storage.Storage
	events <-chan *eventbus.Event
}

func newFixture(t *testing.T, opts ...task.EngineOption) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	statuses := statusrepo.NewYAMLRepository(s)
	require.NoError(t, status.EnsureDefaults(ctx, statuses))
	repo := taskrepo.NewYAMLRepository(s)
	bus := eventbus.New()
	_, events := bus.Subscribe(64)

	return &fixture{
		engine: task.NewEngine(repo, statuses, s, bus, opts...),
		repo:   repo,
		files:  s,
		events: events,
	}
}

func (f *fixture) seed(t *testing.T, tasks ...*task.Task) {
	t.Helper()
	for _, tk := range tasks {
		require.NoError(t, f.repo.Create(context.Background(), tk))
	}
}

func (f *fixture) drain() []*eventbus.Event {
	var out []*eventbus.Event
	for {
		select {
		case ev := <-f.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []*eventbus.Event) []eventbus.EventType {
	out := make([]eventbus.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func (f *fixture) statusOf(t *testing.T, id string) string {
	t.Helper()
	tk, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return tk.StatusID
}

func TestEngine_UpdateStatus_SameStatusStillInheritsToParent(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "1", Title: "Brochure", StatusID: status.IDPending},
		&task.Task{ID: "2", Title: "Cover", StatusID: status.IDInDesign, ParentID: "1"},
		&task.Task{ID: "3", Title: "Inner pages", StatusID: status.IDHasComments, ParentID: "1"},
	)

	updated, err := f.engine.UpdateStatus(context.Background(), "3", status.IDHasComments)
	require.NoError(t, err)
	assert.Equal(t, status.IDHasComments, updated.StatusID)
	assert.Equal(t, status.IDHasComments, f.statusOf(t, "1"))

	// The write happened even though the status did not change.
	require.Len(t, updated.ActivityLog, 1)
	assert.Equal(t, task.ActivityStatusChange, updated.ActivityLog[0].Type)
}

func TestEngine_UpdateStatus_ParentTakesEarliestSiblingStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "Catalogue", StatusID: status.IDInDesign},
		&task.Task{ID: "a", Title: "A", StatusID: status.IDInPrinting, ParentID: "p"},
		&task.Task{ID: "b", Title: "B", StatusID: status.IDInDesign, ParentID: "p"},
	)
	ctx := context.Background()

	_, err := f.engine.UpdateStatus(ctx, "b", status.IDInMontage)
	require.NoError(t, err)
	assert.Equal(t, status.IDInMontage, f.statusOf(t, "p"))

	_, err = f.engine.UpdateStatus(ctx, "b", status.IDReadyForDelivery)
	require.NoError(t, err)
	assert.Equal(t, status.IDInPrinting, f.statusOf(t, "p"))

	_, err = f.engine.UpdateStatus(ctx, "a", status.IDHasComments)
	require.NoError(t, err)
	assert.Equal(t, status.IDHasComments, f.statusOf(t, "p"))
}

func TestEngine_UpdateStatus_MainTaskDoesNotPropagate(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "Poster", StatusID: status.IDPending},
		&task.Task{ID: "c", Title: "Print", StatusID: status.IDPending, ParentID: "p"},
	)
	_, err := f.engine.UpdateStatus(context.Background(), "p", status.IDOnHold)
	require.NoError(t, err)
	assert.Equal(t, status.IDOnHold, f.statusOf(t, "p"))
	assert.Equal(t, status.IDPending, f.statusOf(t, "c"))
}

func TestEngine_UpdateStatus_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &task.Task{ID: "x", Title: "X", StatusID: status.IDPending})
	ctx := context.Background()

	_, err := f.engine.UpdateStatus(ctx, "missing", status.IDInDesign)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	_, err = f.engine.UpdateStatus(ctx, "x", "no_such_status")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	assert.Equal(t, status.IDPending, f.statusOf(t, "x"))
}

func TestEngine_UpdateStatus_PublishesParentChange(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "P", StatusID: status.IDInDesign},
		&task.Task{ID: "c", Title: "C", StatusID: status.IDInDesign, ParentID: "p"},
	)
	_, err := f.engine.UpdateStatus(context.Background(), "c", status.IDDesignCompleted)
	require.NoError(t, err)

	events := f.drain()
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].ResourceID)
	assert.Equal(t, status.IDInDesign, events[0].Metadata[eventbus.MetaOldStatus])
	assert.Equal(t, status.IDDesignCompleted, events[0].Metadata[eventbus.MetaNewStatus])
	assert.Equal(t, "p", events[1].ResourceID)
	assert.Equal(t, status.IDDesignCompleted, events[1].Metadata[eventbus.MetaNewStatus])
}

func TestDeriveParentStatus_TieBrokenByCatalogOrder(t *testing.T) {
	catalog := status.NewCatalog([]*status.Status{
		{ID: "first", OrderIndex: 1},
		{ID: "second", OrderIndex: 1},
		{ID: "later", OrderIndex: 2},
	})
	got, ok := task.DeriveParentStatus(catalog, []*task.Task{
		{StatusID: "later"}, {StatusID: "second"}, {StatusID: "first"}, {StatusID: "unknown"},
	})
	require.True(t, ok)
	assert.Equal(t, "first", got)

	_, ok = task.DeriveParentStatus(catalog, []*task.Task{{StatusID: "unknown"}})
	assert.False(t, ok)
}

func TestEngine_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	main, err := f.engine.Create(ctx, task.CreateInput{Title: "Business cards", ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, status.IDPending, main.StatusID)
	assert.Equal(t, task.UrgencyNormal, main.Urgency)
	assert.Equal(t, 0, main.OrderIndex)

	sub1, err := f.engine.Create(ctx, task.CreateInput{Title: "Front", ParentID: main.ID, StatusID: status.IDInDesign})
	require.NoError(t, err)
	sub2, err := f.engine.Create(ctx, task.CreateInput{Title: "Back", ParentID: main.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, sub1.OrderIndex)
	assert.Equal(t, 1, sub2.OrderIndex)
	assert.Equal(t, "c1", sub2.ClientID)

	_, err = f.engine.Create(ctx, task.CreateInput{Title: "Nested", ParentID: sub1.ID})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.engine.Create(ctx, task.CreateInput{Title: " "})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.engine.Create(ctx, task.CreateInput{Title: "Bad", Urgency: "Whenever"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	created := 0
	for _, ev := range f.drain() {
		if ev.Type == eventbus.TaskCreated {
			created++
		}
	}
	assert.Equal(t, 3, created)
}

func TestEngine_Update(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "P", StatusID: status.IDPending, Description: "one\ntwo\n"},
		&task.Task{ID: "s", Title: "S", StatusID: status.IDPending, ParentID: "p"},
	)
	ctx := context.Background()

	desc := "one\nthree\n"
	updated, err := f.engine.Update(ctx, "p", task.Patch{Description: &desc})
	require.NoError(t, err)
	require.Len(t, updated.ActivityLog, 1)
	assert.Contains(t, updated.ActivityLog[0].Details["description_diff"], "-two")
	assert.Contains(t, updated.ActivityLog[0].Details["description_diff"], "+three")

	size := "A4"
	_, err = f.engine.Update(ctx, "s", task.Patch{Size: &size})
	require.NoError(t, err)
	title := "S2"
	_, err = f.engine.Update(ctx, "s", task.Patch{Title: &title})
	require.NoError(t, err)

	// Unchanged fields produce no write and no event.
	_, err = f.engine.Update(ctx, "s", task.Patch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, []eventbus.EventType{eventbus.TaskUpdated, eventbus.TaskSpecsUpdated, eventbus.TaskUpdated}, eventTypes(f.drain()))
}

func TestEngine_Comments(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "P", StatusID: status.IDInDesign},
		&task.Task{ID: "s", Title: "S", StatusID: status.IDInDesign, ParentID: "p"},
	)
	ctx := context.Background()

	c, err := f.engine.AddComment(ctx, "s", "logo too small")
	require.NoError(t, err)
	assert.Equal(t, status.IDHasComments, f.statusOf(t, "s"))
	assert.Equal(t, status.IDHasComments, f.statusOf(t, "p"))

	reply, err := f.engine.AddReply(ctx, "s", c.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, c.ID, reply.ParentCommentID)

	_, err = f.engine.AddReply(ctx, "s", reply.ID, "nested")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	_, err = f.engine.AddReply(ctx, "s", "missing", "x")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	f.drain()
	resolved, err := f.engine.ResolveComment(ctx, "s", c.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	resolved, err = f.engine.ResolveComment(ctx, "s", c.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	assert.Equal(t, []eventbus.EventType{eventbus.CommentResolved}, eventTypes(f.drain()))

	stored, err := f.repo.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CommentCount())
}

func TestEngine_Attachments(t *testing.T) {
	f := newFixture(t, task.WithMaxAttachmentSize(16))
	f.seed(t, &task.Task{ID: "t", Title: "T", StatusID: status.IDPending})
	ctx := context.Background()

	a, err := f.engine.AddAttachment(ctx, "t", "proof.PDF", "application/pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.Size)

	got, data, err := f.engine.ReadAttachment(ctx, "t", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "proof.PDF", got.Name)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = f.engine.AddAttachment(ctx, "t", "run.exe", "", bytes.NewReader([]byte("MZ")))
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.engine.AddAttachment(ctx, "t", "huge.png", "image/png", bytes.NewReader(make([]byte, 17)))
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	require.NoError(t, f.engine.DeleteAttachment(ctx, "t", a.ID))
	exists, err := f.files.Exists(ctx, a.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	err = f.engine.DeleteAttachment(ctx, "t", a.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestAllowedAttachmentName(t *testing.T) {
	patterns := task.DefaultAttachmentPatterns
	assert.True(t, task.AllowedAttachmentName("design.jpeg", patterns))
	assert.True(t, task.AllowedAttachmentName("Brief.DOCX", patterns))
	assert.False(t, task.AllowedAttachmentName("notes.txt", patterns))
	assert.False(t, task.AllowedAttachmentName("archive.pdf.zip", patterns))
}

func TestEngine_DeleteCascadesAndProgress(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "P", StatusID: status.IDInPrinting},
		&task.Task{ID: "a", Title: "A", StatusID: status.IDDelivered, ParentID: "p"},
		&task.Task{ID: "b", Title: "B", StatusID: status.IDInPrinting, ParentID: "p"},
		&task.Task{ID: "c", Title: "C", StatusID: status.IDCancelled, ParentID: "p"},
	)
	ctx := context.Background()

	p, err := f.engine.Progress(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, &task.Progress{Completed: 2, Total: 3, Percentage: 66}, p)

	require.NoError(t, f.engine.Delete(ctx, "p"))
	all, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEngine_Reorder(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "P", StatusID: status.IDPending},
		&task.Task{ID: "a", Title: "A", StatusID: status.IDPending, ParentID: "p", OrderIndex: 0},
		&task.Task{ID: "b", Title: "B", StatusID: status.IDPending, ParentID: "p", OrderIndex: 1},
		&task.Task{ID: "c", Title: "C", StatusID: status.IDPending, ParentID: "p", OrderIndex: 2},
		&task.Task{ID: "other", Title: "O", StatusID: status.IDPending},
	)
	ctx := context.Background()
	orderOf := func(id string) int {
		tk, err := f.repo.Get(ctx, id)
		require.NoError(t, err)
		return tk.OrderIndex
	}

	_, err := f.engine.Reorder(ctx, []string{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, []int{orderOf("a"), orderOf("b"), orderOf("c")})

	// Siblings left out follow the listed ones in their current order.
	got, err := f.engine.Reorder(ctx, []string{"c", "b"})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, tk := range got {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, []int{2, 1, 0}, []int{orderOf("a"), orderOf("b"), orderOf("c")})

	_, err = f.engine.Reorder(ctx, []string{"a", "a"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	assert.Equal(t, 2, orderOf("a"))

	_, err = f.engine.Reorder(ctx, nil)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.engine.Reorder(ctx, []string{"a", "other"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestEngine_ListAppliesFilters(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Hour)
	f.seed(t,
		&task.Task{ID: "late", Title: "Late flyer", StatusID: status.IDInDesign, Deadline: &past},
		&task.Task{ID: "done", Title: "Done flyer", StatusID: status.IDDelivered, Deadline: &past},
		&task.Task{ID: "fresh", Title: "Fresh", StatusID: status.IDInDesign},
	)
	got, err := f.engine.List(context.Background(), task.Filters{OverdueOnly: true}, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)
}

func TestEngine_EventsCarryActor(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		&task.Task{ID: "p", Title: "Catalogue", StatusID: status.IDInDesign},
		&task.Task{ID: "a", Title: "A", StatusID: status.IDInDesign, ParentID: "p"},
	)
	ctx := user.WithActor(context.Background(), &user.User{ID: "u1", PhoneNumber: "+201000000002", Role: user.RoleDesigner})

	_, err := f.engine.UpdateStatus(ctx, "a", status.IDDesignCompleted)
	require.NoError(t, err)
	events := f.drain()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, "u1", ev.Metadata[eventbus.MetaActorID])
		assert.Equal(t, "+201000000002", ev.Metadata[eventbus.MetaActorPhone])
	}

	_, err = f.engine.AddComment(context.Background(), "a", "anonymous")
	require.NoError(t, err)
	for _, ev := range f.drain() {
		assert.NotContains(t, ev.Metadata, eventbus.MetaActorID)
	}
}
