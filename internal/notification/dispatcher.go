package notification

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskdesk/internal/client"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/panicerr"
)

const (
	ChannelWhatsApp = string(settings.ChannelWhatsApp)
	ChannelTelegram = string(settings.ChannelTelegram)
	ChannelWebPush  = "webpush"

	defaultSendTimeout = 10 * time.Second
	maxConcurrentSends = 8
)

// DefaultNotifyingStatuses are the only status changes that notify anyone.
var DefaultNotifyingStatuses = []string{status.IDDesignCompleted, status.IDMontageCompleted}

var allGroups = []settings.Group{settings.GroupManagement, settings.GroupDesigner, settings.GroupPrintManager}

// Outcome is the settled result of one delivery attempt.
type Outcome struct {
	Recipient string
	Group     settings.Group
	Channel   string
	Err       error
}

type target struct {
	name    string
	group   settings.Group
	channel string
	send    func(ctx context.Context) error
}

// Dispatcher turns task events into rendered messages and fans them out to
// the recipient groups of a fixed routing table. Delivery failures are logged
// and never reach the code that caused the event.
type Dispatcher struct {
	eventBus  *eventbus.Bus
	tasks     task.Repository
	statuses  status.Repository
	clients   client.Repository
	settings  settings.Repository
	templates *msgtemplate.Engine
	whatsapp  *WhatsAppSender
	telegram  *TelegramSender
	push      *PushSender

	sendTimeout       time.Duration
	catalogOpts       []status.CatalogOption
	notifyingStatuses []string
}

type Option func(*Dispatcher)

func WithTelegram(s *TelegramSender) Option {
	return func(d *Dispatcher) { d.telegram = s }
}

func WithPush(s *PushSender) Option {
	return func(d *Dispatcher) { d.push = s }
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func WithCatalogOptions(opts ...status.CatalogOption) Option {
	return func(d *Dispatcher) { d.catalogOpts = append(d.catalogOpts, opts...) }
}

// WithNotifyingStatuses replaces DefaultNotifyingStatuses.
func WithNotifyingStatuses(ids ...string) Option {
	return func(d *Dispatcher) { d.notifyingStatuses = ids }
}

func NewDispatcher(
	eventBus *eventbus.Bus,
	tasks task.Repository,
	statuses status.Repository,
	clients client.Repository,
	settingsRepo settings.Repository,
	templates *msgtemplate.Engine,
	whatsapp *WhatsAppSender,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		eventBus:          eventBus,
		tasks:             tasks,
		statuses:          statuses,
		clients:           clients,
		settings:          settingsRepo,
		templates:         templates,
		whatsapp:          whatsapp,
		sendTimeout:       defaultSendTimeout,
		notifyingStatuses: DefaultNotifyingStatuses,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start dispatches every event published on the bus until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.Dispatch(ctx, ev)
		}
	}
}

func routedEvent(t eventbus.EventType) bool {
	switch t {
	case eventbus.TaskCreated, eventbus.TaskUpdated, eventbus.TaskSpecsUpdated, eventbus.TaskStatusChanged,
		eventbus.CommentAdded, eventbus.ReplyAdded, eventbus.CommentResolved, eventbus.AttachmentAdded:
		return true
	}
	return false
}

// route maps an event to its template and recipient groups. ok is false for
// events that notify nobody.
func (d *Dispatcher) route(ev *eventbus.Event, t *task.Task) (msgtemplate.Type, []settings.Group, bool) {
	mgmt, designer, printing := settings.GroupManagement, settings.GroupDesigner, settings.GroupPrintManager
	switch ev.Type {
	case eventbus.TaskCreated:
		if t.IsSubtask() {
			return msgtemplate.NewSubtask, []settings.Group{mgmt, designer}, true
		}
		return msgtemplate.NewProject, []settings.Group{mgmt, designer}, true
	case eventbus.TaskUpdated:
		if !t.IsSubtask() {
			return "", nil, false
		}
		return msgtemplate.SubtaskUpdate, []settings.Group{mgmt, printing}, true
	case eventbus.TaskSpecsUpdated:
		return msgtemplate.SubtaskSpecsUpdate, []settings.Group{designer, printing}, true
	case eventbus.TaskStatusChanged:
		if ev.Metadata[eventbus.MetaInherited] == "true" {
			return "", nil, false
		}
		newStatus := ev.Metadata[eventbus.MetaNewStatus]
		if newStatus == ev.Metadata[eventbus.MetaOldStatus] || !slices.Contains(d.notifyingStatuses, newStatus) {
			return "", nil, false
		}
		return msgtemplate.StatusChange, []settings.Group{mgmt, printing}, true
	case eventbus.CommentAdded:
		return msgtemplate.CommentAdded, allGroups, true
	case eventbus.ReplyAdded:
		return msgtemplate.ReplyAdded, []settings.Group{mgmt, designer}, true
	case eventbus.CommentResolved:
		return msgtemplate.CommentResolved, []settings.Group{mgmt, designer}, true
	case eventbus.AttachmentAdded:
		return msgtemplate.AttachmentAdded, allGroups, true
	}
	return "", nil, false
}

// Dispatch renders and delivers the notification for ev and returns every
// target's outcome. It never fails; problems are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *eventbus.Event) []Outcome {
	if !routedEvent(ev.Type) {
		return nil
	}
	st, err := d.settings.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "notification skipped: failed to load settings", "event", ev.Type, "error", err)
		return nil
	}
	if !st.NotificationsEnabled {
		return nil
	}
	t, err := d.tasks.Get(ctx, ev.ResourceID)
	if err != nil {
		slog.WarnContext(ctx, "notification skipped: task unavailable", "event", ev.Type, "task_id", ev.ResourceID, "error", err)
		return nil
	}
	typ, groups, ok := d.route(ev, t)
	if !ok {
		return nil
	}

	text := d.templates.Render(ctx, typ, d.eventData(ctx, ev, t))
	title := string(typ)
	if def, ok := d.templates.Definition(typ); ok {
		title = def.Name
	}
	keep := recipientFilter(ctx, ev, typ)
	outcomes := d.deliver(ctx, d.targets(ctx, st, groups, keep, title, text, t.ID))
	d.logOutcomes(ctx, typ, outcomes)
	return outcomes
}

// recipientFilter drops the account that caused ev and recipients that
// switched typ off in their preferences.
func recipientFilter(ctx context.Context, ev *eventbus.Event, typ msgtemplate.Type) func(*settings.Recipient) bool {
	actorID, actorPhone := ev.Metadata[eventbus.MetaActorID], ev.Metadata[eventbus.MetaActorPhone]
	newStatus := ""
	if ev.Type == eventbus.TaskStatusChanged {
		newStatus = ev.Metadata[eventbus.MetaNewStatus]
	}
	return func(r *settings.Recipient) bool {
		if r.IsActor(actorID, actorPhone) {
			slog.DebugContext(ctx, "recipient skipped: caused the change", "recipient", r.Name, "event", ev.Type)
			return false
		}
		if !r.Wants(string(typ), newStatus) {
			slog.DebugContext(ctx, "recipient skipped: disabled in preferences", "recipient", r.Name, "template_type", typ)
			return false
		}
		return true
	}
}

// SendTest delivers text to every target in groups, or in all groups when
// none are given, ignoring the enabled switch.
func (d *Dispatcher) SendTest(ctx context.Context, text string, groups ...settings.Group) ([]Outcome, error) {
	st, err := d.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		groups = allGroups
	}
	outcomes := d.deliver(ctx, d.targets(ctx, st, groups, nil, "taskdesk", text, ""))
	d.logOutcomes(ctx, "TEST", outcomes)
	return outcomes, nil
}

// targets lists every send for groups. keep, when set, filters recipients;
// push subscriptions are not tied to an account and always receive.
func (d *Dispatcher) targets(ctx context.Context, st *settings.Settings, groups []settings.Group, keep func(*settings.Recipient) bool, title, text, taskID string) []target {
	var out []target
	for _, r := range st.RecipientsIn(groups...) {
		if keep != nil && !keep(r) {
			continue
		}
		switch r.EffectiveChannel() {
		case settings.ChannelWhatsApp:
			out = append(out, target{
				name:    r.Name,
				group:   r.Group,
				channel: ChannelWhatsApp,
				send: func(ctx context.Context) error {
					return d.whatsapp.Send(ctx, r.Phone, r.APIKey, text)
				},
			})
		case settings.ChannelTelegram:
			if d.telegram == nil {
				slog.WarnContext(ctx, "telegram recipient skipped: bot not configured", "recipient", r.Name)
				continue
			}
			out = append(out, target{
				name:    r.Name,
				group:   r.Group,
				channel: ChannelTelegram,
				send: func(ctx context.Context) error {
					return d.telegram.Send(ctx, r.ChatID, text)
				},
			})
		}
	}

	if d.push == nil || !d.push.Configured() {
		return out
	}
	subs, err := d.push.Subscriptions(ctx, groups...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list push subscriptions", "error", err)
		return out
	}
	payload := &PushPayload{Title: title, Body: text, Tag: taskID}
	if taskID != "" {
		payload.URL = "/tasks/" + taskID
	}
	for _, sub := range subs {
		out = append(out, target{
			name:    sub.Endpoint,
			group:   settings.Group(sub.Group),
			channel: ChannelWebPush,
			send: func(ctx context.Context) error {
				return d.push.Send(ctx, sub, payload)
			},
		})
	}
	return out
}

// deliver runs every send concurrently and waits for all of them. A failing
// or panicking send does not affect the others.
func (d *Dispatcher) deliver(ctx context.Context, targets []target) []Outcome {
	if len(targets) == 0 {
		return nil
	}
	p := pool.NewWithResults[Outcome]().WithMaxGoroutines(maxConcurrentSends)
	for _, tg := range targets {
		p.Go(func() Outcome {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
			defer cancel()
			err := panicerr.SafeContext(tg.send)(sendCtx)
			return Outcome{Recipient: tg.name, Group: tg.group, Channel: tg.channel, Err: err}
		})
	}
	return p.Wait()
}

func (d *Dispatcher) logOutcomes(ctx context.Context, typ msgtemplate.Type, outcomes []Outcome) {
	failed := 0
	for _, o := range outcomes {
		attrs := []any{"recipient", o.Recipient, "group", o.Group, "channel", o.Channel, "template_type", typ}
		if o.Err != nil {
			failed++
			slog.WarnContext(ctx, "notification delivery failed", append(attrs, "error", o.Err)...)
			continue
		}
		slog.InfoContext(ctx, "notification delivered", attrs...)
	}
	slog.DebugContext(ctx, "notification dispatched", "template_type", typ, "targets", len(outcomes), "failed", failed)
}

const (
	labelSubtask = "البند"
	labelProject = "المشروع"

	statusChangedMessage = "تم تحديث الحالة"
)

func (d *Dispatcher) eventData(ctx context.Context, ev *eventbus.Event, t *task.Task) map[string]any {
	catalog, err := status.LoadCatalog(ctx, d.statuses, d.catalogOpts...)
	if err != nil {
		slog.WarnContext(ctx, "status labels unavailable", "error", err)
		catalog = status.NewCatalog(nil, d.catalogOpts...)
	}
	label := func(id string) string {
		if s, ok := catalog.Find(id); ok {
			return s.Label
		}
		return id
	}

	data := map[string]any{
		"taskTitle":    t.Title,
		"taskLabel":    labelProject,
		"status":       label(t.StatusID),
		"urgency":      string(t.Urgency),
		"size":         t.Size,
		"printingType": string(t.PrintingType),
	}
	if t.Deadline != nil {
		data["deadline"] = t.Deadline.Format("2006-01-02")
	}

	clientID := t.ClientID
	if t.IsSubtask() {
		data["taskLabel"] = labelSubtask
		if parent, err := d.tasks.Get(ctx, t.ParentID); err == nil {
			data["parentTitle"] = parent.Title
			if clientID == "" {
				clientID = parent.ClientID
			}
		}
	}
	if clientID != "" && d.clients != nil {
		if c, err := d.clients.Get(ctx, clientID); err == nil {
			data["clientName"] = c.Name
			data["clientCode"] = c.Number
		} else {
			slog.DebugContext(ctx, "client unavailable for notification", "client_id", clientID, "error", err)
		}
	}

	switch ev.Type {
	case eventbus.TaskStatusChanged:
		data["statusMessage"] = statusChangedMessage
		data["oldStatus"] = label(ev.Metadata[eventbus.MetaOldStatus])
		data["newStatus"] = label(ev.Metadata[eventbus.MetaNewStatus])
	case eventbus.CommentAdded, eventbus.ReplyAdded, eventbus.CommentResolved:
		data["commentText"] = ev.Metadata[eventbus.MetaCommentText]
		data["commentCount"] = t.CommentCount()
	case eventbus.AttachmentAdded:
		data["attachmentNames"] = ev.Metadata[eventbus.MetaAttachmentNames]
		count, err := strconv.Atoi(ev.Metadata[eventbus.MetaAttachmentCount])
		if err != nil {
			count = 1
		}
		data["attachmentCount"] = count
	}
	return data
}
