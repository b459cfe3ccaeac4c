package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
)

func (c *cli) login(ctx context.Context, username, password string) error {
	if _, err := c.api.Login(ctx, username, password); err != nil {
		return err
	}
	fmt.Printf("%s logged in as %s\n", successLabel("✓"), username)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Printf("%s logged out\n", successLabel("✓"))
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	me, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(me))
	for k := range me {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s %v\n", pad(k+":", 12), me[k])
	}
	return nil
}

// withNotifications runs fn and, when notify is set, dispatches every event
// fn published. Publishing is synchronous, so all events are queued by the
// time fn returns.
func (c *cli) withNotifications(ctx context.Context, notify bool, fn func() error) error {
	subID, ch := c.bus.Subscribe(64)
	defer c.bus.Unsubscribe(subID)

	if err := fn(); err != nil {
		return err
	}
	if !notify {
		return nil
	}
	for {
		select {
		case ev := <-ch:
			outcomes := c.dispatcher.Dispatch(ctx, ev)
			if len(outcomes) > 0 {
				fmt.Printf("%s %s\n", dimLabel("notified on"), ev.Type)
				printOutcomes(outcomes)
			}
		default:
			return nil
		}
	}
}

func (c *cli) listTasks(ctx context.Context, f task.Filters) error {
	now := time.Now()
	tasks, err := c.tasks.List(ctx, f, now)
	if err != nil {
		return err
	}
	catalog, err := c.tasks.Catalog(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println(dimLabel("no tasks"))
		return nil
	}

	fmt.Printf("%s  %s  %s  %s  %s\n",
		headerLabel(pad("ID", 26)), headerLabel(pad("STATUS", 16)), headerLabel(pad("URGENCY", 8)),
		headerLabel(pad("DEADLINE", 10)), headerLabel("TITLE"))
	for _, t := range tasks {
		deadline := pad("-", 10)
		if t.Deadline != nil {
			deadline = pad(t.Deadline.Format("2006-01-02"), 10)
			if t.Deadline.Before(now) && !catalog.IsFinished(t.StatusID) {
				deadline = errorLabel(deadline)
			}
		}
		title := t.Title
		if t.IsSubtask() {
			title = dimLabel("└ ") + title
		}
		if t.IsVIP {
			title += " " + warnLabel("★")
		}
		fmt.Printf("%s  %s  %s  %s  %s\n",
			idLabel(pad(t.ID, 26)), statusCell(catalog, t.StatusID, 16), urgencyCell(t.Urgency, 8), deadline, title)
	}
	fmt.Println(dimLabel(fmt.Sprintf("%d task(s)", len(tasks))))
	return nil
}

func (c *cli) showTask(ctx context.Context, id string) error {
	t, err := c.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	catalog, err := c.tasks.Catalog(ctx)
	if err != nil {
		return err
	}
	fmt.Println(headerLabel(t.Title))
	fmt.Printf("%s %s\n", pad("id:", 10), idLabel(t.ID))
	fmt.Printf("%s %s\n", pad("status:", 10), statusCell(catalog, t.StatusID, 0))
	fmt.Printf("%s %s\n", pad("urgency:", 10), urgencyCell(t.Urgency, 0))
	if t.ParentID != "" {
		fmt.Printf("%s %s\n", pad("parent:", 10), idLabel(t.ParentID))
	}
	if t.Size != "" || t.PrintingType != "" {
		fmt.Printf("%s %s %s\n", pad("specs:", 10), t.Size, t.PrintingType)
	}
	if t.Deadline != nil {
		fmt.Printf("%s %s\n", pad("deadline:", 10), t.Deadline.Format("2006-01-02"))
	}
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}
	if len(t.Comments) > 0 {
		fmt.Printf("\n%s\n", headerLabel("Comments"))
		for _, cm := range t.Comments {
			mark := warnLabel("●")
			if cm.IsResolved {
				mark = successLabel("✓")
			}
			fmt.Printf("%s %s %s\n", mark, cm.Text, dimLabel(cm.CreatedAt.Format("2006-01-02 15:04")))
			for _, r := range cm.Replies {
				fmt.Printf("  %s %s\n", dimLabel("↳"), r.Text)
			}
		}
	}
	if len(t.ActivityLog) > 0 {
		fmt.Printf("\n%s\n", headerLabel("Activity"))
		for _, a := range t.ActivityLog {
			fmt.Printf("%s %s %s\n", dimLabel(a.Timestamp.Format("2006-01-02 15:04")), a.Type, a.Description)
		}
	}
	return nil
}

func (c *cli) setStatus(ctx context.Context, id, statusID string, notify bool) error {
	var updated *task.Task
	err := c.withNotifications(ctx, notify, func() error {
		var err error
		updated, err = c.tasks.UpdateStatus(ctx, id, statusID)
		return err
	})
	if err != nil {
		return err
	}
	catalog, err := c.tasks.Catalog(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s → %s\n", successLabel("✓"), idLabel(updated.ID), statusCell(catalog, updated.StatusID, 0))
	return nil
}

func (c *cli) progress(ctx context.Context, id string) error {
	p, err := c.tasks.Progress(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s %d/%d (%d%%)\n", progressBar(p, 20), p.Completed, p.Total, p.Percentage)
	return nil
}

func (c *cli) listStatuses(ctx context.Context) error {
	catalog, err := status.LoadCatalog(ctx, c.statuses, c.catalog...)
	if err != nil {
		return err
	}
	for _, s := range catalog.Statuses() {
		var flags []string
		if s.IsDefault {
			flags = append(flags, "default")
		}
		if s.IsFinished {
			flags = append(flags, "finished")
		}
		if s.IsCancelled {
			flags = append(flags, "cancelled")
		}
		fmt.Printf("%s  %s  %s\n", idLabel(pad(s.ID, 22)), statusCell(catalog, s.ID, 16), dimLabel(fmt.Sprint(flags)))
	}
	return nil
}

func (c *cli) nextStatuses(ctx context.Context, id string) error {
	catalog, err := status.LoadCatalog(ctx, c.statuses, c.catalog...)
	if err != nil {
		return err
	}
	if _, ok := catalog.Find(id); !ok {
		return fmt.Errorf("unknown status %q", id)
	}
	next := catalog.AllowedNextStatuses(id)
	if len(next) == 0 {
		fmt.Println(dimLabel("no further statuses"))
		return nil
	}
	for _, s := range next {
		fmt.Printf("%s  %s\n", idLabel(pad(s.ID, 22)), statusCell(catalog, s.ID, 0))
	}
	return nil
}

func (c *cli) listTemplates(ctx context.Context) error {
	for _, d := range c.templates.Definitions() {
		custom, err := c.templates.IsCustom(ctx, d.Type)
		if err != nil {
			return err
		}
		mark := dimLabel(pad("default", 7))
		if custom {
			mark = warnLabel(pad("custom", 7))
		}
		fmt.Printf("%s  %s  %s\n", idLabel(pad(string(d.Type), 22)), mark, d.Name)
	}
	return nil
}

func (c *cli) exportTemplates(ctx context.Context, out string) error {
	data, err := c.templates.Export(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Printf("%s exported to %s\n", successLabel("✓"), out)
	return nil
}

func (c *cli) importTemplates(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	res := c.templates.Import(ctx, data)
	for _, w := range res.Warnings {
		fmt.Printf("%s %s\n", warnLabel("!"), w)
	}
	for _, e := range res.Errors {
		fmt.Printf("%s %s\n", errorLabel("✗"), e)
	}
	if !res.Success {
		return errors.New("no template was imported")
	}
	fmt.Printf("%s imported %d template(s)\n", successLabel("✓"), res.Imported)
	return nil
}

func (c *cli) validateTemplate(typ msgtemplate.Type, text string) error {
	res := c.templates.Validate(typ, text)
	for _, w := range res.Warnings {
		fmt.Printf("%s %s\n", warnLabel("!"), w)
	}
	for _, e := range res.Errors {
		fmt.Printf("%s %s\n", errorLabel("✗"), e)
	}
	if !res.Valid {
		return errors.New("template is invalid")
	}
	fmt.Printf("%s template is valid\n", successLabel("✓"))
	return nil
}

func (c *cli) diffTemplate(ctx context.Context, typ msgtemplate.Type) error {
	diff, err := c.templates.Diff(ctx, typ)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println(dimLabel("template is not customized"))
		return nil
	}
	printDiff(diff)
	return nil
}

func (c *cli) renderTemplate(ctx context.Context, typ msgtemplate.Type, vars map[string]string, examples bool) error {
	def, ok := c.templates.Definition(typ)
	if !ok {
		return fmt.Errorf("unknown template type %q", typ)
	}
	data := map[string]any{}
	if examples {
		data = def.Examples()
	}
	for k, v := range vars {
		data[k] = v
	}
	fmt.Println(c.templates.Render(ctx, typ, data))
	return nil
}

func (c *cli) testNotification(ctx context.Context, text string, groups []settings.Group) error {
	outcomes, err := c.dispatcher.SendTest(ctx, text, groups...)
	if err != nil {
		return err
	}
	printOutcomes(outcomes)
	return nil
}
