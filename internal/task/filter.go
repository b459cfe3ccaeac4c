package task

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kazz187/taskdesk/internal/status"
)

type Role string

const (
	RoleManagement   Role = "management"
	RoleDesigner     Role = "designer"
	RolePrintManager Role = "print_manager"
)

// DefaultDesignerStatuses are the statuses a designer works in.
var DefaultDesignerStatuses = []string{
	status.IDPending,
	status.IDInDesign,
	status.IDHasComments,
	status.IDOnHold,
}

type SortKey string

const (
	SortDeadline SortKey = "deadline"
	SortPriority SortKey = "priority"
	SortStatus   SortKey = "status"
	SortCreated  SortKey = "created"
	SortOrder    SortKey = "order"
)

type Filters struct {
	Role        Role
	OverdueOnly bool
	UrgentOnly  bool
	ClientID    string
	StatusID    string
	MainOnly    bool
	ParentID    string
	Search      string
	SortBy      SortKey
	// DesignerStatuses replaces DefaultDesignerStatuses when non-empty.
	DesignerStatuses []string
}

func filter(tasks []*Task, keep func(*Task) bool) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// FilterOverdue keeps tasks whose deadline passed before now and whose status
// is not finished. Unknown statuses count as unfinished.
func FilterOverdue(tasks []*Task, catalog *status.Catalog, now time.Time) []*Task {
	return filter(tasks, func(t *Task) bool {
		return t.Deadline != nil && t.Deadline.Before(now) && !catalog.IsFinished(t.StatusID)
	})
}

func FilterUrgent(tasks []*Task) []*Task {
	return filter(tasks, func(t *Task) bool {
		return t.Urgency == UrgencyUrgent || t.Urgency == UrgencyCritical
	})
}

func FilterByClient(tasks []*Task, clientID string) []*Task {
	return filter(tasks, func(t *Task) bool { return t.ClientID == clientID })
}

func FilterByStatus(tasks []*Task, statusID string) []*Task {
	return filter(tasks, func(t *Task) bool { return t.StatusID == statusID })
}

func MainTasksOnly(tasks []*Task) []*Task {
	return filter(tasks, func(t *Task) bool { return !t.IsSubtask() })
}

func SubtasksOf(tasks []*Task, parentID string) []*Task {
	return filter(tasks, func(t *Task) bool { return t.ParentID == parentID })
}

// FilterForRole narrows tasks to what role may see. Designers see a main task
// when it or any of its subtasks is in an allowed status, and a subtask when
// its own status is allowed. Every other role sees everything.
func FilterForRole(tasks []*Task, role Role, designerStatuses []string) []*Task {
	if role != RoleDesigner {
		return tasks
	}
	if len(designerStatuses) == 0 {
		designerStatuses = DefaultDesignerStatuses
	}
	allowed := func(t *Task) bool { return slices.Contains(designerStatuses, t.StatusID) }

	visibleParents := make(map[string]bool)
	for _, t := range tasks {
		if t.IsSubtask() && allowed(t) {
			visibleParents[t.ParentID] = true
		}
	}
	return filter(tasks, func(t *Task) bool {
		if t.IsSubtask() {
			return allowed(t)
		}
		return allowed(t) || visibleParents[t.ID]
	})
}

func Search(tasks []*Task, query string) []*Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tasks
	}
	return filter(tasks, func(t *Task) bool {
		return strings.Contains(strings.ToLower(t.Title+" "+t.Description), q)
	})
}

// Sort returns a stably sorted copy of tasks. An unknown key keeps the input order.
func Sort(tasks []*Task, key SortKey, catalog *status.Catalog) []*Task {
	out := slices.Clone(tasks)
	var less func(a, b *Task) bool
	switch key {
	case SortDeadline:
		less = func(a, b *Task) bool {
			switch {
			case a.Deadline == nil:
				return false
			case b.Deadline == nil:
				return true
			default:
				return a.Deadline.Before(*b.Deadline)
			}
		}
	case SortPriority:
		less = func(a, b *Task) bool { return a.Urgency.rank() < b.Urgency.rank() }
	case SortStatus:
		pos := func(t *Task) int {
			if p := catalog.Position(t.StatusID); p >= 0 {
				return p
			}
			return len(catalog.Statuses())
		}
		less = func(a, b *Task) bool { return pos(a) < pos(b) }
	case SortCreated:
		less = func(a, b *Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOrder:
		less = func(a, b *Task) bool { return a.OrderIndex < b.OrderIndex }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ApplyFilters runs every filter set in f, always in the same order, then
// searches and sorts.
func ApplyFilters(tasks []*Task, f Filters, catalog *status.Catalog, now time.Time) []*Task {
	out := FilterForRole(tasks, f.Role, f.DesignerStatuses)
	if f.OverdueOnly {
		out = FilterOverdue(out, catalog, now)
	}
	if f.UrgentOnly {
		out = FilterUrgent(out)
	}
	if f.ClientID != "" {
		out = FilterByClient(out, f.ClientID)
	}
	if f.StatusID != "" {
		out = FilterByStatus(out, f.StatusID)
	}
	if f.MainOnly {
		out = MainTasksOnly(out)
	}
	if f.ParentID != "" {
		out = SubtasksOf(out, f.ParentID)
	}
	out = Search(out, f.Search)
	if f.SortBy != "" {
		out = Sort(out, f.SortBy, catalog)
	}
	return out
}
