package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/taskdesk/internal/status"
)

func taskIDs(tasks []*Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFilterOverdue(t *testing.T) {
	catalog := status.NewCatalog(status.DefaultStatuses())
	now := *at("2025-03-10T12:00:00Z")
	tasks := []*Task{
		{ID: "late", StatusID: status.IDInDesign, Deadline: at("2025-03-09T00:00:00Z")},
		{ID: "delivered-late", StatusID: status.IDDelivered, Deadline: at("2025-03-01T00:00:00Z")},
		{ID: "cancelled-late", StatusID: status.IDCancelled, Deadline: at("2025-03-01T00:00:00Z")},
		{ID: "future", StatusID: status.IDInDesign, Deadline: at("2025-03-11T00:00:00Z")},
		{ID: "no-deadline", StatusID: status.IDInDesign},
		{ID: "unknown-status", StatusID: "legacy", Deadline: at("2025-03-01T00:00:00Z")},
	}
	assert.Equal(t, []string{"late", "unknown-status"}, taskIDs(FilterOverdue(tasks, catalog, now)))
}

func TestFilterForRole(t *testing.T) {
	tasks := []*Task{
		{ID: "m1", StatusID: status.IDInPrinting},
		{ID: "m1-s1", StatusID: status.IDInDesign, ParentID: "m1"},
		{ID: "m1-s2", StatusID: status.IDInPrinting, ParentID: "m1"},
		{ID: "m2", StatusID: status.IDPending},
		{ID: "m3", StatusID: status.IDReadyForDelivery},
	}
	assert.Equal(t, []string{"m1", "m1-s1", "m2"}, taskIDs(FilterForRole(tasks, RoleDesigner, nil)))
	assert.Equal(t, taskIDs(tasks), taskIDs(FilterForRole(tasks, RoleManagement, nil)))
	assert.Equal(t, []string{"m3"}, taskIDs(FilterForRole(tasks, RoleDesigner, []string{status.IDReadyForDelivery})))
}

func TestSort(t *testing.T) {
	catalog := status.NewCatalog(status.DefaultStatuses())
	tasks := []*Task{
		{ID: "a", Urgency: UrgencyNormal, StatusID: status.IDInPrinting, OrderIndex: 2,
			CreatedAt: *at("2025-01-01T00:00:00Z")},
		{ID: "b", Urgency: UrgencyCritical, StatusID: status.IDPending, OrderIndex: 0,
			CreatedAt: *at("2025-01-03T00:00:00Z"), Deadline: at("2025-02-02T00:00:00Z")},
		{ID: "c", Urgency: UrgencyUrgent, StatusID: "legacy", OrderIndex: 1,
			CreatedAt: *at("2025-01-02T00:00:00Z"), Deadline: at("2025-02-01T00:00:00Z")},
		{ID: "d", Urgency: UrgencyNormal, StatusID: status.IDPending, OrderIndex: 3,
			CreatedAt: *at("2025-01-02T00:00:00Z")},
	}

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortDeadline, []string{"c", "b", "a", "d"}},
		{SortPriority, []string{"b", "c", "a", "d"}},
		{SortStatus, []string{"b", "d", "a", "c"}},
		{SortCreated, []string{"b", "c", "d", "a"}},
		{SortOrder, []string{"b", "c", "a", "d"}},
		{"bogus", []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, tt.want, taskIDs(Sort(tasks, tt.key, catalog)))
		})
	}
	// The input is left untouched.
	assert.Equal(t, []string{"a", "b", "c", "d"}, taskIDs(tasks))
}

func TestApplyFilters(t *testing.T) {
	catalog := status.NewCatalog(status.DefaultStatuses())
	now := *at("2025-03-10T00:00:00Z")
	tasks := []*Task{
		{ID: "m1", Title: "Wedding cards", StatusID: status.IDInDesign, ClientID: "c1", Urgency: UrgencyUrgent},
		{ID: "m1-s1", Title: "Envelope", StatusID: status.IDInDesign, ParentID: "m1", ClientID: "c1", Urgency: UrgencyCritical},
		{ID: "m2", Title: "Menu", Description: "restaurant WEDDING menu", StatusID: status.IDPending, ClientID: "c2", Urgency: UrgencyCritical},
		{ID: "m3", Title: "Banner", StatusID: status.IDInPrinting, ClientID: "c1", Urgency: UrgencyUrgent},
	}

	tests := []struct {
		name string
		f    Filters
		want []string
	}{
		{"no filters", Filters{}, []string{"m1", "m1-s1", "m2", "m3"}},
		{"designer urgent main", Filters{Role: RoleDesigner, UrgentOnly: true, MainOnly: true}, []string{"m1", "m2"}},
		{"client and status", Filters{ClientID: "c1", StatusID: status.IDInDesign}, []string{"m1", "m1-s1"}},
		{"parent scoped", Filters{ParentID: "m1"}, []string{"m1-s1"}},
		{"search is case-insensitive", Filters{Search: "wedding"}, []string{"m1", "m2"}},
		{"sorted by priority", Filters{MainOnly: true, SortBy: SortPriority}, []string{"m2", "m1", "m3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, taskIDs(ApplyFilters(tasks, tt.f, catalog, now)))
		})
	}
}
