package main

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
)

func TestPad(t *testing.T) {
	assert.Equal(t, "قيد  ", pad("قيد", 5))
	assert.Equal(t, "toolong", pad("toolong", 3))
}

func TestCells(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	catalog := status.NewCatalog(status.DefaultStatuses())
	assert.Equal(t, "معلق  ", statusCell(catalog, status.IDOnHold, 6))
	assert.Equal(t, "ghost ", statusCell(catalog, "ghost", 6))
	assert.Equal(t, "Urgent  ", urgencyCell(task.UrgencyUrgent, 8))
	assert.Equal(t, "█████░░░░░", progressBar(&task.Progress{Completed: 1, Total: 2}, 10))
	assert.Equal(t, "░░░░", progressBar(&task.Progress{}, 4))
}
