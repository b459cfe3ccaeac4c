package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
)

var (
	successLabel = color.New(color.FgGreen).SprintFunc()
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel    = color.New(color.FgYellow).SprintFunc()
	headerLabel  = color.New(color.Bold, color.Underline).SprintFunc()
	idLabel      = color.New(color.FgCyan).SprintFunc()
	dimLabel     = color.New(color.Faint).SprintFunc()
)

// pad right-pads s to width runes so that colored columns still line up.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func statusCell(catalog *status.Catalog, id string, width int) string {
	s, ok := catalog.Find(id)
	if !ok {
		return dimLabel(pad(id, width))
	}
	cell := pad(s.Label, width)
	switch {
	case s.IsCancelled:
		return dimLabel(cell)
	case s.IsFinished:
		return successLabel(cell)
	case s.ID == catalog.HasCommentsID():
		return color.MagentaString(cell)
	case s.ID == catalog.HoldID():
		return warnLabel(cell)
	default:
		return cell
	}
}

func urgencyCell(u task.Urgency, width int) string {
	cell := pad(string(u), width)
	switch u {
	case task.UrgencyCritical:
		return errorLabel(cell)
	case task.UrgencyUrgent:
		return warnLabel(cell)
	default:
		return cell
	}
}

func progressBar(p *task.Progress, width int) string {
	filled := 0
	if p.Total > 0 {
		filled = width * p.Completed / p.Total
	}
	return successLabel(strings.Repeat("█", filled)) + dimLabel(strings.Repeat("░", width-filled))
}

func printOutcomes(outcomes []notification.Outcome) {
	if len(outcomes) == 0 {
		fmt.Println(dimLabel("no notifications sent"))
		return
	}
	for _, o := range outcomes {
		target := fmt.Sprintf("%s (%s, %s)", o.Recipient, o.Group, o.Channel)
		if o.Err != nil {
			fmt.Printf("%s %s: %v\n", errorLabel("✗"), target, o.Err)
			continue
		}
		fmt.Printf("%s %s\n", successLabel("✓"), target)
	}
}

func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Println(headerLabel(line))
		case strings.HasPrefix(line, "+"):
			fmt.Println(successLabel(line))
		case strings.HasPrefix(line, "-"):
			fmt.Println(errorLabel(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Println(idLabel(line))
		default:
			fmt.Println(line)
		}
	}
}
