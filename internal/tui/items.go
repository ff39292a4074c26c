package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/taskdock/internal/model"
)

type tagCountEntry struct {
	ID    string
	Name  string
	Color string
	Count int
}

func formatTags(tags []model.Tag) string {
	if len(tags) == 0 {
		return "no tags"
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, tag.Name)
	}
	return strings.Join(parts, ",")
}

func statusMark(status model.Status) string {
	switch status {
	case model.StatusInProgress:
		return "[~]"
	case model.StatusCompleted:
		return "[x]"
	case model.StatusCancelled:
		return "[-]"
	default:
		return "[ ]"
	}
}

func priorityMark(priority model.Priority) string {
	switch priority {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityLow:
		return "!"
	default:
		return "!!"
	}
}

func formatDue(task model.Task, now time.Time) string {
	if task.DueDate == nil {
		return "n/a"
	}
	label := model.RelativeDue(*task.DueDate, now)
	if isOpen(task.Status) && model.IsOverdue(*task.DueDate, now) {
		label += " (overdue)"
	}
	return label
}

func formatTaskSummary(task model.Task, now time.Time) string {
	summary := fmt.Sprintf("%s %-3s %s", statusMark(task.Status), priorityMark(task.Priority), task.Title)
	if task.DueDate != nil {
		summary += " | " + formatDue(task, now)
	}
	if len(task.Tags) > 0 {
		summary += " | " + formatTags(task.Tags)
	}
	return summary
}

func isOpen(status model.Status) bool {
	return status != model.StatusCompleted && status != model.StatusCancelled
}

// splitTasks separates a page into open and closed tasks, keeping server order.
func splitTasks(tasks []model.Task) (open []model.Task, closed []model.Task) {
	open = make([]model.Task, 0, len(tasks))
	closed = make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if isOpen(task.Status) {
			open = append(open, task)
		} else {
			closed = append(closed, task)
		}
	}
	return open, closed
}

// buildTagEntries counts how many loaded tasks carry each tag. Busier tags
// sort first.
func buildTagEntries(tags []model.Tag, tasks []model.Task) []tagCountEntry {
	counts := make(map[string]int, len(tags))
	for _, task := range tasks {
		for _, tag := range task.Tags {
			counts[tag.ID]++
		}
	}

	entries := make([]tagCountEntry, 0, len(tags))
	for _, tag := range tags {
		entries = append(entries, tagCountEntry{ID: tag.ID, Name: tag.Name, Color: tag.Color, Count: counts[tag.ID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}

func filterLabel(value string) string {
	if value == "" {
		return model.FilterAll
	}
	return value
}

// cycleValue steps through order starting from current. Unknown values
// restart at the first entry.
func cycleValue(order []string, current string, delta int) string {
	if len(order) == 0 {
		return current
	}
	index := -1
	for i, value := range order {
		if value == current {
			index = i
			break
		}
	}
	if index < 0 {
		return order[0]
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}

func priorityFilterOrder() []string {
	order := []string{model.FilterAll}
	for _, priority := range model.Priorities {
		order = append(order, string(priority))
	}
	return order
}

func statusFilterOrder() []string {
	order := []string{model.FilterAll}
	for _, status := range model.Statuses {
		order = append(order, string(status))
	}
	return order
}
