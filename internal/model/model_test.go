package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFilterQueryOmitsAll(t *testing.T) {
	filter := NewFilterState()
	filter.Priority = string(PriorityHigh)

	values := filter.Query().Values()
	if values.Get("priority") != "HIGH" {
		t.Fatalf("expected priority=HIGH, got %q", values.Get("priority"))
	}
	if _, ok := values["status"]; ok {
		t.Fatalf("expected status to be omitted, got %v", values["status"])
	}
	if _, ok := values["search"]; ok {
		t.Fatalf("expected empty search to be omitted")
	}
	if encoded := values.Encode(); encoded != "priority=HIGH" {
		t.Fatalf("unexpected query string %q", encoded)
	}
}

func TestTaskQueryValues(t *testing.T) {
	query := TaskQuery{Status: StatusCompleted, Search: "  milk ", Page: 2, Limit: 20}
	want := "limit=20&page=2&search=milk&status=COMPLETED"
	if got := query.Values().Encode(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := (TaskQuery{}).Values().Encode(); got != "" {
		t.Fatalf("expected empty query for zero value, got %q", got)
	}
}

func TestFilterMatchesSelectedTags(t *testing.T) {
	work := Tag{ID: "t1", Name: "work"}
	home := Tag{ID: "t2", Name: "home"}
	tasks := []Task{
		{ID: "a", Tags: []Tag{work}},
		{ID: "b", Tags: []Tag{home}},
		{ID: "c"},
	}

	filter := NewFilterState()
	if got := len(filter.Visible(tasks)); got != 3 {
		t.Fatalf("expected empty selection to match all, got %d", got)
	}

	filter.ToggleTag("t1")
	visible := filter.Visible(tasks)
	if len(visible) != 1 || visible[0].ID != "a" {
		t.Fatalf("expected only task a, got %+v", visible)
	}

	filter.ToggleTag("t1")
	if filter.TagSelected("t1") {
		t.Fatalf("expected second toggle to deselect the tag")
	}
}

func TestPatchOnlyKeepsAllowedKeys(t *testing.T) {
	task := Task{ID: "1", Title: "Buy milk", Priority: PriorityLow, Status: StatusPending, UserID: "u1", Tags: []Tag{{ID: "t1"}}}
	patch := TaskPatch(task).Only(TaskUpdateFields...)

	want := Patch{
		"title":       "Buy milk",
		"description": "",
		"priority":    PriorityLow,
		"status":      StatusPending,
		"tagIds":      []string{"t1"},
	}
	if diff := cmp.Diff(want, patch); diff != "" {
		t.Fatalf("unexpected patch (-want +got):\n%s", diff)
	}
}

func TestRelativeDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"Today":        time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC),
		"Tomorrow":     time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC),
		"Mar 20, 2026": time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	for want, due := range cases {
		if got := RelativeDue(due, now); got != want {
			t.Fatalf("expected %q for %s, got %q", want, due, got)
		}
	}
	if !IsOverdue(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), now) {
		t.Fatalf("expected past date to be overdue")
	}
}
