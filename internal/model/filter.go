package model

import (
	"net/url"
	"strconv"
	"strings"
)

// FilterAll is the filter value meaning "no filter"; it is never sent to the server.
const FilterAll = "all"

type TaskQuery struct {
	Priority Priority
	Status   Status
	Search   string
	Page     int
	Limit    int
}

func (q TaskQuery) Values() url.Values {
	values := url.Values{}
	if q.Priority != "" {
		values.Set("priority", string(q.Priority))
	}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

type FilterState struct {
	Priority     string
	Status       string
	Search       string
	SelectedTags map[string]struct{}
}

func NewFilterState() FilterState {
	return FilterState{
		Priority:     FilterAll,
		Status:       FilterAll,
		SelectedTags: make(map[string]struct{}),
	}
}

func (f FilterState) Query() TaskQuery {
	var query TaskQuery
	if f.Priority != "" && f.Priority != FilterAll {
		query.Priority = Priority(f.Priority)
	}
	if f.Status != "" && f.Status != FilterAll {
		query.Status = Status(f.Status)
	}
	query.Search = strings.TrimSpace(f.Search)
	return query
}

func (f *FilterState) ToggleTag(id string) {
	if f.SelectedTags == nil {
		f.SelectedTags = make(map[string]struct{})
	}
	if _, ok := f.SelectedTags[id]; ok {
		delete(f.SelectedTags, id)
		return
	}
	f.SelectedTags[id] = struct{}{}
}

func (f FilterState) TagSelected(id string) bool {
	_, ok := f.SelectedTags[id]
	return ok
}

// Match reports whether task carries any of the selected tags. An empty
// selection matches everything.
func (f FilterState) Match(task Task) bool {
	if len(f.SelectedTags) == 0 {
		return true
	}
	for _, tag := range task.Tags {
		if f.TagSelected(tag.ID) {
			return true
		}
	}
	return false
}

func (f FilterState) Visible(tasks []Task) []Task {
	result := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			result = append(result, task)
		}
	}
	return result
}
