package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/taskdock/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldStatus
	fieldDue
	fieldTags
)

const dueLayout = "2006-01-02"

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Priority (space/←→)"},
		{Label: "Status (space/←→)"},
		{Label: "Due (YYYY-MM-DD)"},
		{Label: "Tags (space/←→)"},
	}

	if task == nil {
		fields[fieldPriority].Value = string(model.PriorityMedium)
		fields[fieldStatus].Value = string(model.StatusPending)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldStatus].Value = string(task.Status)
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Local().Format(dueLayout)
	}
	fields[fieldTags].Value = joinTags(task.Tags)
	return fields
}

// taskForm is what the editor collected, with tag names resolved to IDs.
type taskForm struct {
	Title       string
	Description string
	Priority    model.Priority
	Status      model.Status
	DueDate     *time.Time
	TagIDs      []string
}

func parseFormFields(fields []formField, tags []model.Tag) (taskForm, error) {
	title := strings.TrimSpace(fields[fieldTitle].Value)
	if title == "" {
		return taskForm{}, fmt.Errorf("title is required")
	}

	priority := model.Priority(strings.TrimSpace(fields[fieldPriority].Value))
	if !priority.Valid() {
		return taskForm{}, fmt.Errorf("invalid priority")
	}
	status := model.Status(strings.TrimSpace(fields[fieldStatus].Value))
	if !status.Valid() {
		return taskForm{}, fmt.Errorf("invalid status")
	}

	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return taskForm{}, err
	}

	tagIDs, err := resolveTags(parseTags(fields[fieldTags].Value), tags)
	if err != nil {
		return taskForm{}, err
	}

	return taskForm{
		Title:       title,
		Description: strings.TrimSpace(fields[fieldDescription].Value),
		Priority:    priority,
		Status:      status,
		DueDate:     due,
		TagIDs:      tagIDs,
	}, nil
}

func (f taskForm) input() model.TaskInput {
	return model.TaskInput{
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		Status:      f.Status,
		DueDate:     f.DueDate,
		TagIDs:      f.TagIDs,
	}
}

// patch applies the form on top of original and converts the result the
// way an edit submits it. A cleared due date is sent as null.
func (f taskForm) patch(original model.Task) model.Patch {
	edited := original
	edited.Title = f.Title
	edited.Description = f.Description
	edited.Priority = f.Priority
	edited.Status = f.Status
	edited.DueDate = f.DueDate

	patch := model.TaskPatch(edited)
	if f.DueDate == nil {
		patch["dueDate"] = nil
	}
	patch["tagIds"] = f.TagIDs
	return patch
}

func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dueLayout, trimmed, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date")
	}
	return &parsed, nil
}

func parseTags(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func resolveTags(names []string, tags []model.Tag) ([]string, error) {
	byName := make(map[string]string, len(tags))
	for _, tag := range tags {
		byName[tag.Name] = tag.ID
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinTags(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ", ")
}

// toggleTagName adds or removes name from a comma separated tag list.
func toggleTagName(value, name string) string {
	selected := make(map[string]struct{})
	for _, existing := range parseTags(value) {
		selected[existing] = struct{}{}
	}
	if _, ok := selected[name]; ok {
		delete(selected, name)
	} else {
		selected[name] = struct{}{}
	}

	ordered := make([]string, 0, len(selected))
	for existing := range selected {
		ordered = append(ordered, existing)
	}
	sort.Strings(ordered)
	return strings.Join(ordered, ", ")
}

// parseTagInput reads "name" or "name #RRGGBB" from the new tag prompt.
func parseTagInput(value string) model.TagInput {
	fields := strings.Fields(value)
	if len(fields) > 1 && strings.HasPrefix(fields[len(fields)-1], "#") {
		return model.TagInput{
			Name:  strings.Join(fields[:len(fields)-1], " "),
			Color: fields[len(fields)-1],
		}
	}
	return model.TagInput{Name: strings.Join(fields, " ")}
}

const (
	loginFieldMode = iota
	loginFieldEmail
	loginFieldName
	loginFieldPassword
)

const (
	modeLogin    = "login"
	modeRegister = "register"
)

func buildLoginFields() []formField {
	return []formField{
		{Label: "Mode (space/←→)", Value: modeLogin},
		{Label: "Email"},
		{Label: "Name (register only)"},
		{Label: "Password"},
	}
}
