package model

import "time"

// Patch is a partial update keyed by JSON field name.
type Patch map[string]any

// TaskUpdateFields lists the task fields the backend accepts on update.
var TaskUpdateFields = []string{"title", "description", "priority", "status", "dueDate", "tagIds"}

// Only returns a copy of p holding just the given keys.
func (p Patch) Only(keys ...string) Patch {
	out := make(Patch, len(keys))
	for _, key := range keys {
		if value, ok := p[key]; ok {
			out[key] = value
		}
	}
	return out
}

// TaskPatch turns a whole task into a patch, the way an edit form submits it.
func TaskPatch(task Task) Patch {
	patch := Patch{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"priority":    task.Priority,
		"status":      task.Status,
		"userId":      task.UserID,
		"createdAt":   task.CreatedAt,
		"updatedAt":   task.UpdatedAt,
		"tags":        task.Tags,
		"tagIds":      task.TagIDs(),
	}
	if task.DueDate != nil {
		patch["dueDate"] = task.DueDate.Format(time.RFC3339)
	}
	return patch
}
