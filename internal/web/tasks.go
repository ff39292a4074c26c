package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/model"
)

// taskRequest is the body of a create or update. Fields that are absent
// are left alone on update.
type taskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *model.Priority `json:"priority"`
	Status      *model.Status   `json:"status"`
	DueDate     json.RawMessage `json:"dueDate"`
	TagIDs      *[]string       `json:"tagIds"`
}

func (req taskRequest) validate() string {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return "Title is required"
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return "Invalid priority"
	}
	if req.Status != nil && !req.Status.Valid() {
		return "Invalid status"
	}
	return ""
}

// dueDate reports the requested due date. clear is true for an explicit
// null or empty string.
func (req taskRequest) dueDate() (due *time.Time, clear bool, err error) {
	raw := bytes.TrimSpace(req.DueDate)
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, true, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, false, nil
		}
	}
	return nil, false, errors.New("invalid due date")
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query := model.TaskQuery{
		Priority: model.Priority(strings.TrimSpace(values.Get("priority"))),
		Status:   model.Status(strings.TrimSpace(values.Get("status"))),
		Search:   values.Get("search"),
		Page:     atoiOrZero(values.Get("page")),
		Limit:    atoiOrZero(values.Get("limit")),
	}

	page, err := s.store.ListTasks(r.Context(), userIDFromContext(r.Context()), query)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if message := req.validate(); message != "" {
		writeError(w, http.StatusBadRequest, message)
		return
	}
	due, _, err := req.dueDate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due date")
		return
	}

	input := model.TaskInput{Title: *req.Title, DueDate: due}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.Priority != nil {
		input.Priority = *req.Priority
	}
	if req.Status != nil {
		input.Status = *req.Status
	}
	if req.TagIDs != nil {
		input.TagIDs = *req.TagIDs
	}

	task, err := s.store.CreateTask(r.Context(), userIDFromContext(r.Context()), input)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Task created successfully", "task": task})
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if message := req.validate(); message != "" {
		writeError(w, http.StatusBadRequest, message)
		return
	}
	due, clearDue, err := req.dueDate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due date")
		return
	}

	changes := db.TaskChanges{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		Status:       req.Status,
		DueDate:      due,
		ClearDueDate: clearDue,
	}
	if req.TagIDs != nil {
		changes.SetTags = true
		changes.TagIDs = *req.TagIDs
	}

	task, err := s.store.UpdateTask(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), changes)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task updated successfully", "task": task})
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTask(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func atoiOrZero(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
