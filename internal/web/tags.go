package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/model"
)

type tagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) getTagHandler(w http.ResponseWriter, r *http.Request) {
	tag, err := s.store.GetTag(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": tag})
}

func (s *Server) createTagHandler(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	input := model.TagInput{Name: *req.Name}
	if req.Color != nil {
		input.Color = *req.Color
	}
	tag, err := s.store.CreateTag(r.Context(), userIDFromContext(r.Context()), input)
	if errors.Is(err, db.ErrTagExists) {
		writeError(w, http.StatusBadRequest, "Tag already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Tag created successfully", "tag": tag})
}

func (s *Server) updateTagHandler(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	tag, err := s.store.UpdateTag(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), db.TagChanges{Name: req.Name, Color: req.Color})
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	case errors.Is(err, db.ErrTagExists):
		writeError(w, http.StatusBadRequest, "Tag already exists")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Tag updated successfully", "tag": tag})
}

func (s *Server) deleteTagHandler(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTag(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Tag not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tag deleted successfully"})
}
