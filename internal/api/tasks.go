package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Joseda-hg/taskdock/internal/model"
)

type taskEnvelope struct {
	Message string     `json:"message,omitempty"`
	Task    model.Task `json:"task"`
}

func (c *Client) ListTasks(ctx context.Context, query model.TaskQuery) (model.TaskPage, error) {
	endpoint := "/tasks"
	if encoded := query.Values().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page model.TaskPage
	if err := c.authedRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return model.TaskPage{}, err
	}
	return page, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var payload taskEnvelope
	if err := c.authedRequest(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &payload); err != nil {
		return model.Task{}, err
	}
	return payload.Task, nil
}

func (c *Client) CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error) {
	var payload taskEnvelope
	if err := c.authedRequest(ctx, http.MethodPost, "/tasks", input, &payload); err != nil {
		return model.Task{}, err
	}
	return payload.Task, nil
}

// UpdateTask sends patch as-is; callers decide which fields go out.
func (c *Client) UpdateTask(ctx context.Context, id string, patch model.Patch) (model.Task, error) {
	var payload taskEnvelope
	if err := c.authedRequest(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), patch, &payload); err != nil {
		return model.Task{}, err
	}
	return payload.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.authedRequest(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}
