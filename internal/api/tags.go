package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Joseda-hg/taskdock/internal/model"
)

type tagEnvelope struct {
	Message string    `json:"message,omitempty"`
	Tag     model.Tag `json:"tag"`
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var payload struct {
		Tags []model.Tag `json:"tags"`
	}
	if err := c.authedRequest(ctx, http.MethodGet, "/tags", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tags, nil
}

func (c *Client) GetTag(ctx context.Context, id string) (model.Tag, error) {
	var payload tagEnvelope
	if err := c.authedRequest(ctx, http.MethodGet, "/tags/"+url.PathEscape(id), nil, &payload); err != nil {
		return model.Tag{}, err
	}
	return payload.Tag, nil
}

func (c *Client) CreateTag(ctx context.Context, input model.TagInput) (model.Tag, error) {
	var payload tagEnvelope
	if err := c.authedRequest(ctx, http.MethodPost, "/tags", input, &payload); err != nil {
		return model.Tag{}, err
	}
	return payload.Tag, nil
}

func (c *Client) UpdateTag(ctx context.Context, id string, patch model.Patch) (model.Tag, error) {
	var payload tagEnvelope
	if err := c.authedRequest(ctx, http.MethodPut, "/tags/"+url.PathEscape(id), patch, &payload); err != nil {
		return model.Tag{}, err
	}
	return payload.Tag, nil
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.authedRequest(ctx, http.MethodDelete, "/tags/"+url.PathEscape(id), nil, nil)
}
