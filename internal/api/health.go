package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Joseda-hg/taskdock/internal/model"
)

// Health queries the backend's /health endpoint, which lives beside the /api
// prefix rather than under it.
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	root := strings.TrimSuffix(c.baseURL, "/api")
	var health model.Health
	if err := c.send(ctx, http.MethodGet, root+"/health", "", nil, &health); err != nil {
		return model.Health{}, err
	}
	return health, nil
}
