package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Joseda-hg/taskdock/internal/model"
)

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, name, password string) (model.AuthResult, error) {
	body := map[string]string{"email": email, "name": name, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

// Login signs in and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body map[string]string) (model.AuthResult, error) {
	var result model.AuthResult
	if err := c.publicRequest(ctx, http.MethodPost, endpoint, body, &result); err != nil {
		return model.AuthResult{}, err
	}
	if result.Token == "" {
		return model.AuthResult{}, &Error{StatusCode: http.StatusOK, Message: "Authentication response did not include a token"}
	}
	if err := c.tokens.SetToken(result.Token); err != nil {
		return model.AuthResult{}, fmt.Errorf("store token: %w", err)
	}
	c.log.Info().Str("user_id", result.User.ID).Str("endpoint", endpoint).Msg("authenticated")
	return result, nil
}

// Logout drops the stored token. The backend keeps no session state.
func (c *Client) Logout() error {
	if err := c.tokens.ClearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var payload struct {
		User model.User `json:"user"`
	}
	if err := c.authedRequest(ctx, http.MethodGet, "/auth/profile", nil, &payload); err != nil {
		return model.User{}, err
	}
	return payload.User, nil
}
