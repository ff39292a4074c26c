// Package api is the HTTP client for the task backend. It attaches the stored
// bearer token to authenticated calls and turns non-2xx responses into *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TokenStore persists the credential token between runs. Token returns an
// empty string when nothing is stored.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// MemoryTokens keeps the token in memory only.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokens) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokens) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokens) ClearToken() error {
	return m.SetToken("")
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) HasToken() bool {
	token, err := c.tokens.Token()
	if err != nil {
		c.log.Warn().Err(err).Msg("read stored token")
		return false
	}
	return token != ""
}

func (c *Client) SetToken(token string) error {
	if err := c.tokens.SetToken(token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (c *Client) authedRequest(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		c.log.Debug().Str("method", method).Str("endpoint", endpoint).Msg("no token for authenticated request")
		return ErrNoToken
	}
	return c.send(ctx, method, c.baseURL+endpoint, token, body, out)
}

func (c *Client) publicRequest(ctx context.Context, method, endpoint string, body, out any) error {
	return c.send(ctx, method, c.baseURL+endpoint, "", body, out)
}

func (c *Client) send(ctx context.Context, method, url, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Warn().Err(err).Str("method", method).Str("url", url).Msg("request failed")
		return &Error{Message: networkFailureMessage, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: networkFailureMessage, Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
