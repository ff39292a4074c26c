package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken is returned by authenticated calls when no credential is stored.
// No request is sent in that case.
var ErrNoToken = errors.New("Access token required")

const networkFailureMessage = "Network request failed"

// Error is a failed call. StatusCode is zero for transport failures.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorFromResponse(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return &Error{StatusCode: status, Message: payload.Message}
	}
	return &Error{StatusCode: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports a missing or rejected credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNoToken) || StatusCode(err) == http.StatusUnauthorized
}

type Kind int

const (
	KindUnknown Kind = iota
	KindNoToken
	KindNetwork
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindInvalidCredentials
	KindUserNotFound
	KindDuplicateEmail
	KindInvalidEmail
	KindWeakPassword
)

func (k Kind) String() string {
	switch k {
	case KindNoToken:
		return "no-token"
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not-found"
	case KindRateLimited:
		return "rate-limited"
	case KindInvalidCredentials:
		return "invalid-credentials"
	case KindUserNotFound:
		return "user-not-found"
	case KindDuplicateEmail:
		return "duplicate-email"
	case KindInvalidEmail:
		return "invalid-email"
	case KindWeakPassword:
		return "weak-password"
	default:
		return "unknown"
	}
}

// Classify maps an error to a Kind, looking at the server message first and
// the HTTP status second.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrNoToken) {
		return KindNoToken
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "Too many requests"), strings.Contains(message, "Too many authentication attempts"):
		return KindRateLimited
	case strings.Contains(message, "Invalid credentials"):
		return KindInvalidCredentials
	case strings.Contains(message, "User not found"):
		return KindUserNotFound
	case strings.Contains(message, "Email already exists"):
		return KindDuplicateEmail
	case strings.Contains(message, "Invalid email"):
		return KindInvalidEmail
	case strings.Contains(message, "Password"):
		return KindWeakPassword
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0 && apiErr.Err != nil:
			return KindNetwork
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimited
		case apiErr.StatusCode == http.StatusUnauthorized:
			return KindUnauthorized
		case apiErr.StatusCode == http.StatusNotFound:
			return KindNotFound
		}
	}
	return KindUnknown
}

// FriendlyMessage rewrites err for an auth form. action names the attempt in
// the rate-limit text, e.g. "login" or "registration".
func FriendlyMessage(err error, action string) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case KindRateLimited:
		return fmt.Sprintf("Too many %s attempts. Please wait 15 minutes before trying again.", action)
	case KindInvalidCredentials:
		return "Invalid email or password. Please check your credentials."
	case KindUserNotFound:
		return "No account found with this email address."
	case KindDuplicateEmail:
		return "An account with this email already exists. Please use a different email or try logging in."
	case KindInvalidEmail:
		return "Please enter a valid email address."
	case KindWeakPassword:
		return "Password must be at least 6 characters long."
	}
	return err.Error()
}
