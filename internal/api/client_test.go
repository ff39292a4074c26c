package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Joseda-hg/taskdock/internal/model"
	"github.com/google/go-cmp/cmp"
)

func TestAuthenticatedCallWithoutTokenSendsNothing(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := New(server.URL+"/api", &MemoryTokens{}, WithHTTPClient(server.Client()))
	_, err := client.ListTasks(context.Background(), model.TaskQuery{})
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if err.Error() != "Access token required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request to reach the server, got %d", hits.Load())
	}
}

func TestLoginStoresTokenAndAuthorizesLaterCalls(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@x.com" || body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"a@x.com","name":"A"},"token":"tok-1"}`))
	})
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"tags":[{"id":"t1","name":"work","color":"#fff"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &MemoryTokens{}
	client := New(server.URL+"/api", tokens)

	result, err := client.Login(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != "u1" {
		t.Fatalf("expected user u1, got %q", result.User.ID)
	}
	if stored, _ := tokens.Token(); stored != "tok-1" {
		t.Fatalf("expected token to be stored, got %q", stored)
	}

	tags, err := client.ListTags(context.Background())
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "work" {
		t.Fatalf("unexpected tags %+v", tags)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}

	if err := client.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if client.HasToken() {
		t.Fatalf("expected token to be cleared")
	}
}

func TestErrorMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Email already exists"}`))
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &MemoryTokens{}
	_ = tokens.SetToken("tok")
	client := New(server.URL+"/api", tokens)

	_, err := client.Register(context.Background(), "a@x.com", "A", "secret")
	if err == nil || err.Error() != "Email already exists" {
		t.Fatalf("expected server message, got %v", err)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", StatusCode(err))
	}
	if Classify(err) != KindDuplicateEmail {
		t.Fatalf("expected duplicate-email, got %s", Classify(err))
	}

	_, err = client.ListTasks(context.Background(), model.TaskQuery{})
	if err == nil || err.Error() != "HTTP error! status: 500" {
		t.Fatalf("expected generic status message, got %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(url+"/api", nil)
	_, err := client.Login(context.Background(), "a@x.com", "pw")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if err.Error() != networkFailureMessage {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if Classify(err) != KindNetwork {
		t.Fatalf("expected network kind, got %s", Classify(err))
	}
	if client.HasToken() {
		t.Fatalf("failed login must not store a token")
	}
}

func TestListTasksQueryAndUpdatePayload(t *testing.T) {
	var rawQuery string
	var updateBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"tasks":[],"pagination":{"page":1,"limit":10,"total":0,"pages":0}}`))
	})
	mux.HandleFunc("PUT /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &updateBody)
		_, _ = w.Write([]byte(`{"message":"ok","task":{"id":"` + r.PathValue("id") + `","title":"new"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &MemoryTokens{}
	_ = tokens.SetToken("tok")
	client := New(server.URL+"/api", tokens)

	page, err := client.ListTasks(context.Background(), model.TaskQuery{Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if rawQuery != "priority=HIGH" {
		t.Fatalf("unexpected query %q", rawQuery)
	}
	if page.Pagination.Limit != 10 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	task, err := client.UpdateTask(context.Background(), "42", model.Patch{"title": "new"})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if task.ID != "42" {
		t.Fatalf("expected task 42, got %q", task.ID)
	}
	if diff := cmp.Diff(map[string]any{"title": "new"}, updateBody); diff != "" {
		t.Fatalf("unexpected body (-want +got):\n%s", diff)
	}
}

func TestHealthUsesServerRoot(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"OK","timestamp":"2026-01-02T03:04:05Z","uptime":12.5}`))
	}))
	defer server.Close()

	health, err := New(server.URL+"/api", nil).Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if path != "/health" {
		t.Fatalf("expected /health, got %q", path)
	}
	if health.Status != "OK" || health.Uptime != 12.5 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestFriendlyMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&Error{StatusCode: 429, Message: "Too many authentication attempts"}, "Too many login attempts. Please wait 15 minutes before trying again."},
		{&Error{StatusCode: 401, Message: "Invalid credentials"}, "Invalid email or password. Please check your credentials."},
		{&Error{StatusCode: 404, Message: "User not found"}, "No account found with this email address."},
		{&Error{StatusCode: 400, Message: "Invalid email"}, "Please enter a valid email address."},
		{&Error{StatusCode: 400, Message: "Password must be at least 6 characters long"}, "Password must be at least 6 characters long."},
		{&Error{StatusCode: 500, Message: "HTTP error! status: 500"}, "HTTP error! status: 500"},
	}
	for _, tc := range cases {
		if got := FriendlyMessage(tc.err, "login"); got != tc.want {
			t.Fatalf("FriendlyMessage(%q) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if Classify(ErrNoToken) != KindNoToken || !IsUnauthorized(ErrNoToken) {
		t.Fatalf("expected ErrNoToken to classify as no-token and unauthorized")
	}
}
