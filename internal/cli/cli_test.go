package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Joseda-hg/taskdock/internal/api"
	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/web"
)

type harness struct {
	t      *testing.T
	dir    string
	apiURL string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	backend := web.NewServer(db.NewStore(database), web.Options{JWTSecret: []byte("cli-secret"), Logger: zerolog.Nop()})
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv("TASKDOCK_LOG_PATH", filepath.Join(dir, "taskdock.log"))
	return &harness{t: t, dir: dir, apiURL: server.URL + "/api"}
}

// run executes the command tree with stdin as input and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args,
		"--config", filepath.Join(h.dir, "config.json"),
		"--state", filepath.Join(h.dir, "state.db"),
		"--api-url", h.apiURL,
	))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, err := h.run(stdin, args...)
	if err != nil {
		h.t.Fatalf("taskdock %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func TestAuthCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("secret1\n", "register", "--email", "ann@x.com", "--name", "Ann")
	if out != "Signed in as Ann <ann@x.com>\n" {
		t.Fatalf("unexpected register output %q", out)
	}

	out = h.mustRun("", "whoami")
	if !strings.HasPrefix(out, "Ann <ann@x.com>\n") {
		t.Fatalf("unexpected whoami output %q", out)
	}

	if out := h.mustRun("", "logout"); out != "Signed out\n" {
		t.Fatalf("unexpected logout output %q", out)
	}
	if _, err := h.run("", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected not logged in, got %v", err)
	}

	_, err := h.run("wrong-pw\n", "login", "--email", "ann@x.com")
	if err == nil || err.Error() != "Invalid email or password. Please check your credentials." {
		t.Fatalf("unexpected login error %v", err)
	}

	out = h.mustRun("ann@x.com\nsecret1\n", "login")
	if out != "Signed in as Ann <ann@x.com>\n" {
		t.Fatalf("unexpected login output %q", out)
	}
}

func TestLoginWithToken(t *testing.T) {
	h := newHarness(t)
	client := api.New(h.apiURL, nil)
	if _, err := client.Register(context.Background(), "bo@x.com", "Bo", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := h.run("", "login", "--token", "not-a-token"); err == nil || !strings.Contains(err.Error(), "token rejected") {
		t.Fatalf("expected rejected token, got %v", err)
	}

	result, err := client.Login(context.Background(), "bo@x.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	out := h.mustRun("", "login", "--token", result.Token)
	if out != "Signed in as Bo <bo@x.com>\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTaskCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("secret1\n", "register", "--email", "cy@x.com", "--name", "Cy")

	if _, err := h.run("", "tasks", "list", "--priority", "urgent"); err == nil || err.Error() != `invalid priority "URGENT"` {
		t.Fatalf("expected priority validation, got %v", err)
	}

	out := h.mustRun("", "tags", "add", "errands", "--color", "#10B981")
	if !strings.HasPrefix(out, "Created tag errands") {
		t.Fatalf("unexpected tags add output %q", out)
	}

	out = h.mustRun("", "tasks", "add", "Buy", "milk", "--priority", "high", "--tags", "errands", "--due", "2026-06-01")
	id := strings.TrimSpace(strings.TrimPrefix(out, "Created task "))
	if id == "" || id == strings.TrimSpace(out) {
		t.Fatalf("unexpected add output %q", out)
	}
	h.mustRun("", "tasks", "add", "Call plumber", "--priority", "low")

	out = h.mustRun("", "tasks", "list", "--priority", "HIGH")
	if !strings.Contains(out, "Buy milk") || strings.Contains(out, "Call plumber") {
		t.Fatalf("unexpected filtered list:\n%s", out)
	}
	out = h.mustRun("", "tasks", "list", "--tags", "errands")
	if !strings.Contains(out, "Buy milk") || strings.Contains(out, "Call plumber") {
		t.Fatalf("unexpected tag filtered list:\n%s", out)
	}

	h.mustRun("", "tasks", "update", id, "--title", "Buy oat milk", "--due", "")
	out = h.mustRun("", "tasks", "show", id)
	if !strings.HasPrefix(out, "Buy oat milk\n") || strings.Contains(out, "due:") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
	if !strings.Contains(out, "priority:  HIGH") || !strings.Contains(out, "tags:      errands") {
		t.Fatalf("update must keep untouched fields:\n%s", out)
	}

	if _, err := h.run("", "tasks", "update", id); err == nil {
		t.Fatalf("expected error for empty update")
	}

	if out := h.mustRun("", "tasks", "done", id); out != "Completed \"Buy oat milk\"\n" {
		t.Fatalf("unexpected done output %q", out)
	}
	out = h.mustRun("", "tasks", "list", "--status", "completed")
	if !strings.Contains(out, "Buy oat milk") || !strings.Contains(out, "Page 1/1, 1 tasks") {
		t.Fatalf("unexpected completed list:\n%s", out)
	}

	path := filepath.Join(h.dir, "tasks.xlsx")
	if out := h.mustRun("", "tasks", "export", "--out", path); out != "Exported 2 tasks to "+path+"\n" {
		t.Fatalf("unexpected export output %q", out)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("expected workbook at %s: %v", path, err)
	}

	h.mustRun("", "tasks", "rm", id)
	if _, err := h.run("", "tasks", "show", id); err == nil || err.Error() != "Task not found" {
		t.Fatalf("expected task to be gone, got %v", err)
	}
}

func TestTagCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("secret1\n", "register", "--email", "di@x.com", "--name", "Di")

	if out := h.mustRun("", "tags", "list"); out != "No tags yet.\n" {
		t.Fatalf("unexpected empty list %q", out)
	}
	out := h.mustRun("", "tags", "add", "home")
	id := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(out), "Created tag home ("), ")")

	if _, err := h.run("", "tags", "add", "home"); err == nil || err.Error() != "Tag already exists" {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	h.mustRun("", "tags", "update", id, "--name", "house", "--color", "#EF4444")
	out = h.mustRun("", "tags", "list")
	if !strings.Contains(out, "house") || !strings.Contains(out, "#EF4444") {
		t.Fatalf("unexpected list:\n%s", out)
	}

	h.mustRun("", "tags", "rm", id)
	if out := h.mustRun("", "tags", "list"); out != "No tags yet.\n" {
		t.Fatalf("expected tag removal, got %q", out)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"tasks", "list"}, {"tags", "list"}, {"tasks", "add", "x"}} {
		if _, err := h.run("", args...); !errors.Is(err, errNotLoggedIn) {
			t.Fatalf("%v: expected not logged in, got %v", args, err)
		}
	}
}

func TestHealthCommand(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("", "health")
	if !strings.HasPrefix(out, "OK (up ") {
		t.Fatalf("unexpected health output %q", out)
	}
}
