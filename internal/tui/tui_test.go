package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/api"
	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/model"
	"github.com/Joseda-hg/taskdock/internal/state"
	"github.com/Joseda-hg/taskdock/internal/web"
)

type testEnv struct {
	server *httptest.Server
	client *api.Client
	ui     *UI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	backend := web.NewServer(db.NewStore(database), web.Options{JWTSecret: []byte("tui-secret"), Logger: zerolog.Nop()})
	server := httptest.NewServer(backend.Handler())
	t.Cleanup(server.Close)

	ctx := context.Background()
	client := api.New(server.URL+"/api", nil, api.WithTimeout(5*time.Second))
	session := state.NewSession(client, zerolog.Nop())
	tasks := state.NewTasks(client, zerolog.Nop())
	tags := state.NewTags(client, zerolog.Nop())
	t.Cleanup(state.Link(ctx, session, tasks, tags))
	session.Init(ctx)

	ui := newUI(ctx, Options{Session: session, Tasks: tasks, Tags: tags, Logger: zerolog.Nop()})
	ui.refresh()
	return &testEnv{server: server, client: client, ui: ui}
}

func signIn(t *testing.T, env *testEnv) {
	t.Helper()
	if err := env.ui.session.Register(context.Background(), "dana@x.com", "Dana", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	env.ui.refresh()
}

func createTask(t *testing.T, env *testEnv, input model.TaskInput) model.Task {
	t.Helper()
	task, err := env.ui.tasks.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Title, err)
	}
	env.ui.refresh()
	return task
}

func TestLoginFormShownWhenSignedOut(t *testing.T) {
	env := newTestEnv(t)
	ui := env.ui

	if ui.login == nil {
		t.Fatalf("expected login form for signed out session")
	}
	if !ui.inputActive() {
		t.Fatalf("expected login form to capture input")
	}
	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected task form to stay closed behind the login form")
	}
}

func TestLoginFormRegistersAndSignsIn(t *testing.T) {
	env := newTestEnv(t)
	ui := env.ui

	ui.login.fields[loginFieldMode].Value = modeRegister
	ui.login.fields[loginFieldEmail].Value = "erin@x.com"
	ui.login.fields[loginFieldPassword].Value = "secret1"

	if err := ui.submitLogin(nil, nil); err != nil {
		t.Fatalf("submit login: %v", err)
	}
	if ui.login.message != "Name is required" {
		t.Fatalf("expected name validation, got %q", ui.login.message)
	}

	ui.login.fields[loginFieldName].Value = "Erin"
	if err := ui.submitLogin(nil, nil); err != nil {
		t.Fatalf("submit login: %v", err)
	}
	if ui.login != nil {
		t.Fatalf("expected login form to close, message %q", ui.login.message)
	}
	if ui.status != "Signed in as erin@x.com" {
		t.Fatalf("unexpected status %q", ui.status)
	}
}

func TestLoginFormShowsFriendlyError(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.Register(context.Background(), "fay@x.com", "Fay", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := env.client.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	ui := env.ui

	ui.login.fields[loginFieldEmail].Value = "fay@x.com"
	ui.login.fields[loginFieldPassword].Value = "wrong-pw"
	if err := ui.submitLogin(nil, nil); err != nil {
		t.Fatalf("submit login: %v", err)
	}

	if ui.login == nil {
		t.Fatalf("expected login form to stay open")
	}
	if ui.login.message != "Invalid email or password. Please check your credentials." {
		t.Fatalf("unexpected message %q", ui.login.message)
	}
	if ui.login.fields[loginFieldPassword].Value != "" {
		t.Fatalf("expected password to be cleared")
	}
	if ui.session.IsAuthenticated() {
		t.Fatalf("expected session to stay signed out")
	}
}

func TestStepLoginFieldSkipsNameWhenSigningIn(t *testing.T) {
	ui := &UI{login: newLoginState()}

	ui.stepLoginField(1)
	if ui.login.index != loginFieldPassword {
		t.Fatalf("expected password field, got %d", ui.login.index)
	}

	ui.login.fields[loginFieldMode].Value = modeRegister
	ui.stepLoginField(-1)
	if ui.login.index != loginFieldName {
		t.Fatalf("expected name field, got %d", ui.login.index)
	}
}

func TestTaskFormCreatesAndEdits(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui

	tag, err := ui.tags.Create(context.Background(), model.TagInput{Name: "home"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	ui.refresh()

	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	ui.form.fields[fieldTitle].Value = "Water plants"
	ui.form.fields[fieldPriority].Value = string(model.PriorityHigh)
	ui.form.fields[fieldDue].Value = "2026-06-01"
	ui.form.fields[fieldTags].Value = "home"
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close, status %q", ui.status)
	}
	if len(ui.open) != 1 {
		t.Fatalf("expected 1 open task, got %d", len(ui.open))
	}
	created := ui.open[0]
	if diff := cmp.Diff([]string{tag.ID}, created.TagIDs()); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if created.DueDate == nil {
		t.Fatalf("expected due date")
	}

	ui.focus = viewOpen
	ui.selectedOpen = 0
	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit task: %v", err)
	}
	ui.form.fields[fieldTitle].Value = "Water all plants"
	ui.form.fields[fieldDue].Value = ""
	ui.form.fields[fieldTags].Value = ""
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}

	got := ui.tasks.Tasks()
	if len(got) != 1 {
		t.Fatalf("expected 1 task, got %d", len(got))
	}
	if got[0].Title != "Water all plants" || got[0].DueDate != nil || len(got[0].Tags) != 0 {
		t.Fatalf("unexpected task after edit: %+v", got[0])
	}
	if got[0].Priority != model.PriorityHigh {
		t.Fatalf("expected priority to survive edit, got %s", got[0].Priority)
	}
}

func TestTaskFormStaysOpenOnFailure(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui

	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form == nil || ui.status != "title is required" {
		t.Fatalf("expected local validation to keep the form, status %q", ui.status)
	}

	ui.form.fields[fieldTitle].Value = "Unsaved"
	env.server.Close()
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if ui.form == nil {
		t.Fatalf("expected form to stay open")
	}
	if ui.status != "Network request failed" {
		t.Fatalf("unexpected status %q", ui.status)
	}
	if ui.form.fields[fieldTitle].Value != "Unsaved" {
		t.Fatalf("expected form input to be kept")
	}
	if len(ui.tasks.Tasks()) != 0 {
		t.Fatalf("expected no tasks after failed create")
	}
}

func TestToggleTaskStates(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui
	createTask(t, env, model.TaskInput{Title: "Toggle status"})

	status := func() model.Status {
		t.Helper()
		tasks := ui.tasks.Tasks()
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		return tasks[0].Status
	}

	t.Run("toggle in progress", func(t *testing.T) {
		ui.focus = viewOpen
		ui.selectedOpen = 0
		if err := ui.toggleInProgress(nil, nil); err != nil {
			t.Fatalf("toggle in progress: %v", err)
		}
		if got := status(); got != model.StatusInProgress {
			t.Fatalf("expected IN_PROGRESS, got %s", got)
		}
		if err := ui.toggleInProgress(nil, nil); err != nil {
			t.Fatalf("toggle in progress again: %v", err)
		}
		if got := status(); got != model.StatusPending {
			t.Fatalf("expected PENDING, got %s", got)
		}
	})

	t.Run("toggle completed", func(t *testing.T) {
		ui.focus = viewOpen
		ui.selectedOpen = 0
		if err := ui.toggleCompleted(nil, nil); err != nil {
			t.Fatalf("toggle completed: %v", err)
		}
		if got := status(); got != model.StatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", got)
		}
		if len(ui.open) != 0 || len(ui.closed) != 1 {
			t.Fatalf("expected task to move to closed pane, open=%d closed=%d", len(ui.open), len(ui.closed))
		}

		ui.focus = viewClosed
		ui.selectedClosed = 0
		if err := ui.toggleCompleted(nil, nil); err != nil {
			t.Fatalf("toggle completed again: %v", err)
		}
		if got := status(); got != model.StatusPending {
			t.Fatalf("expected PENDING, got %s", got)
		}
	})
}

func TestDeleteTagRemovesTagAndFilter(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui

	tag, err := ui.tags.Create(context.Background(), model.TagInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	createTask(t, env, model.TaskInput{Title: "Tag cleanup", TagIDs: []string{tag.ID}})

	ui.focus = viewTags
	ui.selectedTags = 0
	if err := ui.toggleTagFilter(nil, nil); err != nil {
		t.Fatalf("toggle tag filter: %v", err)
	}
	if !ui.filter.TagSelected(tag.ID) {
		t.Fatalf("expected tag filter to be active")
	}

	if err := ui.deleteTag(nil, nil); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	if len(ui.tags.Tags()) != 0 {
		t.Fatalf("expected tags to be deleted, got %d", len(ui.tags.Tags()))
	}
	if len(ui.filter.SelectedTags) != 0 {
		t.Fatalf("expected active tags to be cleared")
	}
	tasks := ui.tasks.Tasks()
	if len(tasks) != 1 || len(tasks[0].Tags) != 0 {
		t.Fatalf("expected task tags to be cleared, got %+v", tasks)
	}
}

func TestTagFilterHidesUntaggedTasks(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui

	tag, err := ui.tags.Create(context.Background(), model.TagInput{Name: "errand"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	createTask(t, env, model.TaskInput{Title: "Untagged"})
	createTask(t, env, model.TaskInput{Title: "Post office", TagIDs: []string{tag.ID}})

	ui.focus = viewTags
	ui.selectedTags = 0
	if err := ui.toggleTagFilter(nil, nil); err != nil {
		t.Fatalf("toggle tag filter: %v", err)
	}
	if len(ui.open) != 1 || ui.open[0].Title != "Post office" {
		t.Fatalf("expected only the tagged task, got %+v", ui.open)
	}
	if len(ui.tasks.Tasks()) != 2 {
		t.Fatalf("tag filter must not touch the store")
	}
}

func TestCreateTagFromPrompt(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui

	ui.focus = viewTags
	if err := ui.openTagCreate(nil, nil); err != nil {
		t.Fatalf("open tag create: %v", err)
	}
	if err := ui.createTag("deep work #10B981"); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if ui.tagCreateActive {
		t.Fatalf("expected prompt to close, status %q", ui.status)
	}
	tags := ui.tags.Tags()
	if len(tags) != 1 || tags[0].Name != "deep work" || tags[0].Color != "#10B981" {
		t.Fatalf("unexpected tags %+v", tags)
	}

	ui.focus = viewTags
	if err := ui.openTagCreate(nil, nil); err != nil {
		t.Fatalf("open tag create: %v", err)
	}
	if err := ui.createTag("deep work"); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if !ui.tagCreateActive || ui.status != "Tag already exists" {
		t.Fatalf("expected duplicate to keep the prompt, status %q", ui.status)
	}
}

func TestFiltersDriveFetch(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui
	createTask(t, env, model.TaskInput{Title: "Low chore", Priority: model.PriorityLow})
	createTask(t, env, model.TaskInput{Title: "Urgent report", Priority: model.PriorityHigh, Description: "quarterly numbers"})

	if err := ui.cyclePriority(nil, nil); err != nil {
		t.Fatalf("cycle priority: %v", err)
	}
	if ui.filter.Priority != string(model.PriorityHigh) {
		t.Fatalf("expected HIGH filter, got %q", ui.filter.Priority)
	}
	if len(ui.open) != 1 || ui.open[0].Title != "Urgent report" {
		t.Fatalf("unexpected tasks for HIGH filter: %+v", ui.open)
	}

	if err := ui.clearFilters(nil, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if len(ui.open) != 2 {
		t.Fatalf("expected 2 tasks after clearing, got %d", len(ui.open))
	}

	ui.applySearch("  quarterly ")
	if ui.filter.Search != "quarterly" {
		t.Fatalf("expected trimmed search, got %q", ui.filter.Search)
	}
	if len(ui.open) != 1 || ui.open[0].Title != "Urgent report" {
		t.Fatalf("unexpected search results: %+v", ui.open)
	}
}

func TestPaging(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui
	ui.pageSize = 2
	for _, title := range []string{"one", "two", "three"} {
		createTask(t, env, model.TaskInput{Title: title})
	}
	if err := ui.reload(nil, nil); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next page: %v", err)
	}
	want := model.Pagination{Page: 2, Limit: 2, Total: 3, Pages: 2}
	if diff := cmp.Diff(want, ui.tasks.Pagination()); diff != "" {
		t.Fatalf("pagination mismatch (-want +got):\n%s", diff)
	}
	if len(ui.open) != 1 || ui.open[0].Title != "one" {
		t.Fatalf("unexpected second page: %+v", ui.open)
	}

	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if ui.tasks.Pagination().Page != 2 {
		t.Fatalf("expected to stay on the last page")
	}

	if err := ui.prevPage(nil, nil); err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if ui.tasks.Pagination().Page != 1 {
		t.Fatalf("expected first page, got %d", ui.tasks.Pagination().Page)
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui
	createTask(t, env, model.TaskInput{Title: "Private"})
	ui.filter.Priority = string(model.PriorityLow)

	if err := ui.logout(nil, nil); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ui.login == nil {
		t.Fatalf("expected login form after logout")
	}
	if len(ui.open) != 0 || len(ui.tasks.Tasks()) != 0 {
		t.Fatalf("expected task data to be dropped")
	}
	if ui.filter.Priority != model.FilterAll {
		t.Fatalf("expected filters to reset, got %q", ui.filter.Priority)
	}
	if env.client.HasToken() {
		t.Fatalf("expected token to be cleared")
	}
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	signIn(t, env)
	ui := env.ui
	createTask(t, env, model.TaskInput{Title: "Keep"})
	createTask(t, env, model.TaskInput{Title: "Drop"})

	ui.focus = viewOpen
	ui.selectedOpen = 0
	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if ui.status != `Deleted "Drop"` {
		t.Fatalf("unexpected status %q", ui.status)
	}
	if len(ui.open) != 1 || ui.open[0].Title != "Keep" {
		t.Fatalf("unexpected tasks %+v", ui.open)
	}
}

func TestOverlappingCallsStayBusy(t *testing.T) {
	env := newTestEnv(t)
	ui := env.ui
	queued := make(chan func(), 2)
	ui.dispatch = func(fn func()) { queued <- fn }

	release := make(chan struct{})
	finished := 0
	for range 2 {
		ui.async(func() error {
			<-release
			return nil
		}, func(error) { finished++ })
	}
	if !ui.busy() {
		t.Fatalf("expected busy while calls are running")
	}

	close(release)
	(<-queued)()
	if !ui.busy() {
		t.Fatalf("expected busy until the second call finishes")
	}
	(<-queued)()
	if ui.busy() || finished != 2 {
		t.Fatalf("expected idle after both calls, busy=%v finished=%d", ui.busy(), finished)
	}
}
