package state

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/api"
	"github.com/Joseda-hg/taskdock/internal/model"
)

type TaskAPI interface {
	ListTasks(ctx context.Context, query model.TaskQuery) (model.TaskPage, error)
	CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.Patch) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TasksSnapshot is a consistent copy of the task store's state.
type TasksSnapshot struct {
	Tasks      []model.Task
	Pagination model.Pagination
	Loading    bool
	Err        string
}

// Tasks mirrors one page of the user's tasks. Overlapping fetches are not
// ordered: the response that resolves last wins.
type Tasks struct {
	api TaskAPI
	log zerolog.Logger

	mu         sync.Mutex
	tasks      []model.Task
	pagination model.Pagination
	inflight   int
	err        string

	unauthorized func()

	changed listeners[struct{}]
}

func NewTasks(api TaskAPI, logger zerolog.Logger) *Tasks {
	return &Tasks{api: api, log: logger, tasks: []model.Task{}, pagination: model.DefaultPagination()}
}

// Fetch replaces the list and pagination with the server's page. A failure
// is recorded in Err and the previous list is kept.
func (t *Tasks) Fetch(ctx context.Context, query model.TaskQuery) {
	t.begin()

	page, err := t.api.ListTasks(ctx, query)
	if err != nil {
		t.fail(err, "Failed to fetch tasks")
		return
	}

	t.finish(func() {
		if page.Tasks == nil {
			page.Tasks = []model.Task{}
		}
		t.tasks = page.Tasks
		t.pagination = page.Pagination
	})
}

// Create adds the server's copy of the new task at the head of the list.
func (t *Tasks) Create(ctx context.Context, input model.TaskInput) (model.Task, error) {
	t.begin()

	created, err := t.api.CreateTask(ctx, input)
	if err != nil {
		t.fail(err, "Failed to create task")
		return model.Task{}, err
	}

	t.finish(func() {
		t.tasks = append([]model.Task{created}, t.tasks...)
	})
	return created, nil
}

// Update sends only the updatable fields of patch and replaces the matching
// entry in place. An unknown id leaves the list untouched.
func (t *Tasks) Update(ctx context.Context, id string, patch model.Patch) (model.Task, error) {
	t.begin()

	updated, err := t.api.UpdateTask(ctx, id, patch.Only(model.TaskUpdateFields...))
	if err != nil {
		t.fail(err, "Failed to update task")
		return model.Task{}, err
	}

	t.finish(func() {
		for i := range t.tasks {
			if t.tasks[i].ID == id {
				t.tasks[i] = updated
				return
			}
		}
	})
	return updated, nil
}

func (t *Tasks) Delete(ctx context.Context, id string) error {
	t.begin()

	if err := t.api.DeleteTask(ctx, id); err != nil {
		t.fail(err, "Failed to delete task")
		return err
	}

	t.finish(func() {
		t.tasks = slices.DeleteFunc(t.tasks, func(task model.Task) bool { return task.ID == id })
	})
	return nil
}

// Clear resets the store to its initial state. In-flight calls are not
// cancelled.
func (t *Tasks) Clear() {
	t.update(func() {
		t.tasks = []model.Task{}
		t.pagination = model.DefaultPagination()
		t.err = ""
	})
}

func (t *Tasks) Tasks() []model.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tasks)
}

func (t *Tasks) Pagination() model.Pagination {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pagination
}

func (t *Tasks) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight > 0
}

// Err returns the last recorded error message, or "".
func (t *Tasks) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tasks) Snapshot() TasksSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TasksSnapshot{
		Tasks:      slices.Clone(t.tasks),
		Pagination: t.pagination,
		Loading:    t.inflight > 0,
		Err:        t.err,
	}
}

// Subscribe registers fn to run after every state change.
func (t *Tasks) Subscribe(fn func()) func() {
	return subscribeFunc(&t.changed, fn)
}

// setUnauthorized registers fn to run when a call is rejected for a missing
// or stale credential.
func (t *Tasks) setUnauthorized(fn func()) {
	t.mu.Lock()
	t.unauthorized = fn
	t.mu.Unlock()
}

func (t *Tasks) begin() {
	t.update(func() {
		t.inflight++
		t.err = ""
	})
}

func (t *Tasks) finish(fn func()) {
	t.update(func() {
		t.inflight--
		fn()
	})
}

func (t *Tasks) fail(err error, fallback string) {
	t.log.Warn().Err(err).Msg(fallback)
	t.finish(func() { t.err = errorMessage(err, fallback) })

	t.mu.Lock()
	unauthorized := t.unauthorized
	t.mu.Unlock()
	if unauthorized != nil && api.IsUnauthorized(err) {
		unauthorized()
	}
}

func (t *Tasks) update(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
	t.changed.emit(struct{}{})
}
