package state

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/api"
	"github.com/Joseda-hg/taskdock/internal/model"
)

type TagAPI interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, input model.TagInput) (model.Tag, error)
	UpdateTag(ctx context.Context, id string, patch model.Patch) (model.Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

type TagsSnapshot struct {
	Tags    []model.Tag
	Loading bool
	Err     string
}

// Tags mirrors the user's tags. Updates send the patch unfiltered.
type Tags struct {
	api TagAPI
	log zerolog.Logger

	mu       sync.Mutex
	tags     []model.Tag
	inflight int
	err      string

	unauthorized func()

	changed listeners[struct{}]
}

func NewTags(api TagAPI, logger zerolog.Logger) *Tags {
	return &Tags{api: api, log: logger, tags: []model.Tag{}}
}

func (t *Tags) Fetch(ctx context.Context) {
	t.begin()

	tags, err := t.api.ListTags(ctx)
	if err != nil {
		t.fail(err, "Failed to fetch tags")
		return
	}

	t.finish(func() {
		if tags == nil {
			tags = []model.Tag{}
		}
		t.tags = tags
	})
}

// Create appends the server's copy of the new tag.
func (t *Tags) Create(ctx context.Context, input model.TagInput) (model.Tag, error) {
	t.begin()

	created, err := t.api.CreateTag(ctx, input)
	if err != nil {
		t.fail(err, "Failed to create tag")
		return model.Tag{}, err
	}

	t.finish(func() { t.tags = append(t.tags, created) })
	return created, nil
}

func (t *Tags) Update(ctx context.Context, id string, patch model.Patch) (model.Tag, error) {
	t.begin()

	updated, err := t.api.UpdateTag(ctx, id, patch)
	if err != nil {
		t.fail(err, "Failed to update tag")
		return model.Tag{}, err
	}

	t.finish(func() {
		for i := range t.tags {
			if t.tags[i].ID == id {
				t.tags[i] = updated
				return
			}
		}
	})
	return updated, nil
}

func (t *Tags) Delete(ctx context.Context, id string) error {
	t.begin()

	if err := t.api.DeleteTag(ctx, id); err != nil {
		t.fail(err, "Failed to delete tag")
		return err
	}

	t.finish(func() {
		t.tags = slices.DeleteFunc(t.tags, func(tag model.Tag) bool { return tag.ID == id })
	})
	return nil
}

func (t *Tags) Clear() {
	t.update(func() {
		t.tags = []model.Tag{}
		t.err = ""
	})
}

func (t *Tags) Tags() []model.Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tags)
}

func (t *Tags) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight > 0
}

func (t *Tags) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tags) Snapshot() TagsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TagsSnapshot{Tags: slices.Clone(t.tags), Loading: t.inflight > 0, Err: t.err}
}

func (t *Tags) Subscribe(fn func()) func() {
	return subscribeFunc(&t.changed, fn)
}

func (t *Tags) setUnauthorized(fn func()) {
	t.mu.Lock()
	t.unauthorized = fn
	t.mu.Unlock()
}

func (t *Tags) begin() {
	t.update(func() {
		t.inflight++
		t.err = ""
	})
}

func (t *Tags) finish(fn func()) {
	t.update(func() {
		t.inflight--
		fn()
	})
}

func (t *Tags) fail(err error, fallback string) {
	t.log.Warn().Err(err).Msg(fallback)
	t.finish(func() { t.err = errorMessage(err, fallback) })

	t.mu.Lock()
	unauthorized := t.unauthorized
	t.mu.Unlock()
	if unauthorized != nil && api.IsUnauthorized(err) {
		unauthorized()
	}
}

func (t *Tags) update(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
	t.changed.emit(struct{}{})
}
