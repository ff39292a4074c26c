package state

import (
	"context"

	"github.com/Joseda-hg/taskdock/internal/model"
)

// Link keeps the collections tied to the session: they are cleared whenever
// the signed-in identity goes away or changes, and reloaded unfiltered when a
// user signs in. A call rejected with a stale credential signs the session
// out. ctx is used for the reloads. The returned function detaches the
// collections.
func Link(ctx context.Context, session *Session, tasks *Tasks, tags *Tags) func() {
	return LinkQuery(ctx, session, tasks, tags, model.TaskQuery{})
}

// LinkQuery is Link with the task query used on sign-in, so a client with a
// non-default page size does not need a second fetch.
func LinkQuery(ctx context.Context, session *Session, tasks *Tasks, tags *Tags, reload model.TaskQuery) func() {
	load := func() {
		tasks.Clear()
		tags.Clear()
		tasks.Fetch(ctx, reload)
		if session.IsAuthenticated() {
			tags.Fetch(ctx)
		}
	}

	signOut := func() {
		if err := session.ClearAuth(); err != nil {
			session.log.Warn().Err(err).Msg("clear rejected credential")
		}
	}
	tasks.setUnauthorized(signOut)
	tags.setUnauthorized(signOut)

	unlink := session.OnChange(func(change AuthChange) {
		if change.Current == nil {
			tasks.Clear()
			tags.Clear()
			return
		}
		load()
	})

	if session.IsAuthenticated() {
		load()
	}
	return func() {
		unlink()
		tasks.setUnauthorized(nil)
		tags.setUnauthorized(nil)
	}
}
