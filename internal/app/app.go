// Package app wires the client: the local state database, the API client and
// one instance of each store.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/api"
	"github.com/Joseda-hg/taskdock/internal/config"
	"github.com/Joseda-hg/taskdock/internal/db"
	"github.com/Joseda-hg/taskdock/internal/model"
	"github.com/Joseda-hg/taskdock/internal/state"
)

type App struct {
	Config  config.Config
	Log     zerolog.Logger
	API     *api.Client
	Session *state.Session
	Tasks   *state.Tasks
	Tags    *state.Tags

	stateDB *sql.DB
	unlink  func()
}

// New opens the state database at cfg.StatePath and links the stores. ctx
// bounds the reloads triggered by sign-in.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	if err := config.EnsureDir(cfg.StatePath); err != nil {
		return nil, err
	}
	stateDB, err := db.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.APIBaseURL, db.NewCredentials(stateDB),
		api.WithTimeout(time.Duration(cfg.RequestTimeout)*time.Second),
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	)
	return newApp(ctx, cfg, logger, client, stateDB), nil
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, client *api.Client, stateDB *sql.DB) *App {
	a := &App{
		Config:  cfg,
		Log:     logger,
		API:     client,
		Session: state.NewSession(client, logger.With().Str("component", "session").Logger()),
		Tasks:   state.NewTasks(client, logger.With().Str("component", "tasks").Logger()),
		Tags:    state.NewTags(client, logger.With().Str("component", "tags").Logger()),
		stateDB: stateDB,
	}
	a.unlink = state.LinkQuery(ctx, a.Session, a.Tasks, a.Tags, reloadQuery(cfg.PageSize))
	return a
}

// reloadQuery is the sign-in fetch. The default page size is left to the
// server.
func reloadQuery(pageSize int) model.TaskQuery {
	if pageSize <= 0 || pageSize == model.DefaultPagination().Limit {
		return model.TaskQuery{}
	}
	return model.TaskQuery{Limit: pageSize}
}

// Start validates the stored credential, loading the collections when it is
// accepted.
func (a *App) Start(ctx context.Context) {
	a.Session.Init(ctx)
}

func (a *App) Close() error {
	if a.unlink != nil {
		a.unlink()
	}
	if a.stateDB != nil {
		return a.stateDB.Close()
	}
	return nil
}
