package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Joseda-hg/taskdock/internal/model"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	maxPage          = 1_000_000
	timeLayout       = "2006-01-02T15:04:05.000000000Z"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrEmailExists = errors.New("email already exists")
	ErrTagExists   = errors.New("tag already exists")
)

var (
	taskColumns = []string{"id", "user_id", "title", "description", "priority", "status", "due_date", "created_at", "updated_at"}
	tagColumns  = []string{"id", "user_id", "name", "color", "created_at"}
)

// Store is the development backend's persistence. Every task and tag query
// is scoped to the owning user.
type Store struct {
	DB *sql.DB
	sq squirrel.StatementBuilderType
	// now is replaced in tests.
	now func() time.Time
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRecord is a user together with its password hash.
type UserRecord struct {
	model.User
	PasswordHash string
}

// TaskChanges is a partial task update. Nil fields are left untouched.
type TaskChanges struct {
	Title        *string
	Description  *string
	Priority     *model.Priority
	Status       *model.Status
	DueDate      *time.Time
	ClearDueDate bool
	TagIDs       []string
	SetTags      bool
}

type TagChanges struct {
	Name  *string
	Color *string
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, sq: statementBuilder(), now: time.Now}
}

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (model.User, error) {
	email = normalizeEmail(email)
	if _, err := s.UserByEmail(ctx, email); err == nil {
		return model.User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	now := s.timestamp()
	user := model.User{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(name), CreatedAt: now, UpdatedAt: now}
	query, args, err := s.sq.Insert("users").
		Columns("id", "email", "name", "password_hash", "created_at", "updated_at").
		Values(user.ID, user.Email, user.Name, passwordHash, formatTime(now), formatTime(now)).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.findUser(ctx, squirrel.Eq{"email": normalizeEmail(email)})
}

func (s *Store) UserByID(ctx context.Context, id string) (model.User, error) {
	record, err := s.findUser(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return model.User{}, err
	}
	return record.User, nil
}

func (s *Store) findUser(ctx context.Context, where squirrel.Eq) (UserRecord, error) {
	query, args, err := s.sq.Select("id", "email", "name", "password_hash", "created_at", "updated_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return UserRecord{}, err
	}

	var record UserRecord
	var createdAt, updatedAt string
	err = s.DB.QueryRowContext(ctx, query, args...).Scan(&record.ID, &record.Email, &record.Name, &record.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("select user: %w", err)
	}
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)
	return record, nil
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListTasks returns one page of the user's tasks, newest first. Page and
// limit default to 1 and 10; limit is capped at 100 and page at 1,000,000.
func (s *Store) ListTasks(ctx context.Context, userID string, query model.TaskQuery) (model.TaskPage, error) {
	page := min(max(query.Page, 1), maxPage)
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if query.Priority != "" {
		where = append(where, squirrel.Eq{"priority": string(query.Priority)})
	}
	if query.Status != "" {
		where = append(where, squirrel.Eq{"status": string(query.Status)})
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		where = append(where, squirrel.Or{
			squirrel.Expr(`title LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`description LIKE ? ESCAPE '\'`, pattern),
		})
	}

	countSQL, countArgs, err := s.sq.Select("COUNT(*)").From("tasks").Where(where).ToSql()
	if err != nil {
		return model.TaskPage{}, err
	}
	var total int
	if err := s.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return model.TaskPage{}, fmt.Errorf("count tasks: %w", err)
	}

	listSQL, listArgs, err := s.sq.Select(taskColumns...).
		From("tasks").
		Where(where).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return model.TaskPage{}, err
	}
	tasks, err := s.queryTasks(ctx, s.DB, listSQL, listArgs...)
	if err != nil {
		return model.TaskPage{}, err
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return model.TaskPage{
		Tasks:      tasks,
		Pagination: model.Pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	}, nil
}

func (s *Store) GetTask(ctx context.Context, userID, taskID string) (model.Task, error) {
	return s.getTask(ctx, s.DB, userID, taskID)
}

func (s *Store) getTask(ctx context.Context, q queryer, userID, taskID string) (model.Task, error) {
	query, args, err := s.sq.Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": taskID, "user_id": userID}).
		ToSql()
	if err != nil {
		return model.Task{}, err
	}
	tasks, err := s.queryTasks(ctx, q, query, args...)
	if err != nil {
		return model.Task{}, err
	}
	if len(tasks) == 0 {
		return model.Task{}, ErrNotFound
	}
	return tasks[0], nil
}

func (s *Store) CreateTask(ctx context.Context, userID string, input model.TaskInput) (model.Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	status := input.Status
	if status == "" {
		status = model.StatusPending
	}

	now := formatTime(s.timestamp())
	id := uuid.NewString()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.sq.Insert("tasks").
		Columns(taskColumns...).
		Values(id, userID, strings.TrimSpace(input.Title), input.Description, string(priority), string(status), formatDue(input.DueDate), now, now).
		ToSql()
	if err != nil {
		return model.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}

	if err := s.setTaskTags(ctx, tx, userID, id, input.TagIDs); err != nil {
		return model.Task{}, err
	}

	created, err := s.getTask(ctx, tx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

func (s *Store) UpdateTask(ctx context.Context, userID, taskID string, changes TaskChanges) (model.Task, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.getTask(ctx, tx, userID, taskID); err != nil {
		return model.Task{}, err
	}

	set := map[string]any{"updated_at": formatTime(s.timestamp())}
	if changes.Title != nil {
		set["title"] = strings.TrimSpace(*changes.Title)
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Priority != nil {
		set["priority"] = string(*changes.Priority)
	}
	if changes.Status != nil {
		set["status"] = string(*changes.Status)
	}
	if changes.ClearDueDate {
		set["due_date"] = nil
	} else if changes.DueDate != nil {
		set["due_date"] = formatDue(changes.DueDate)
	}

	query, args, err := s.sq.Update("tasks").
		SetMap(set).
		Where(squirrel.Eq{"id": taskID, "user_id": userID}).
		ToSql()
	if err != nil {
		return model.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}

	if changes.SetTags {
		if err := s.setTaskTags(ctx, tx, userID, taskID, changes.TagIDs); err != nil {
			return model.Task{}, err
		}
	}

	updated, err := s.getTask(ctx, tx, userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	query, args, err := s.sq.Delete("tasks").Where(squirrel.Eq{"id": taskID, "user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	query, args, err := s.sq.Select(tagColumns...).
		From("tags").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryTags(ctx, s.DB, query, args...)
}

func (s *Store) GetTag(ctx context.Context, userID, tagID string) (model.Tag, error) {
	query, args, err := s.sq.Select(tagColumns...).
		From("tags").
		Where(squirrel.Eq{"id": tagID, "user_id": userID}).
		ToSql()
	if err != nil {
		return model.Tag{}, err
	}
	tags, err := s.queryTags(ctx, s.DB, query, args...)
	if err != nil {
		return model.Tag{}, err
	}
	if len(tags) == 0 {
		return model.Tag{}, ErrNotFound
	}
	return tags[0], nil
}

func (s *Store) CreateTag(ctx context.Context, userID string, input model.TagInput) (model.Tag, error) {
	name := strings.TrimSpace(input.Name)
	if err := s.ensureTagNameFree(ctx, userID, name, ""); err != nil {
		return model.Tag{}, err
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = DefaultTagColor
	}
	now := s.timestamp()
	tag := model.Tag{ID: uuid.NewString(), Name: name, Color: color, UserID: userID, CreatedAt: now}

	query, args, err := s.sq.Insert("tags").
		Columns(tagColumns...).
		Values(tag.ID, userID, tag.Name, tag.Color, formatTime(now)).
		ToSql()
	if err != nil {
		return model.Tag{}, err
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return model.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	return tag, nil
}

func (s *Store) UpdateTag(ctx context.Context, userID, tagID string, changes TagChanges) (model.Tag, error) {
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return model.Tag{}, err
	}

	set := map[string]any{}
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if err := s.ensureTagNameFree(ctx, userID, name, tagID); err != nil {
			return model.Tag{}, err
		}
		set["name"] = name
	}
	if changes.Color != nil && strings.TrimSpace(*changes.Color) != "" {
		set["color"] = strings.TrimSpace(*changes.Color)
	}

	if len(set) > 0 {
		query, args, err := s.sq.Update("tags").
			SetMap(set).
			Where(squirrel.Eq{"id": tagID, "user_id": userID}).
			ToSql()
		if err != nil {
			return model.Tag{}, err
		}
		if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
			return model.Tag{}, fmt.Errorf("update tag: %w", err)
		}
	}

	return s.GetTag(ctx, userID, tagID)
}

func (s *Store) DeleteTag(ctx context.Context, userID, tagID string) error {
	query, args, err := s.sq.Delete("tags").Where(squirrel.Eq{"id": tagID, "user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) ensureTagNameFree(ctx context.Context, userID, name, exceptID string) error {
	where := squirrel.And{squirrel.Eq{"user_id": userID, "name": name}}
	if exceptID != "" {
		where = append(where, squirrel.NotEq{"id": exceptID})
	}
	query, args, err := s.sq.Select("COUNT(*)").From("tags").Where(where).ToSql()
	if err != nil {
		return err
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("check tag name: %w", err)
	}
	if count > 0 {
		return ErrTagExists
	}
	return nil
}

// setTaskTags replaces the task's tags. IDs of tags the user does not own
// are ignored.
func (s *Store) setTaskTags(ctx context.Context, tx *sql.Tx, userID, taskID string, tagIDs []string) error {
	query, args, err := s.sq.Delete("task_tags").Where(squirrel.Eq{"task_id": taskID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}

	ids := normalizeIDs(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	query, args, err = s.sq.Select("id").From("tags").Where(squirrel.Eq{"id": ids, "user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select owned tags: %w", err)
	}
	owned := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		owned = append(owned, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(owned) == 0 {
		return nil
	}

	insert := s.sq.Insert("task_tags").Columns("task_id", "tag_id")
	for _, id := range owned {
		insert = insert.Values(taskID, id)
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task tags: %w", err)
	}
	return nil
}

func (s *Store) queryTasks(ctx context.Context, q queryer, query string, args ...any) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}

	tasks := []model.Task{}
	for rows.Next() {
		var task model.Task
		var priority, status, createdAt, updatedAt string
		var dueDate sql.NullString
		if err := rows.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &priority, &status, &dueDate, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		task.Priority = model.Priority(priority)
		task.Status = model.Status(status)
		if dueDate.Valid && dueDate.String != "" {
			due := parseTime(dueDate.String)
			task.DueDate = &due
		}
		task.CreatedAt = parseTime(createdAt)
		task.UpdatedAt = parseTime(updatedAt)
		task.Tags = []model.Tag{}
		tasks = append(tasks, task)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]string, 0, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, task := range tasks {
		ids = append(ids, task.ID)
		index[task.ID] = i
	}

	tagSQL, tagArgs, err := s.sq.Select("tt.task_id", "t.id", "t.user_id", "t.name", "t.color", "t.created_at").
		From("task_tags tt").
		Join("tags t ON t.id = tt.tag_id").
		Where(squirrel.Eq{"tt.task_id": ids}).
		OrderBy("t.name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	tagRows, err := q.QueryContext(ctx, tagSQL, tagArgs...)
	if err != nil {
		return nil, fmt.Errorf("select task tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var taskID, createdAt string
		var tag model.Tag
		if err := tagRows.Scan(&taskID, &tag.ID, &tag.UserID, &tag.Name, &tag.Color, &createdAt); err != nil {
			return nil, err
		}
		tag.CreatedAt = parseTime(createdAt)
		i := index[taskID]
		tasks[i].Tags = append(tasks[i].Tags, tag)
	}
	return tasks, tagRows.Err()
}

func (s *Store) queryTags(ctx context.Context, q queryer, query string, args ...any) ([]model.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var tag model.Tag
		var createdAt string
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &createdAt); err != nil {
			return nil, err
		}
		tag.CreatedAt = parseTime(createdAt)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func formatDue(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
