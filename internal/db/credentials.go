package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
)

const authTokenKey = "authToken"

// Credentials persists the client's bearer token in the settings table.
type Credentials struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

func NewCredentials(db *sql.DB) *Credentials {
	return &Credentials{db: db, sq: statementBuilder()}
}

func (c *Credentials) Token() (string, error) {
	return c.setting(authTokenKey)
}

func (c *Credentials) SetToken(token string) error {
	if token == "" {
		return c.ClearToken()
	}
	return c.setSetting(authTokenKey, token)
}

func (c *Credentials) ClearToken() error {
	query, args, err := c.sq.Delete("settings").Where(squirrel.Eq{"key": authTokenKey}).ToSql()
	if err != nil {
		return err
	}
	if _, err := c.db.Exec(query, args...); err != nil {
		return fmt.Errorf("clear %s: %w", authTokenKey, err)
	}
	return nil
}

func (c *Credentials) setting(key string) (string, error) {
	query, args, err := c.sq.Select("value").From("settings").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return "", err
	}

	var value string
	err = c.db.QueryRow(query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (c *Credentials) setSetting(key, value string) error {
	query, args, err := c.sq.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := c.db.Exec(query, args...); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}
