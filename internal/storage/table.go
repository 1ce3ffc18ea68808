package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

type scanner interface {
	Scan(dest ...any) error
}

// Table is the CRUD surface every entity table shares. Column order in
// columns, pointers and values must match.
type Table[T any] struct {
	db         *sql.DB
	name       string
	resource   string
	columns    []string
	userScoped bool
	softDelete bool
	keyColumn  string
	orderBy    string

	// pointers returns scan targets: id first, then columns.
	pointers func(*T) []any
	// values returns insert/update arguments for columns.
	values func(*T) []any
	setID  func(*T, int64)
}

// Resource is the singular entity name used in errors and logs.
func (t *Table[T]) Resource() string {
	return t.resource
}

// IDOf returns the id of v, read through the first scan target.
func (t *Table[T]) IDOf(v *T) int64 {
	if id, ok := t.pointers(v)[0].(*int64); ok {
		return *id
	}
	return 0
}

func (t *Table[T]) selectSQL() string {
	return "SELECT id, " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t *Table[T]) scope(userID int64) ([]string, []any) {
	var conds []string
	var args []any
	if t.userScoped {
		conds = append(conds, "user_id = ?")
		args = append(args, userID)
	}
	if t.softDelete {
		conds = append(conds, "deleted_at IS NULL")
	}
	return conds, args
}

func (t *Table[T]) scan(row scanner) (T, error) {
	var v T
	err := row.Scan(t.pointers(&v)...)
	return v, err
}

// Select runs the table's SELECT with extra conditions ANDed to the user
// scope. Results follow the table's default order.
func (t *Table[T]) Select(ctx context.Context, userID int64, where string, args ...any) ([]T, error) {
	conds, scopeArgs := t.scope(userID)
	if where != "" {
		conds = append(conds, where)
	}
	query := t.selectSQL()
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if t.orderBy != "" {
		query += " ORDER BY " + t.orderBy
	}

	rows, err := t.db.QueryContext(ctx, query, append(scopeArgs, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.resource, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

func (t *Table[T]) List(ctx context.Context, userID int64) ([]T, error) {
	return t.Select(ctx, userID, "")
}

func (t *Table[T]) Get(ctx context.Context, userID, id int64) (T, error) {
	conds, args := t.scope(userID)
	conds = append([]string{"id = ?"}, conds...)
	args = append([]any{id}, args...)

	row := t.db.QueryRowContext(ctx, t.selectSQL()+" WHERE "+strings.Join(conds, " AND "), args...)
	v, err := t.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return v, &core.NotFoundError{Resource: t.resource, ID: id}
	}
	if err != nil {
		return v, fmt.Errorf("get %s %d: %w", t.resource, id, err)
	}
	return v, nil
}

// FindByKey returns the first row (lowest id) whose natural key equals key.
// Natural keys are not unique across every table, so ambiguous keys silently
// resolve to the oldest row.
func (t *Table[T]) FindByKey(ctx context.Context, userID int64, key string) (T, error) {
	var zero T
	if t.keyColumn == "" {
		return zero, fmt.Errorf("%s has no natural key", t.resource)
	}
	conds, args := t.scope(userID)
	conds = append(conds, t.keyColumn+" = ?")
	args = append(args, key)

	query := t.selectSQL() + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY id LIMIT 1"
	v, err := t.scan(t.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, &core.NotFoundError{Resource: t.resource, Key: key}
	}
	if err != nil {
		return zero, fmt.Errorf("find %s by %s: %w", t.resource, t.keyColumn, err)
	}
	return v, nil
}

func (t *Table[T]) insertSQL(verb string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return verb + " INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + placeholders + ")"
}

// Insert stores v and sets its id.
func (t *Table[T]) Insert(ctx context.Context, v *T) error {
	res, err := t.db.ExecContext(ctx, t.insertSQL("INSERT"), t.values(v)...)
	if err != nil {
		return translateError(t.resource, fmt.Errorf("insert %s: %w", t.resource, err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read %s id: %w", t.resource, err)
	}
	t.setID(v, id)
	return nil
}

// InsertIgnore inserts items in one transaction, skipping rows that collide
// with a unique constraint. It returns how many rows were actually written.
func (t *Table[T]) InsertIgnore(ctx context.Context, items []T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin %s batch: %w", t.resource, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, t.insertSQL("INSERT OR IGNORE"))
	if err != nil {
		return 0, fmt.Errorf("prepare %s batch: %w", t.resource, err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range items {
		res, err := stmt.ExecContext(ctx, t.values(&items[i])...)
		if err != nil {
			return 0, translateError(t.resource, fmt.Errorf("insert %s batch row %d: %w", t.resource, i, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			id, err := res.LastInsertId()
			if err == nil {
				t.setID(&items[i], id)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s batch: %w", t.resource, err)
	}
	return inserted, nil
}

func (t *Table[T]) Update(ctx context.Context, userID, id int64, v *T) error {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = ?"
	}
	conds, scopeArgs := t.scope(userID)
	conds = append([]string{"id = ?"}, conds...)

	args := append(t.values(v), id)
	args = append(args, scopeArgs...)

	query := "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(conds, " AND ")
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(t.resource, fmt.Errorf("update %s %d: %w", t.resource, id, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Resource: t.resource, ID: id}
	}
	t.setID(v, id)
	return nil
}

// Delete soft-deletes rows of tables that keep history and removes the rest.
func (t *Table[T]) Delete(ctx context.Context, userID, id int64) error {
	conds, scopeArgs := t.scope(userID)
	conds = append([]string{"id = ?"}, conds...)

	var query string
	var args []any
	if t.softDelete {
		query = "UPDATE " + t.name + " SET deleted_at = ? WHERE " + strings.Join(conds, " AND ")
		args = append([]any{time.Now().UTC().Format(time.RFC3339), id}, scopeArgs...)
	} else {
		query = "DELETE FROM " + t.name + " WHERE " + strings.Join(conds, " AND ")
		args = append([]any{id}, scopeArgs...)
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(t.resource, fmt.Errorf("delete %s %d: %w", t.resource, id, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Resource: t.resource, ID: id}
	}
	return nil
}

// translateError turns constraint violations into validation errors so the
// HTTP layer answers 422 instead of 500.
func translateError(resource string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", core.NewValidationError(resource, "already exists"), err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", core.NewValidationError(resource, "references a missing record"), err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", core.NewValidationError(resource, "has an invalid value"), err)
	}
	return err
}
