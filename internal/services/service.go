// Package services holds the use cases behind the HTTP handlers and the
// background jobs. Every operation is scoped to the calling user.
package services

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// Record is a domain type the store can persist.
type Record interface {
	Validate() error
}

// Service implements list/get/create/update/delete for one entity table.
type Service[T Record] struct {
	table *storage.Table[T]
	// own stamps the id and owner onto v before it is validated and written.
	own func(v *T, userID, id int64)
	// refs checks that v only references rows the user can see.
	refs func(ctx context.Context, userID int64, v *T) error
	// after runs once a write has been committed.
	after  func(ctx context.Context, action string, v T)
	logger *applog.Logger
}

func NewService[T Record](table *storage.Table[T], own func(*T, int64, int64), logger *applog.Logger) *Service[T] {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Service[T]{table: table, own: own, logger: logger}
}

// WithReferences installs a reference check run on create and update.
func (s *Service[T]) WithReferences(refs func(ctx context.Context, userID int64, v *T) error) *Service[T] {
	s.refs = refs
	return s
}

// WithHook installs a callback run after every committed write.
func (s *Service[T]) WithHook(after func(ctx context.Context, action string, v T)) *Service[T] {
	s.after = after
	return s
}

func (s *Service[T]) Resource() string {
	return s.table.Resource()
}

func (s *Service[T]) List(ctx context.Context, userID int64) ([]T, error) {
	return s.table.List(ctx, userID)
}

func (s *Service[T]) Get(ctx context.Context, userID, id int64) (T, error) {
	return s.table.Get(ctx, userID, id)
}

func (s *Service[T]) Create(ctx context.Context, userID int64, v T) (T, error) {
	if err := s.prepare(ctx, userID, 0, &v); err != nil {
		return v, err
	}
	if err := s.table.Insert(ctx, &v); err != nil {
		return v, err
	}
	s.logger.InfoContext(ctx, "Created "+s.Resource(), applog.NewFields().
		WithOperation(applog.OpCreate).
		WithResource(s.Resource(), s.table.IDOf(&v)).
		ToSlice()...)
	s.notify(ctx, applog.OpCreate, v)
	return v, nil
}

// Update loads the current row, lets patch overwrite the fields the caller
// supplied and stores the result. Fields patch leaves alone keep their value.
func (s *Service[T]) Update(ctx context.Context, userID, id int64, patch func(*T) error) (T, error) {
	current, err := s.table.Get(ctx, userID, id)
	if err != nil {
		return current, err
	}
	if err := patch(&current); err != nil {
		return current, err
	}
	if err := s.prepare(ctx, userID, id, &current); err != nil {
		return current, err
	}
	if err := s.table.Update(ctx, userID, id, &current); err != nil {
		return current, err
	}
	s.notify(ctx, applog.OpUpdate, current)
	return current, nil
}

func (s *Service[T]) Delete(ctx context.Context, userID, id int64) error {
	current, err := s.table.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.table.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Deleted "+s.Resource(), applog.NewFields().
		WithOperation(applog.OpDelete).
		WithResource(s.Resource(), id).
		ToSlice()...)
	s.notify(ctx, applog.OpDelete, current)
	return nil
}

func (s *Service[T]) prepare(ctx context.Context, userID, id int64, v *T) error {
	if s.own != nil {
		s.own(v, userID, id)
	}
	if err := (*v).Validate(); err != nil {
		return err
	}
	if s.refs != nil {
		return s.refs(ctx, userID, v)
	}
	return nil
}

func (s *Service[T]) notify(ctx context.Context, action string, v T) {
	if s.after != nil {
		s.after(ctx, action, v)
	}
}

// reference checks that id names a row visible to userID. A missing row is
// the caller's mistake, so it becomes a validation error on field.
func reference[T any](ctx context.Context, table *storage.Table[T], userID, id int64, field string) error {
	if _, err := table.Get(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError(field, fmt.Sprintf("%s %d does not exist", table.Resource(), id))
		}
		return err
	}
	return nil
}

// optionalReference is reference for nullable foreign keys.
func optionalReference[T any](ctx context.Context, table *storage.Table[T], userID int64, id *int64, field string) error {
	if id == nil {
		return nil
	}
	return reference(ctx, table, userID, *id, field)
}
