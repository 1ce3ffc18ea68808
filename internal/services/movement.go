package services

import (
	"context"
	"strings"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// Publisher sends movement events to the message broker.
type Publisher interface {
	PublishMovementEvent(ctx context.Context, event *amqp.MovementEvent) error
}

// MovementService is the movement CRUD plus event publishing. Publishing is
// best effort: a failed publish is logged and the write still succeeds.
type MovementService struct {
	*Service[core.Movement]
	repo      *storage.SQLiteRepository
	publisher Publisher
}

func NewMovementService(repo *storage.SQLiteRepository, publisher Publisher, logger *applog.Logger) *MovementService {
	s := &MovementService{repo: repo, publisher: publisher}
	own := func(m *core.Movement, userID, id int64) { m.ID, m.UserID = id, userID }
	s.Service = NewService(repo.Movements, own, logger).
		WithReferences(s.checkReferences).
		WithHook(s.publish)
	return s
}

// Publisher returns the broker client events go to, or nil.
func (s *MovementService) Publisher() Publisher {
	return s.publisher
}

func (s *MovementService) checkReferences(ctx context.Context, userID int64, m *core.Movement) error {
	if err := reference(ctx, s.repo.Accounts, userID, m.AccountID, "accountId"); err != nil {
		return err
	}
	if err := reference(ctx, s.repo.Categories, userID, m.CategoryID, "categoryId"); err != nil {
		return err
	}
	if err := optionalReference(ctx, s.repo.Events, userID, m.EventID, "eventId"); err != nil {
		return err
	}
	if err := optionalReference(ctx, s.repo.Investments, userID, m.InvestmentID, "investmentId"); err != nil {
		return err
	}
	if m.TransferID != nil && *m.TransferID == m.ID && m.ID != 0 {
		return core.NewValidationError("transferId", "a movement cannot be its own transfer")
	}
	return optionalReference(ctx, s.repo.Movements, userID, m.TransferID, "transferId")
}

// MovementFilter narrows a movement listing. Zero fields are ignored; To is
// exclusive.
type MovementFilter struct {
	AccountID  int64
	CategoryID int64
	From       core.Date
	To         core.Date
}

func (s *MovementService) Search(ctx context.Context, userID int64, f MovementFilter) ([]core.Movement, error) {
	var conds []string
	var args []any
	if f.AccountID > 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID > 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		conds = append(conds, "purchase_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "purchase_date < ?")
		args = append(args, f.To.String())
	}
	return s.repo.Movements.Select(ctx, userID, strings.Join(conds, " AND "), args...)
}

func (s *MovementService) publish(ctx context.Context, op string, m core.Movement) {
	logger := applog.FromContext(ctx)
	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP client not available, skipping movement event", applog.FieldMovementID, m.ID)
		return
	}

	action := amqp.ActionUpdated
	switch op {
	case applog.OpCreate:
		action = amqp.ActionCreated
	case applog.OpDelete:
		action = amqp.ActionDeleted
	}

	// Versions only need to grow per movement; the write time does that.
	event := amqp.NewMovementEvent(m.ID, m.UserID, action, time.Now().UnixNano())
	if err := s.publisher.PublishMovementEvent(ctx, event); err != nil {
		applog.LogError(ctx, "Failed to publish movement event", err,
			applog.ComponentAMQP, applog.OpPublish, applog.ErrorTypeNetwork,
			applog.NewFields().WithResource("movement", m.ID))
	}
}
