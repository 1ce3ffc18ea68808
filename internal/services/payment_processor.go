package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// PaymentProcessor turns due planned payments into movements. It is run once
// a day by the scheduler.
type PaymentProcessor struct {
	repo      *storage.SQLiteRepository
	movements *MovementService
	logger    *applog.Logger
}

func NewPaymentProcessor(repo *storage.SQLiteRepository, movements *MovementService, logger *applog.Logger) *PaymentProcessor {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &PaymentProcessor{
		repo:      repo,
		movements: movements,
		logger:    logger.WithComponent(applog.ComponentPayments),
	}
}

// ProcessDuePayments materializes every payment due on now's calendar day and
// returns how many movements were created. A failing payment is logged and
// skipped; only a failure to list payments aborts the run.
func (p *PaymentProcessor) ProcessDuePayments(ctx context.Context, now time.Time) (int, error) {
	if p.repo == nil || p.movements == nil {
		return 0, errors.New("processor not properly initialized")
	}

	today := core.DateOf(now.UTC())
	payments, err := p.repo.ActivePayments(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list active payments: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing planned payments",
		applog.FieldOperation, applog.OpMaterialize,
		"total_active", len(payments),
		"processing_date", today.String())

	processed := 0
	for _, payment := range payments {
		ok, err := p.process(ctx, payment, today)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to materialize planned payment",
				applog.FieldResourceID, payment.ID,
				applog.FieldUserID, payment.UserID,
				applog.FieldError, err)
			continue
		}
		if ok {
			processed++
		}
	}

	p.logger.InfoContext(ctx, "Planned payment processing complete",
		"processed", processed,
		"total_checked", len(payments))
	return processed, nil
}

func (p *PaymentProcessor) process(ctx context.Context, payment core.PlannedPayment, today core.Date) (bool, error) {
	checker, err := GetDuenessChecker(payment.Frequency)
	if err != nil {
		return false, err
	}
	var last core.Date
	if payment.LastExecutionDate != nil {
		last = *payment.LastExecutionDate
	}
	if !checker.IsDue(last, today, payment.StartDate) {
		return false, nil
	}

	key := paymentKey(payment.ID, today)
	m := core.Movement{
		AccountID:    payment.AccountID,
		CategoryID:   payment.CategoryID,
		Amount:       payment.Amount,
		Description:  payment.Description,
		PurchaseDate: today,
		ImportKey:    &key,
	}
	created, err := p.movements.Create(ctx, payment.UserID, m)
	if err != nil {
		if !core.IsValidation(err) || !p.alreadyBooked(ctx, payment.UserID, key) {
			return false, fmt.Errorf("create movement: %w", err)
		}
		// A previous run created the movement but did not record it.
		p.logger.WarnContext(ctx, "Planned payment already booked today", applog.FieldResourceID, payment.ID)
		return false, p.repo.MarkPaymentExecuted(ctx, payment.ID, today)
	}

	if err := p.repo.MarkPaymentExecuted(ctx, payment.ID, today); err != nil {
		return false, err
	}

	p.logger.InfoContext(ctx, "Created movement from planned payment",
		applog.FieldResourceID, payment.ID,
		applog.FieldMovementID, created.ID,
		applog.FieldAmount, payment.Amount.String(),
		"frequency", payment.Frequency)
	return true, nil
}

// paymentKey names the movement a payment books on day.
func paymentKey(paymentID int64, day core.Date) string {
	return fmt.Sprintf("payment:%d:%s", paymentID, day)
}

func (p *PaymentProcessor) alreadyBooked(ctx context.Context, userID int64, key string) bool {
	existing, err := p.repo.Movements.Select(ctx, userID, "import_key = ?", key)
	return err == nil && len(existing) > 0
}
