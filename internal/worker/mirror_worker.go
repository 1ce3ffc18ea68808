package worker

import (
	"context"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/sheets"
	"finanzas/internal/storage"
)

// MirrorWorker applies movement events to the spreadsheet mirror.
type MirrorWorker struct {
	storage *storage.SQLiteRepository
	mirror  sheets.MovementMirror
	logger  *applog.Logger
}

func NewMirrorWorker(storage *storage.SQLiteRepository, mirror sheets.MovementMirror, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		storage: storage,
		mirror:  mirror,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMovementEvent processes a single movement event from AMQP. Created
// and updated events re-read the movement so the mirror always holds the
// latest stored version. A movement that is gone by then is removed.
func (w *MirrorWorker) HandleMovementEvent(ctx context.Context, ev *amqp.MovementEvent) error {
	w.logger.InfoContext(ctx, "Processing movement event",
		"id", ev.ID,
		"action", ev.Action,
		"version", ev.Version)

	if ev.Action == amqp.ActionDeleted {
		return w.remove(ctx, ev.ID)
	}

	detail, err := w.storage.MovementDetail(ctx, ev.ID)
	if core.IsNotFound(err) {
		w.logger.WarnContext(ctx, "Movement no longer exists, removing from mirror", "id", ev.ID)
		return w.remove(ctx, ev.ID)
	}
	if err != nil {
		return fmt.Errorf("get movement from storage: %w", err)
	}
	return w.upsert(ctx, detail)
}

// SyncAll rewrites every stored movement into the mirror. It recovers from
// missed events or worker downtime.
func (w *MirrorWorker) SyncAll(ctx context.Context) (int, error) {
	details, err := w.storage.MovementDetails(ctx)
	if err != nil {
		return 0, fmt.Errorf("list movements: %w", err)
	}

	synced, failed := 0, 0
	for _, d := range details {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.upsert(ctx, d); err != nil {
			applog.LogError(ctx, "Failed to mirror movement", err,
				applog.ComponentWorker, applog.OpSync, applog.ErrorTypeUpstream,
				applog.NewFields().WithResource("movement", d.ID))
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Mirror resync completed",
		"total", len(details),
		"synced", synced,
		"errors", failed)
	return synced, nil
}

func (w *MirrorWorker) upsert(ctx context.Context, d storage.MovementDetail) error {
	ref, err := w.mirror.Upsert(ctx, RowOf(d))
	if err != nil {
		return fmt.Errorf("upsert movement %d: %w", d.ID, err)
	}
	w.logger.InfoContext(ctx, "Successfully mirrored movement", "id", d.ID, "ref", ref)
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, id int64) error {
	if err := w.mirror.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete movement %d: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Successfully removed movement from mirror", "id", id)
	return nil
}

// RowOf converts a stored movement into its mirror row.
func RowOf(d storage.MovementDetail) sheets.Row {
	return sheets.Row{
		ID:          d.ID,
		UserID:      d.UserID,
		Date:        d.Date,
		Account:     d.Account,
		Category:    d.Category,
		Badge:       d.Badge,
		Amount:      d.Amount,
		Description: d.Description,
	}
}
