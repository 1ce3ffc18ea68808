// Package importer merges collections pulled from the legacy API into the
// local store. Remote references are natural keys; records whose required
// references cannot be resolved are skipped with a warning.
package importer

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/amqp"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/legacy"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// Entities lists the importable collections in dependency order.
var Entities = []string{
	legacy.CollectionAccounts,
	legacy.CollectionCategories,
	legacy.CollectionEvents,
	legacy.CollectionInvestments,
	legacy.CollectionMovements,
	legacy.CollectionHeritages,
	legacy.CollectionPayments,
	legacy.CollectionAppreciations,
}

// Result summarises one import run. Imported is Total minus Skipped;
// Duplicates counts resolved records the store already held.
type Result struct {
	RunID      string    `json:"runId"`
	Entity     string    `json:"entity"`
	Total      int       `json:"total"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	Warnings   []string  `json:"warnings"`
	StartedAt  time.Time `json:"startedAt"`
	Duration   string    `json:"duration"`
}

type Reconciler struct {
	repo      *storage.SQLiteRepository
	client    *legacy.Client
	userID    int64
	publisher services.Publisher
	logger    *applog.Logger
}

func NewReconciler(repo *storage.SQLiteRepository, client *legacy.Client, userID int64, logger *applog.Logger) *Reconciler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Reconciler{
		repo:   repo,
		client: client,
		userID: userID,
		logger: logger.WithComponent(applog.ComponentImporter),
	}
}

// WithPublisher makes the reconciler announce every movement it inserts, the
// same way movements written through the API are announced.
func (r *Reconciler) WithPublisher(p services.Publisher) *Reconciler {
	r.publisher = p
	return r
}

// FromConfig builds a Reconciler from the legacy settings. Missing settings
// yield a *core.ConfigError and no network traffic.
func FromConfig(repo *storage.SQLiteRepository, cfg *config.Config, logger *applog.Logger) (*Reconciler, error) {
	settings, err := cfg.LegacyImport()
	if err != nil {
		return nil, err
	}
	return NewReconciler(repo, legacy.NewClient(settings), settings.UserID, logger), nil
}

// Import dispatches to the importer of entity.
func (r *Reconciler) Import(ctx context.Context, entity string) (Result, error) {
	switch entity {
	case legacy.CollectionAccounts:
		return r.ImportAccounts(ctx)
	case legacy.CollectionCategories:
		return r.ImportCategories(ctx)
	case legacy.CollectionEvents:
		return r.ImportEvents(ctx)
	case legacy.CollectionInvestments:
		return r.ImportInvestments(ctx)
	case legacy.CollectionMovements:
		return r.ImportMovements(ctx)
	case legacy.CollectionHeritages:
		return r.ImportHeritages(ctx)
	case legacy.CollectionPayments:
		return r.ImportPayments(ctx)
	case legacy.CollectionAppreciations:
		return r.ImportAppreciations(ctx)
	}
	return Result{}, core.NewValidationError("entity", fmt.Sprintf("unknown import %q", entity))
}

// ImportAll runs every importer in dependency order and stops at the first
// systemic failure.
func (r *Reconciler) ImportAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(Entities))
	for _, entity := range Entities {
		res, err := r.Import(ctx, entity)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// run carries the state of one import of one collection.
type run struct {
	*Reconciler
	resolver *Resolver
	result   Result
	logger   *applog.Logger
}

// fetch logs in, downloads collection and opens a run over it. Any failure
// here aborts the import.
func fetch[T any](ctx context.Context, r *Reconciler, collection string) (*run, []T, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With(applog.NewFields().WithImport(runID, collection).WithOperation(applog.OpImport).ToSlice()...)

	token, err := r.client.Login(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Legacy login failed", applog.FieldError, err)
		return nil, nil, err
	}
	records, err := legacy.Fetch[T](ctx, r.client, token, collection)
	if err != nil {
		logger.ErrorContext(ctx, "Legacy fetch failed", applog.FieldError, err)
		return nil, nil, err
	}

	return &run{
		Reconciler: r,
		resolver:   NewResolver(r.repo, r.userID),
		logger:     logger,
		result: Result{
			RunID:     runID,
			Entity:    collection,
			Total:     len(records),
			Warnings:  []string{},
			StartedAt: started.UTC(),
		},
	}, records, nil
}

func (r *run) skip(ctx context.Context, index int, ref, key, reason string) {
	r.result.Skipped++
	msg := fmt.Sprintf("%s[%d] skipped: %s %q %s", r.result.Entity, index, ref, key, reason)
	if key == "" {
		msg = fmt.Sprintf("%s[%d] skipped: %s", r.result.Entity, index, reason)
	}
	r.result.Warnings = append(r.result.Warnings, msg)
	r.logger.WarnContext(ctx, "Import record skipped",
		applog.FieldRemoteIndex, index,
		applog.FieldMissingReference, ref,
		"key", key,
		"reason", reason,
	)
}

// need resolves a required reference; ok is false when the record was skipped.
func (r *run) need(ctx context.Context, index int, ref, key string, find lookupFunc) (int64, bool, error) {
	id, found, err := find(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		r.skip(ctx, index, ref, key, "not found")
		return 0, false, nil
	}
	return id, true, nil
}

// optional resolves a reference that may be left blank. A named reference
// that does not resolve still skips the record.
func (r *run) optional(ctx context.Context, index int, ref, key string, find lookupFunc) (*int64, bool, error) {
	if key == "" {
		return nil, true, nil
	}
	id, ok, err := r.need(ctx, index, ref, key, find)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &id, true, nil
}

// valid skips records the local store would reject.
func (r *run) valid(ctx context.Context, index int, v interface{ Validate() error }) bool {
	if err := v.Validate(); err != nil {
		r.skip(ctx, index, "record", "", err.Error())
		return false
	}
	return true
}

func (r *run) finish(ctx context.Context) Result {
	r.result.Imported = r.result.Total - r.result.Skipped
	r.result.Duplicates = r.result.Imported - r.result.Inserted
	r.result.Duration = time.Since(r.result.StartedAt).Round(time.Millisecond).String()
	r.logger.InfoContext(ctx, "Import finished",
		"total", r.result.Total,
		"imported", r.result.Imported,
		"skipped", r.result.Skipped,
		"inserted", r.result.Inserted,
		"duplicates", r.result.Duplicates,
	)
	return r.result
}

func insert[T any](ctx context.Context, r *run, table *storage.Table[T], items []T) error {
	n, err := table.InsertIgnore(ctx, items)
	if err != nil {
		r.logger.ErrorContext(ctx, "Import insert failed", applog.FieldError, err)
		return err
	}
	r.result.Inserted += n
	return nil
}

func (r *Reconciler) ImportAccounts(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Account](ctx, r, legacy.CollectionAccounts)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.Account, 0, len(remote))
	for i, ra := range remote {
		badgeID, ok, err := run.need(ctx, i, "badge", ra.Badge, run.resolver.Badge)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		a := core.Account{
			UserID:      r.userID,
			Name:        ra.Name,
			Description: ra.Description,
			InitAmount:  ra.InitAmount,
			BadgeID:     badgeID,
		}
		if run.valid(ctx, i, a) {
			items = append(items, a)
		}
	}

	if err := insert(ctx, run, r.repo.Accounts, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

// ImportCategories inserts categories in waves: a child waits until its parent
// exists locally. Children whose parent never appears are skipped.
func (r *Reconciler) ImportCategories(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Category](ctx, r, legacy.CollectionCategories)
	if err != nil {
		return Result{}, err
	}

	pending := make([]int, 0, len(remote))
	for i, rc := range remote {
		c := core.Category{UserID: r.userID, Name: rc.Name}
		if run.valid(ctx, i, c) {
			pending = append(pending, i)
		}
	}

	for len(pending) > 0 {
		var batch []core.Category
		var deferred []int
		for _, i := range pending {
			rc := remote[i]
			groupID, ok, err := run.optional(ctx, i, "group", rc.Group, run.resolver.Group)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
			var parentID *int64
			if rc.Parent != "" {
				id, found, err := run.resolver.Category(ctx, rc.Parent)
				if err != nil {
					return Result{}, err
				}
				if !found {
					deferred = append(deferred, i)
					continue
				}
				parentID = &id
			}
			batch = append(batch, core.Category{
				UserID:   r.userID,
				Name:     rc.Name,
				Color:    rc.Color,
				Icon:     rc.Icon,
				GroupID:  groupID,
				ParentID: parentID,
			})
		}

		if err := insert(ctx, run, r.repo.Categories, batch); err != nil {
			return Result{}, err
		}
		if len(batch) == 0 {
			for _, i := range deferred {
				run.skip(ctx, i, "parent", remote[i].Parent, "not found")
			}
			break
		}
		pending = deferred
	}
	return run.finish(ctx), nil
}

func (r *Reconciler) ImportEvents(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Event](ctx, r, legacy.CollectionEvents)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.Event, 0, len(remote))
	for i, re := range remote {
		e := core.Event{
			UserID:      r.userID,
			Name:        re.Name,
			Description: re.Description,
			EndDate:     re.EndDate,
		}
		if run.valid(ctx, i, e) {
			items = append(items, e)
		}
	}

	if err := insert(ctx, run, r.repo.Events, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

func (r *Reconciler) ImportInvestments(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Investment](ctx, r, legacy.CollectionInvestments)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.Investment, 0, len(remote))
	for i, ri := range remote {
		badgeID, ok, err := run.need(ctx, i, "badge", ri.Badge, run.resolver.Badge)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		inv := core.Investment{
			UserID:      r.userID,
			Name:        ri.Name,
			Description: ri.Description,
			InitAmount:  ri.InitAmount,
			InitDate:    ri.InitDate,
			EndDate:     ri.EndDate,
			BadgeID:     badgeID,
		}
		if run.valid(ctx, i, inv) {
			items = append(items, inv)
		}
	}

	if err := insert(ctx, run, r.repo.Investments, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

type transferOut struct {
	movement core.Movement
	leg      legacy.TransferLeg
}

// ImportMovements inserts plain movements first, then transfer-outs linked to
// the local transfer-in matching the leg's (account, category, amount, date).
// A transfer-out without a match is imported unlinked.
func (r *Reconciler) ImportMovements(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Movement](ctx, r, legacy.CollectionMovements)
	if err != nil {
		return Result{}, err
	}

	keys := movementKeys(remote)
	plain := make([]core.Movement, 0, len(remote))
	var transfers []transferOut
	for i, rm := range remote {
		m, ok, err := run.movement(ctx, i, rm)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		m.ImportKey = &keys[i]
		if rm.Transfer != nil {
			transfers = append(transfers, transferOut{movement: m, leg: *rm.Transfer})
			continue
		}
		plain = append(plain, m)
	}

	if err := insert(ctx, run, r.repo.Movements, plain); err != nil {
		return Result{}, err
	}
	run.announce(ctx, plain)

	linked := make([]core.Movement, 0, len(transfers))
	for _, t := range transfers {
		m := t.movement
		id, found, err := run.counterpart(ctx, t.leg)
		if err != nil {
			return Result{}, err
		}
		if found {
			m.TransferID = &id
		} else {
			run.logger.WarnContext(ctx, "Transfer counterpart not found",
				applog.FieldAmount, t.leg.Amount.String(),
				"account", t.leg.Account,
				"date", t.leg.Date.String(),
			)
		}
		linked = append(linked, m)
	}

	if err := insert(ctx, run, r.repo.Movements, linked); err != nil {
		return Result{}, err
	}
	run.announce(ctx, linked)
	return run.finish(ctx), nil
}

// announce publishes a created event for each movement the last insert
// wrote. Rows the store already held have no id and are left alone.
func (r *run) announce(ctx context.Context, movements []core.Movement) {
	if r.publisher == nil {
		return
	}
	for _, m := range movements {
		if m.ID == 0 {
			continue
		}
		event := amqp.NewMovementEvent(m.ID, m.UserID, amqp.ActionCreated, time.Now().UnixNano())
		if err := r.publisher.PublishMovementEvent(ctx, event); err != nil {
			applog.LogError(ctx, "Failed to publish imported movement", err,
				applog.ComponentAMQP, applog.OpPublish, applog.ErrorTypeNetwork,
				applog.NewFields().WithResource("movement", m.ID).WithImport(r.result.RunID, r.result.Entity))
		}
	}
}

func (r *run) movement(ctx context.Context, index int, rm legacy.Movement) (core.Movement, bool, error) {
	accountID, ok, err := r.need(ctx, index, "account", rm.Account, r.resolver.Account)
	if err != nil || !ok {
		return core.Movement{}, false, err
	}
	categoryID, ok, err := r.need(ctx, index, "category", rm.Category, r.resolver.Category)
	if err != nil || !ok {
		return core.Movement{}, false, err
	}
	eventID, ok, err := r.optional(ctx, index, "event", rm.Event, r.resolver.Event)
	if err != nil || !ok {
		return core.Movement{}, false, err
	}
	investmentID, ok, err := r.optional(ctx, index, "investment", rm.Investment, r.resolver.Investment)
	if err != nil || !ok {
		return core.Movement{}, false, err
	}

	m := core.Movement{
		UserID:       r.userID,
		AccountID:    accountID,
		CategoryID:   categoryID,
		Amount:       rm.Amount,
		Description:  rm.Description,
		PurchaseDate: rm.PurchaseDate,
		EventID:      eventID,
		InvestmentID: investmentID,
	}
	return m, r.valid(ctx, index, m), nil
}

func (r *run) counterpart(ctx context.Context, leg legacy.TransferLeg) (int64, bool, error) {
	accountID, found, err := r.resolver.Account(ctx, leg.Account)
	if err != nil || !found {
		return 0, false, err
	}
	categoryID, found, err := r.resolver.Category(ctx, leg.Category)
	if err != nil || !found {
		return 0, false, err
	}
	return r.repo.FindTransferCounterpart(ctx, r.userID, accountID, categoryID, leg.Amount, leg.Date)
}

func (r *Reconciler) ImportHeritages(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Heritage](ctx, r, legacy.CollectionHeritages)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.Heritage, 0, len(remote))
	for i, rh := range remote {
		badgeID, ok, err := run.need(ctx, i, "badge", rh.Badge, run.resolver.Badge)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		h := core.Heritage{
			UserID:          r.userID,
			Name:            rh.Name,
			ComercialAmount: rh.ComercialAmount,
			LegalAmount:     rh.LegalAmount,
			Year:            rh.Year,
			BadgeID:         badgeID,
		}
		if run.valid(ctx, i, h) {
			items = append(items, h)
		}
	}

	if err := insert(ctx, run, r.repo.Heritages, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

func (r *Reconciler) ImportPayments(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Payment](ctx, r, legacy.CollectionPayments)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.PlannedPayment, 0, len(remote))
	for i, rp := range remote {
		accountID, ok, err := run.need(ctx, i, "account", rp.Account, run.resolver.Account)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		categoryID, ok, err := run.need(ctx, i, "category", rp.Category, run.resolver.Category)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		p := core.PlannedPayment{
			UserID:      r.userID,
			AccountID:   accountID,
			CategoryID:  categoryID,
			Amount:      rp.Amount,
			Description: rp.Description,
			Frequency:   rp.Frequency,
			StartDate:   rp.StartDate,
			EndDate:     rp.EndDate,
		}
		if run.valid(ctx, i, p) {
			items = append(items, p)
		}
	}

	if err := insert(ctx, run, r.repo.Payments, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

func (r *Reconciler) ImportAppreciations(ctx context.Context) (Result, error) {
	run, remote, err := fetch[legacy.Appreciation](ctx, r, legacy.CollectionAppreciations)
	if err != nil {
		return Result{}, err
	}

	items := make([]core.Appreciation, 0, len(remote))
	for i, ra := range remote {
		investmentID, ok, err := run.need(ctx, i, "investment", ra.Investment, run.resolver.Investment)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		a := core.Appreciation{
			UserID:       r.userID,
			InvestmentID: investmentID,
			Amount:       ra.Amount,
			Date:         ra.Date,
		}
		if run.valid(ctx, i, a) {
			items = append(items, a)
		}
	}

	if err := insert(ctx, run, r.repo.Appreciations, items); err != nil {
		return Result{}, err
	}
	return run.finish(ctx), nil
}

// Known reports whether entity names an importable collection.
func Known(entity string) bool {
	return slices.Contains(Entities, entity)
}
