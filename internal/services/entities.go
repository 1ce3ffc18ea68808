package services

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// Services bundles every use case behind one store handle.
type Services struct {
	Badges        *Service[core.Badge]
	Groups        *Service[core.Group]
	Categories    *Service[core.Category]
	Accounts      *Service[core.Account]
	Events        *Service[core.Event]
	Investments   *Service[core.Investment]
	Appreciations *Service[core.Appreciation]
	Movements     *MovementService
	Budgets       *BudgetService
	Heritages     *HeritageService
	Payments      *Service[core.PlannedPayment]
	Balances      *BalanceService
	Reports       *ReportService
}

// New wires every service to repo. publisher may be nil, in which case
// movement events are not published.
func New(repo *storage.SQLiteRepository, publisher Publisher, logger *applog.Logger) *Services {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Services{
		Badges:        NewService(repo.Badges, func(b *core.Badge, _, id int64) { b.ID = id }, logger),
		Groups:        NewService(repo.Groups, func(g *core.Group, _, id int64) { g.ID = id }, logger),
		Categories:    newCategoryService(repo, logger),
		Accounts:      newAccountService(repo, logger),
		Events:        NewService(repo.Events, func(e *core.Event, userID, id int64) { e.ID, e.UserID = id, userID }, logger),
		Investments:   newInvestmentService(repo, logger),
		Appreciations: newAppreciationService(repo, logger),
		Movements:     NewMovementService(repo, publisher, logger),
		Budgets:       NewBudgetService(repo, logger),
		Heritages:     NewHeritageService(repo, logger),
		Payments:      newPaymentService(repo, logger),
		Balances:      NewBalanceService(repo),
		Reports:       NewReportService(repo),
	}
}

func newCategoryService(repo *storage.SQLiteRepository, logger *applog.Logger) *Service[core.Category] {
	own := func(c *core.Category, userID, id int64) { c.ID, c.UserID = id, userID }
	return NewService(repo.Categories, own, logger).WithReferences(
		func(ctx context.Context, userID int64, c *core.Category) error {
			if err := optionalReference(ctx, repo.Groups, userID, c.GroupID, "groupId"); err != nil {
				return err
			}
			if c.ParentID == nil {
				return nil
			}
			return checkParentChain(ctx, repo, userID, c.ID, *c.ParentID)
		})
}

// checkParentChain walks up from parentID and rejects a chain that is broken
// or leads back to id.
func checkParentChain(ctx context.Context, repo *storage.SQLiteRepository, userID, id, parentID int64) error {
	seen := map[int64]bool{}
	for next := &parentID; next != nil; {
		if (id != 0 && *next == id) || seen[*next] {
			return core.NewValidationError("parentId", "categories cannot form a cycle")
		}
		seen[*next] = true
		parent, err := repo.Categories.Get(ctx, userID, *next)
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError("parentId", fmt.Sprintf("category %d does not exist", *next))
		}
		if err != nil {
			return err
		}
		next = parent.ParentID
	}
	return nil
}

func newAccountService(repo *storage.SQLiteRepository, logger *applog.Logger) *Service[core.Account] {
	own := func(a *core.Account, userID, id int64) { a.ID, a.UserID = id, userID }
	return NewService(repo.Accounts, own, logger).WithReferences(
		func(ctx context.Context, userID int64, a *core.Account) error {
			return reference(ctx, repo.Badges, userID, a.BadgeID, "badgeId")
		})
}

func newInvestmentService(repo *storage.SQLiteRepository, logger *applog.Logger) *Service[core.Investment] {
	own := func(i *core.Investment, userID, id int64) { i.ID, i.UserID = id, userID }
	return NewService(repo.Investments, own, logger).WithReferences(
		func(ctx context.Context, userID int64, i *core.Investment) error {
			return reference(ctx, repo.Badges, userID, i.BadgeID, "badgeId")
		})
}

func newAppreciationService(repo *storage.SQLiteRepository, logger *applog.Logger) *Service[core.Appreciation] {
	own := func(a *core.Appreciation, userID, id int64) { a.ID, a.UserID = id, userID }
	return NewService(repo.Appreciations, own, logger).WithReferences(
		func(ctx context.Context, userID int64, a *core.Appreciation) error {
			return reference(ctx, repo.Investments, userID, a.InvestmentID, "investmentId")
		})
}

func newPaymentService(repo *storage.SQLiteRepository, logger *applog.Logger) *Service[core.PlannedPayment] {
	own := func(p *core.PlannedPayment, userID, id int64) { p.ID, p.UserID = id, userID }
	return NewService(repo.Payments, own, logger).WithReferences(
		func(ctx context.Context, userID int64, p *core.PlannedPayment) error {
			if err := reference(ctx, repo.Accounts, userID, p.AccountID, "accountId"); err != nil {
				return err
			}
			return reference(ctx, repo.Categories, userID, p.CategoryID, "categoryId")
		})
}
