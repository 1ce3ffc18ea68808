package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/report"
	"finanzas/internal/storage"
)

const (
	alice = int64(1)
	bob   = int64(2)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.MovementEvent
	err    error
}

func (p *recordingPublisher) PublishMovementEvent(_ context.Context, event *amqp.MovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) actions() []amqp.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.Action, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type env struct {
	repo *storage.SQLiteRepository
	svc  *Services
	pub  *recordingPublisher
	eur  core.Badge
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	pub := &recordingPublisher{}
	e := &env{repo: repo, svc: New(repo, pub, nil), pub: pub}
	e.eur, err = e.svc.Badges.Create(context.Background(), 0, core.Badge{Code: "EUR", Symbol: "€"})
	require.NoError(t, err)
	return e
}

func (e *env) account(t *testing.T, userID int64, name, init string) core.Account {
	t.Helper()
	a, err := e.svc.Accounts.Create(context.Background(), userID, core.Account{
		Name: name, InitAmount: decimal.RequireFromString(init), BadgeID: e.eur.ID,
	})
	require.NoError(t, err)
	return a
}

func (e *env) category(t *testing.T, userID int64, name string) core.Category {
	t.Helper()
	c, err := e.svc.Categories.Create(context.Background(), userID, core.Category{Name: name})
	require.NoError(t, err)
	return c
}

func (e *env) movement(t *testing.T, userID int64, a core.Account, c core.Category, amount string, date core.Date) core.Movement {
	t.Helper()
	m, err := e.svc.Movements.Create(context.Background(), userID, core.Movement{
		AccountID: a.ID, CategoryID: c.ID, Amount: decimal.RequireFromString(amount), PurchaseDate: date,
	})
	require.NoError(t, err)
	return m
}

// jsonPatch applies body on top of the current value, the way PUT handlers do.
func jsonPatch[T any](body string) func(*T) error {
	return func(v *T) error { return json.Unmarshal([]byte(body), v) }
}

func TestService_AccountLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.account(t, alice, "Checking", "100")
	assert.Equal(t, alice, a.UserID)
	assert.NotZero(t, a.ID)

	updated, err := e.svc.Accounts.Update(ctx, alice, a.ID, jsonPatch[core.Account](`{"description":"main","userId":99,"id":500}`))
	require.NoError(t, err)
	assert.Equal(t, "Checking", updated.Name)
	assert.Equal(t, "main", updated.Description)
	assert.Equal(t, alice, updated.UserID)
	assert.Equal(t, a.ID, updated.ID)
	assert.True(t, updated.InitAmount.Equal(decimal.NewFromInt(100)))

	_, err = e.svc.Accounts.Get(ctx, bob, a.ID)
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, e.svc.Accounts.Delete(ctx, alice, a.ID))
	_, err = e.svc.Accounts.Get(ctx, alice, a.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(e.svc.Accounts.Delete(ctx, alice, a.ID)))
}

func TestService_CreateLogsNewID(t *testing.T) {
	e := newEnv(t)
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Handler: slog.NewJSONHandler(&buf, nil)})
	svc := NewService(e.repo.Events, func(ev *core.Event, userID, id int64) { ev.ID, ev.UserID = id, userID }, logger)

	ev, err := svc.Create(context.Background(), alice, core.Event{Name: "Trip"})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Created event", line["msg"])
	assert.Equal(t, "event", line[applog.FieldResource])
	assert.EqualValues(t, ev.ID, line[applog.FieldResourceID])
}

func TestService_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Accounts.Create(ctx, alice, core.Account{Name: "", BadgeID: e.eur.ID})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Fields[0].Field)

	_, err = e.svc.Accounts.Create(ctx, alice, core.Account{Name: "Ghost", BadgeID: 999})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "badgeId", verr.Fields[0].Field)

	e.account(t, alice, "Checking", "0")
	_, err = e.svc.Accounts.Create(ctx, alice, core.Account{Name: "Checking", BadgeID: e.eur.ID})
	assert.True(t, core.IsValidation(err), "duplicate name")
}

func TestMovementService_ReferencesStayInsideUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bobs := e.account(t, bob, "Bob's", "0")
	food := e.category(t, alice, "Food")

	_, err := e.svc.Movements.Create(ctx, alice, core.Movement{
		AccountID: bobs.ID, CategoryID: food.ID, Amount: decimal.NewFromInt(-5), PurchaseDate: core.NewDate(2024, 1, 1),
	})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "accountId", verr.Fields[0].Field)
}

func TestCategoryService_RejectsCycles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.category(t, alice, "Living")
	child, err := e.svc.Categories.Create(ctx, alice, core.Category{Name: "Rent", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = e.svc.Categories.Update(ctx, alice, root.ID, func(c *core.Category) error {
		c.ParentID = &child.ID
		return nil
	})
	assert.True(t, core.IsValidation(err))

	missing := int64(404)
	_, err = e.svc.Categories.Create(ctx, alice, core.Category{Name: "Orphan", ParentID: &missing})
	assert.True(t, core.IsValidation(err))
}

func TestMovementService_PublishesEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "0")
	c := e.category(t, alice, "Food")

	m := e.movement(t, alice, a, c, "-10", core.NewDate(2024, 2, 1))
	_, err := e.svc.Movements.Update(ctx, alice, m.ID, jsonPatch[core.Movement](`{"description":"lunch"}`))
	require.NoError(t, err)
	require.NoError(t, e.svc.Movements.Delete(ctx, alice, m.ID))

	assert.Equal(t, []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted}, e.pub.actions())
	assert.Equal(t, m.ID, e.pub.events[0].ID)
	assert.Equal(t, alice, e.pub.events[0].UserID)
}

func TestMovementService_PublishFailureKeepsWrite(t *testing.T) {
	e := newEnv(t)
	e.pub.err = errors.New("broker down")
	a := e.account(t, alice, "Checking", "0")
	c := e.category(t, alice, "Food")

	m := e.movement(t, alice, a, c, "-10", core.NewDate(2024, 2, 1))
	_, err := e.svc.Movements.Get(context.Background(), alice, m.ID)
	assert.NoError(t, err)
}

func TestMovementService_WithoutPublisher(t *testing.T) {
	e := newEnv(t)
	svc := NewMovementService(e.repo, nil, nil)
	a := e.account(t, alice, "Checking", "0")
	c := e.category(t, alice, "Food")

	_, err := svc.Create(context.Background(), alice, core.Movement{
		AccountID: a.ID, CategoryID: c.ID, Amount: decimal.NewFromInt(3), PurchaseDate: core.NewDate(2024, 1, 1),
	})
	assert.NoError(t, err)
}

func TestMovementService_IdenticalMovementsAllowed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "0")
	c := e.category(t, alice, "Transport")

	fare := core.Movement{
		AccountID: a.ID, CategoryID: c.ID, Amount: decimal.RequireFromString("-2.50"),
		Description: "bus", PurchaseDate: core.NewDate(2024, 5, 2),
	}
	first, err := e.svc.Movements.Create(ctx, alice, fare)
	require.NoError(t, err)
	second, err := e.svc.Movements.Create(ctx, alice, fare)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, second.ImportKey)

	all, err := e.svc.Movements.Search(ctx, alice, MovementFilter{CategoryID: c.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMovementService_Search(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "0")
	b := e.account(t, alice, "Savings", "0")
	c := e.category(t, alice, "Food")
	e.movement(t, alice, a, c, "-1", core.NewDate(2024, 1, 1))
	e.movement(t, alice, a, c, "-2", core.NewDate(2024, 2, 1))
	e.movement(t, alice, b, c, "-3", core.NewDate(2024, 2, 1))

	got, err := e.svc.Movements.Search(ctx, alice, MovementFilter{AccountID: a.ID, From: core.NewDate(2024, 1, 15)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(-2)))

	all, err := e.svc.Movements.Search(ctx, alice, MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestBalanceService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "100")
	c := e.category(t, alice, "Food")
	e.movement(t, alice, a, c, "-30", core.NewDate(2023, 12, 20))
	e.movement(t, alice, a, c, "-20", core.NewDate(2024, 1, 5))
	e.movement(t, alice, a, c, "50.5", core.NewDate(2024, 2, 1))

	bal, err := e.svc.Balances.Account(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.5", bal.Balance.String())

	_, err = e.svc.Balances.Account(ctx, bob, a.ID)
	assert.True(t, core.IsNotFound(err))

	history, err := e.svc.Balances.History(ctx, alice, "monthly", 2024)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-01", history[0].Period)
	assert.Equal(t, "50", history[0].Balance.String())
	assert.Equal(t, "2024-02", history[1].Period)
	assert.Equal(t, "100.5", history[1].Balance.String())

	_, err = e.svc.Balances.History(ctx, alice, "hourly", 0)
	assert.True(t, core.IsValidation(err))
}

func TestReportService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "0")
	food := e.category(t, alice, "Food")
	salary := e.category(t, alice, "Salary")
	e.movement(t, alice, a, food, "-25", core.NewDate(2024, 3, 2))
	e.movement(t, alice, a, food, "-75", core.NewDate(2024, 3, 9))
	e.movement(t, alice, a, salary, "1000", core.NewDate(2024, 3, 1))

	svc := e.svc.Reports.WithClock(func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) })

	rows, err := svc.Generate(ctx, "expensive", "monthly", report.Params{UserID: alice, Month: 3})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03", rows[0].Period)
	assert.Equal(t, "100", rows[0].Amount.String())
	assert.Equal(t, "100", rows[0].Participation.String())

	_, err = svc.Generate(ctx, "savings", "monthly", report.Params{UserID: alice})
	assert.True(t, core.IsValidation(err))

	totals, err := svc.Totals(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "EUR", totals[0].Badge)
	assert.Equal(t, "1000", totals[0].Income.String())
	assert.Equal(t, "-100", totals[0].Expense.String())
	assert.Equal(t, "900", totals[0].Net.String())
}

func TestBudgetService_Report(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.account(t, alice, "Checking", "0")
	food := e.category(t, alice, "Food")
	fun := e.category(t, alice, "Fun")
	e.movement(t, alice, a, food, "-60", core.NewDate(2024, 5, 3))
	e.movement(t, alice, a, food, "-30", core.NewDate(2024, 6, 3))

	for _, b := range []core.Budget{
		{CategoryID: food.ID, Amount: decimal.NewFromInt(200), Year: 2024, Month: 5},
		{CategoryID: fun.ID, Amount: decimal.NewFromInt(50), Year: 2024, Month: 5},
	} {
		_, err := e.svc.Budgets.Create(ctx, alice, b)
		require.NoError(t, err)
	}

	lines, err := e.svc.Budgets.Report(ctx, alice, 2024, 5)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	byCategory := map[string]BudgetLine{}
	for _, l := range lines {
		byCategory[l.Category] = l
	}
	assert.Equal(t, "60", byCategory["Food"].Spent.String())
	assert.Equal(t, "140", byCategory["Food"].Remaining.String())
	assert.Equal(t, "30", byCategory["Food"].Used.String())
	assert.True(t, byCategory["Fun"].Spent.IsZero())

	_, err = e.svc.Budgets.Report(ctx, alice, 2024, 13)
	assert.True(t, core.IsValidation(err))
}

func TestHeritageService_Summary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, h := range []core.Heritage{
		{Name: "House", ComercialAmount: decimal.NewFromInt(200000), LegalAmount: decimal.NewFromInt(150000), Year: 2024, BadgeID: e.eur.ID},
		{Name: "Car", ComercialAmount: decimal.NewFromInt(10000), LegalAmount: decimal.NewFromInt(8000), Year: 2024, BadgeID: e.eur.ID},
		{Name: "House", ComercialAmount: decimal.NewFromInt(190000), LegalAmount: decimal.NewFromInt(150000), Year: 2023, BadgeID: e.eur.ID},
	} {
		_, err := e.svc.Heritages.Create(ctx, alice, h)
		require.NoError(t, err)
	}

	all, err := e.svc.Heritages.Summary(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2024, all[0].Year)
	assert.Equal(t, "210000", all[0].ComercialAmount.String())
	assert.Equal(t, 2, all[0].Items)

	only, err := e.svc.Heritages.Summary(ctx, alice, 2023)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "EUR", only[0].Badge)
}
