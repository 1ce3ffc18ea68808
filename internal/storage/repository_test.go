package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/report"
)

const testUser = int64(7)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	badge   core.Badge
	account core.Account
	food    core.Category
	salary  core.Category
}

func seedFixture(t *testing.T, repo *SQLiteRepository) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		badge:  core.Badge{Code: "EUR", Symbol: "€"},
		food:   core.Category{UserID: testUser, Name: "Food", Color: "#f00"},
		salary: core.Category{UserID: testUser, Name: "Salary"},
	}
	require.NoError(t, repo.Badges.Insert(ctx, &f.badge))
	f.account = core.Account{UserID: testUser, Name: "Checking", InitAmount: dec("100"), BadgeID: f.badge.ID}
	require.NoError(t, repo.Accounts.Insert(ctx, &f.account))
	require.NoError(t, repo.Categories.Insert(ctx, &f.food))
	require.NoError(t, repo.Categories.Insert(ctx, &f.salary))
	return f
}

func (f fixture) movement(category core.Category, amount string, date core.Date, desc string) core.Movement {
	return core.Movement{
		UserID:       testUser,
		AccountID:    f.account.ID,
		CategoryID:   category.ID,
		Amount:       dec(amount),
		Description:  desc,
		PurchaseDate: date,
	}
}

func TestTable_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	got, err := repo.Accounts.Get(ctx, testUser, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", got.Name)
	assert.True(t, got.InitAmount.Equal(dec("100")))

	got.Description = "main account"
	require.NoError(t, repo.Accounts.Update(ctx, testUser, got.ID, &got))
	got, err = repo.Accounts.Get(ctx, testUser, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "main account", got.Description)

	_, err = repo.Accounts.Get(ctx, testUser+1, f.account.ID)
	assert.True(t, core.IsNotFound(err), "other users must not see the account")

	list, err := repo.Accounts.List(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTable_SoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	require.NoError(t, repo.Categories.Delete(ctx, testUser, f.food.ID))

	_, err := repo.Categories.Get(ctx, testUser, f.food.ID)
	assert.True(t, core.IsNotFound(err))

	list, err := repo.Categories.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Salary", list[0].Name)

	err = repo.Categories.Delete(ctx, testUser, f.food.ID)
	assert.True(t, core.IsNotFound(err), "deleting twice reports not found")
}

func TestTable_HardDeleteMovement(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	m := f.movement(f.food, "-12.5", core.NewDate(2024, 3, 1), "lunch")
	require.NoError(t, repo.Movements.Insert(ctx, &m))
	require.NoError(t, repo.Movements.Delete(ctx, testUser, m.ID))

	_, err := repo.Movements.Get(ctx, testUser, m.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestTable_UniqueViolationIsValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedFixture(t, repo)

	dup := core.Category{UserID: testUser, Name: "Food"}
	err := repo.Categories.Insert(ctx, &dup)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestTable_FindByKeyFirstMatchWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	second := core.Event{UserID: testUser, Name: "Trip"}
	first := core.Event{UserID: testUser, Name: "Trip"}
	require.NoError(t, repo.Events.Insert(ctx, &first))
	err := repo.Events.Insert(ctx, &second)
	require.Error(t, err, "event names are unique per user")

	found, err := repo.Events.FindByKey(ctx, testUser, "Trip")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	badge, err := repo.Badges.FindByKey(ctx, 0, "EUR")
	require.NoError(t, err)
	assert.Equal(t, f.badge.ID, badge.ID)

	_, err = repo.Badges.FindByKey(ctx, 0, "JPY")
	assert.True(t, core.IsNotFound(err))
}

func TestTable_InsertIgnoreSkipsKnownImportKeys(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	keyed := func(m core.Movement, key string) core.Movement {
		m.ImportKey = &key
		return m
	}
	batch := []core.Movement{
		keyed(f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a"), "k1"),
		keyed(f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a"), "k2"),
		f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a"),
	}
	n, err := repo.Movements.InsertIgnore(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, m := range batch {
		assert.NotZero(t, m.ID)
	}

	again := []core.Movement{
		keyed(f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a"), "k1"),
		keyed(f.movement(f.food, "-20", core.NewDate(2024, 1, 6), "b"), "k2"),
		f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a"),
	}
	n, err = repo.Movements.InsertIgnore(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the unkeyed row is new")
	assert.Zero(t, again[0].ID)
	assert.Zero(t, again[1].ID)
	assert.NotZero(t, again[2].ID)

	list, err := repo.Movements.List(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestTable_ImportKeyIsUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	key := "shared"
	m := f.movement(f.food, "-10", core.NewDate(2024, 1, 5), "a")
	m.ImportKey = &key
	require.NoError(t, repo.Movements.Insert(ctx, &m))

	dup := f.movement(f.food, "-99", core.NewDate(2024, 2, 5), "b")
	dup.ImportKey = &key
	err := repo.Movements.Insert(ctx, &dup)
	assert.True(t, core.IsValidation(err))

	stored, err := repo.Movements.Get(ctx, testUser, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ImportKey)
	assert.Equal(t, key, *stored.ImportKey)
}

func TestReportEntries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	for _, m := range []core.Movement{
		f.movement(f.food, "-25", core.NewDate(2024, 3, 2), "market"),
		f.movement(f.salary, "2000", core.NewDate(2024, 3, 1), "march"),
		f.movement(f.food, "-75", core.NewDate(2024, 4, 2), "april"),
	} {
		m := m
		require.NoError(t, repo.Movements.Insert(ctx, &m))
	}

	entries, err := repo.ReportEntries(ctx, report.Query{
		UserID:  testUser,
		BadgeID: f.badge.ID,
		Window:  report.Window{From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 4, 1)},
		Sign:    report.Negative,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Food", entries[0].Category)
	assert.Equal(t, "#f00", entries[0].Color)
	assert.True(t, entries[0].Amount.Equal(dec("-25")))

	income, err := repo.ReportEntries(ctx, report.Query{UserID: testUser, Sign: report.Positive})
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, "Salary", income[0].Category)
}

func TestAggregates_SkipDeletedAccounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	closed := core.Account{UserID: testUser, Name: "Old card", BadgeID: f.badge.ID}
	require.NoError(t, repo.Accounts.Insert(ctx, &closed))

	live := f.movement(f.food, "-25", core.NewDate(2024, 3, 2), "market")
	gone := f.movement(f.food, "-40", core.NewDate(2024, 3, 3), "card")
	gone.AccountID = closed.ID
	require.NoError(t, repo.Movements.Insert(ctx, &live))
	require.NoError(t, repo.Movements.Insert(ctx, &gone))

	require.NoError(t, repo.Accounts.Delete(ctx, testUser, closed.ID))
	require.NoError(t, repo.Categories.Delete(ctx, testUser, f.food.ID))

	entries, err := repo.ReportEntries(ctx, report.Query{UserID: testUser, Sign: report.Negative})
	require.NoError(t, err)
	require.Len(t, entries, 1, "deleted account drops out, deleted category stays")
	assert.True(t, entries[0].Amount.Equal(dec("-25")))

	flows, err := repo.Flows(ctx, testUser, report.Window{}, report.Yearly)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Amount.Equal(dec("-25")))

	balances, err := repo.AccountBalances(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Balance.Equal(dec("75")))
}

func TestAccountBalances(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	empty := core.Account{UserID: testUser, Name: "Savings", InitAmount: dec("50.05"), BadgeID: f.badge.ID}
	require.NoError(t, repo.Accounts.Insert(ctx, &empty))

	for _, m := range []core.Movement{
		f.movement(f.food, "-0.1", core.NewDate(2024, 3, 2), "x"),
		f.movement(f.food, "-0.2", core.NewDate(2024, 3, 3), "y"),
		f.movement(f.salary, "10", core.NewDate(2024, 3, 4), "z"),
	} {
		m := m
		require.NoError(t, repo.Movements.Insert(ctx, &m))
	}

	balances, err := repo.AccountBalances(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "Checking", balances[0].Name)
	assert.True(t, balances[0].Balance.Equal(dec("109.7")), "got %s", balances[0].Balance)
	assert.Equal(t, "Savings", balances[1].Name)
	assert.True(t, balances[1].Balance.Equal(dec("50.05")))

	opening, err := repo.OpeningBalances(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, opening["EUR"].Equal(dec("150.05")))
}

func TestFindTransferCounterpart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	in := f.movement(f.salary, "300", core.NewDate(2024, 2, 1), "transfer in")
	require.NoError(t, repo.Movements.Insert(ctx, &in))

	id, ok, err := repo.FindTransferCounterpart(ctx, testUser, f.account.ID, f.salary.ID, dec("300.00"), core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in.ID, id)

	_, ok, err = repo.FindTransferCounterpart(ctx, testUser, f.account.ID, f.salary.ID, dec("300"), core.NewDate(2024, 2, 2))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMovementDetail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	m := f.movement(f.food, "-8.40", core.NewDate(2024, 4, 9), "lunch")
	require.NoError(t, repo.Movements.Insert(ctx, &m))

	d, err := repo.MovementDetail(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, testUser, d.UserID)
	assert.Equal(t, "Checking", d.Account)
	assert.Equal(t, "Food", d.Category)
	assert.Equal(t, "EUR", d.Badge)
	assert.True(t, d.Amount.Equal(dec("-8.4")))

	all, err := repo.MovementDetails(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.MovementDetail(ctx, m.ID+100)
	assert.True(t, core.IsNotFound(err))
}

func TestActivePayments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seedFixture(t, repo)

	end := core.NewDate(2024, 1, 31)
	for _, p := range []core.PlannedPayment{
		{UserID: testUser, AccountID: f.account.ID, CategoryID: f.food.ID, Amount: dec("-9.99"), Description: "streaming", Frequency: core.Monthly, StartDate: core.NewDate(2023, 1, 15)},
		{UserID: testUser, AccountID: f.account.ID, CategoryID: f.food.ID, Amount: dec("-5"), Description: "expired", Frequency: core.Weekly, StartDate: core.NewDate(2023, 1, 1), EndDate: &end},
		{UserID: testUser, AccountID: f.account.ID, CategoryID: f.food.ID, Amount: dec("-1"), Description: "future", Frequency: core.Daily, StartDate: core.NewDate(2025, 1, 1)},
	} {
		p := p
		require.NoError(t, repo.Payments.Insert(ctx, &p))
	}

	day := core.NewDate(2024, 6, 1)
	active, err := repo.ActivePayments(ctx, day)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "streaming", active[0].Description)
	assert.Nil(t, active[0].LastExecutionDate)

	require.NoError(t, repo.MarkPaymentExecuted(ctx, active[0].ID, day))
	p, err := repo.Payments.Get(ctx, testUser, active[0].ID)
	require.NoError(t, err)
	require.NotNil(t, p.LastExecutionDate)
	assert.Equal(t, "2024-06-01", p.LastExecutionDate.String())
}

func TestSeed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "badges:\n  - {code: EUR, symbol: \"€\", description: Euro}\n  - {code: USD, symbol: \"$\"}\ngroups:\n  - {name: Fixed costs}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	data, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, data.Badges, 2)

	badges, groups, err := repo.Seed(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, badges)
	assert.Equal(t, 1, groups)

	badges, groups, err = repo.Seed(ctx, data)
	require.NoError(t, err)
	assert.Zero(t, badges)
	assert.Zero(t, groups)
}
