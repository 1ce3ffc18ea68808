package storage

import (
	"database/sql"

	"finanzas/internal/core"
)

func badgesTable(db *sql.DB) *Table[core.Badge] {
	return &Table[core.Badge]{
		db: db, name: "badges", resource: "badge",
		columns:   []string{"code", "symbol", "flag", "description"},
		keyColumn: "code",
		orderBy:   "code",
		pointers: func(b *core.Badge) []any {
			return []any{&b.ID, &b.Code, &b.Symbol, &b.Flag, &b.Description}
		},
		values: func(b *core.Badge) []any {
			return []any{b.Code, b.Symbol, b.Flag, b.Description}
		},
		setID: func(b *core.Badge, id int64) { b.ID = id },
	}
}

func groupsTable(db *sql.DB) *Table[core.Group] {
	return &Table[core.Group]{
		db: db, name: "category_groups", resource: "group",
		columns:   []string{"name", "description"},
		keyColumn: "name",
		orderBy:   "name",
		pointers: func(g *core.Group) []any {
			return []any{&g.ID, &g.Name, &g.Description}
		},
		values: func(g *core.Group) []any {
			return []any{g.Name, g.Description}
		},
		setID: func(g *core.Group, id int64) { g.ID = id },
	}
}

func categoriesTable(db *sql.DB) *Table[core.Category] {
	return &Table[core.Category]{
		db: db, name: "categories", resource: "category",
		columns:    []string{"user_id", "name", "color", "icon", "group_id", "parent_id"},
		userScoped: true,
		softDelete: true,
		keyColumn:  "name",
		orderBy:    "name, id",
		pointers: func(c *core.Category) []any {
			return []any{&c.ID, &c.UserID, &c.Name, &c.Color, &c.Icon, &c.GroupID, &c.ParentID}
		},
		values: func(c *core.Category) []any {
			return []any{c.UserID, c.Name, c.Color, c.Icon, c.GroupID, c.ParentID}
		},
		setID: func(c *core.Category, id int64) { c.ID = id },
	}
}

func accountsTable(db *sql.DB) *Table[core.Account] {
	return &Table[core.Account]{
		db: db, name: "accounts", resource: "account",
		columns:    []string{"user_id", "name", "description", "init_amount", "badge_id"},
		userScoped: true,
		softDelete: true,
		keyColumn:  "name",
		orderBy:    "name, id",
		pointers: func(a *core.Account) []any {
			return []any{&a.ID, &a.UserID, &a.Name, &a.Description, &a.InitAmount, &a.BadgeID}
		},
		values: func(a *core.Account) []any {
			return []any{a.UserID, a.Name, a.Description, a.InitAmount, a.BadgeID}
		},
		setID: func(a *core.Account, id int64) { a.ID = id },
	}
}

func eventsTable(db *sql.DB) *Table[core.Event] {
	return &Table[core.Event]{
		db: db, name: "events", resource: "event",
		columns:    []string{"user_id", "name", "description", "end_date"},
		userScoped: true,
		keyColumn:  "name",
		orderBy:    "name, id",
		pointers: func(e *core.Event) []any {
			return []any{&e.ID, &e.UserID, &e.Name, &e.Description, &e.EndDate}
		},
		values: func(e *core.Event) []any {
			return []any{e.UserID, e.Name, e.Description, e.EndDate}
		},
		setID: func(e *core.Event, id int64) { e.ID = id },
	}
}

func investmentsTable(db *sql.DB) *Table[core.Investment] {
	return &Table[core.Investment]{
		db: db, name: "investments", resource: "investment",
		columns:    []string{"user_id", "name", "description", "init_amount", "init_date", "end_date", "badge_id"},
		userScoped: true,
		keyColumn:  "name",
		orderBy:    "init_date DESC, id",
		pointers: func(i *core.Investment) []any {
			return []any{&i.ID, &i.UserID, &i.Name, &i.Description, &i.InitAmount, &i.InitDate, &i.EndDate, &i.BadgeID}
		},
		values: func(i *core.Investment) []any {
			return []any{i.UserID, i.Name, i.Description, i.InitAmount, i.InitDate, i.EndDate, i.BadgeID}
		},
		setID: func(i *core.Investment, id int64) { i.ID = id },
	}
}

func appreciationsTable(db *sql.DB) *Table[core.Appreciation] {
	return &Table[core.Appreciation]{
		db: db, name: "appreciations", resource: "appreciation",
		columns:    []string{"user_id", "investment_id", "amount", "date"},
		userScoped: true,
		orderBy:    "date DESC, id",
		pointers: func(a *core.Appreciation) []any {
			return []any{&a.ID, &a.UserID, &a.InvestmentID, &a.Amount, &a.Date}
		},
		values: func(a *core.Appreciation) []any {
			return []any{a.UserID, a.InvestmentID, a.Amount, a.Date}
		},
		setID: func(a *core.Appreciation, id int64) { a.ID = id },
	}
}

func movementsTable(db *sql.DB) *Table[core.Movement] {
	return &Table[core.Movement]{
		db: db, name: "movements", resource: "movement",
		columns: []string{"user_id", "account_id", "category_id", "amount", "description",
			"purchase_date", "event_id", "investment_id", "transfer_id", "import_key"},
		userScoped: true,
		orderBy:    "purchase_date DESC, id DESC",
		pointers: func(m *core.Movement) []any {
			return []any{&m.ID, &m.UserID, &m.AccountID, &m.CategoryID, &m.Amount, &m.Description,
				&m.PurchaseDate, &m.EventID, &m.InvestmentID, &m.TransferID, &m.ImportKey}
		},
		values: func(m *core.Movement) []any {
			return []any{m.UserID, m.AccountID, m.CategoryID, m.Amount, m.Description,
				m.PurchaseDate, m.EventID, m.InvestmentID, m.TransferID, m.ImportKey}
		},
		setID: func(m *core.Movement, id int64) { m.ID = id },
	}
}

func budgetsTable(db *sql.DB) *Table[core.Budget] {
	return &Table[core.Budget]{
		db: db, name: "budgets", resource: "budget",
		columns:    []string{"user_id", "category_id", "amount", "year", "month"},
		userScoped: true,
		orderBy:    "year DESC, month DESC, id",
		pointers: func(b *core.Budget) []any {
			return []any{&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &b.Year, &b.Month}
		},
		values: func(b *core.Budget) []any {
			return []any{b.UserID, b.CategoryID, b.Amount, b.Year, b.Month}
		},
		setID: func(b *core.Budget, id int64) { b.ID = id },
	}
}

func heritagesTable(db *sql.DB) *Table[core.Heritage] {
	return &Table[core.Heritage]{
		db: db, name: "heritages", resource: "heritage",
		columns:    []string{"user_id", "name", "comercial_amount", "legal_amount", "year", "badge_id"},
		userScoped: true,
		keyColumn:  "name",
		orderBy:    "year DESC, name, id",
		pointers: func(h *core.Heritage) []any {
			return []any{&h.ID, &h.UserID, &h.Name, &h.ComercialAmount, &h.LegalAmount, &h.Year, &h.BadgeID}
		},
		values: func(h *core.Heritage) []any {
			return []any{h.UserID, h.Name, h.ComercialAmount, h.LegalAmount, h.Year, h.BadgeID}
		},
		setID: func(h *core.Heritage, id int64) { h.ID = id },
	}
}

func paymentsTable(db *sql.DB) *Table[core.PlannedPayment] {
	return &Table[core.PlannedPayment]{
		db: db, name: "payments", resource: "payment",
		columns: []string{"user_id", "account_id", "category_id", "amount", "description",
			"frequency", "start_date", "end_date", "last_execution_date"},
		userScoped: true,
		keyColumn:  "description",
		orderBy:    "start_date, id",
		pointers: func(p *core.PlannedPayment) []any {
			return []any{&p.ID, &p.UserID, &p.AccountID, &p.CategoryID, &p.Amount, &p.Description,
				&p.Frequency, &p.StartDate, &p.EndDate, &p.LastExecutionDate}
		},
		values: func(p *core.PlannedPayment) []any {
			return []any{p.UserID, p.AccountID, p.CategoryID, p.Amount, p.Description,
				string(p.Frequency), p.StartDate, p.EndDate, p.LastExecutionDate}
		},
		setID: func(p *core.PlannedPayment, id int64) { p.ID = id },
	}
}
