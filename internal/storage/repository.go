package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the shared store handle. It is opened once at process
// start, passed to every service and closed at shutdown.
type SQLiteRepository struct {
	db *sql.DB

	Badges        *Table[core.Badge]
	Groups        *Table[core.Group]
	Categories    *Table[core.Category]
	Accounts      *Table[core.Account]
	Events        *Table[core.Event]
	Investments   *Table[core.Investment]
	Appreciations *Table[core.Appreciation]
	Movements     *Table[core.Movement]
	Budgets       *Table[core.Budget]
	Heritages     *Table[core.Heritage]
	Payments      *Table[core.PlannedPayment]
}

// NewSQLiteRepository creates the database directory if needed, applies
// migrations and opens the connection pool.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)
	return newRepository(db), nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:            db,
		Badges:        badgesTable(db),
		Groups:        groupsTable(db),
		Categories:    categoriesTable(db),
		Accounts:      accountsTable(db),
		Events:        eventsTable(db),
		Investments:   investmentsTable(db),
		Appreciations: appreciationsTable(db),
		Movements:     movementsTable(db),
		Budgets:       budgetsTable(db),
		Heritages:     heritagesTable(db),
		Payments:      paymentsTable(db),
	}
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
