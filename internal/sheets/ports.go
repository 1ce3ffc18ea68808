package sheets

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Row is one movement as it appears in the mirror spreadsheet.
type Row struct {
	ID          int64
	UserID      int64
	Date        core.Date
	Account     string
	Category    string
	Badge       string
	Amount      decimal.Decimal
	Description string
}

// Cells renders the row in column order: id, date, account, category,
// amount, currency, description, user.
func (r Row) Cells() []interface{} {
	return []interface{}{
		strconv.FormatInt(r.ID, 10),
		r.Date.String(),
		r.Account,
		r.Category,
		r.Amount.StringFixed(2),
		r.Badge,
		r.Description,
		strconv.FormatInt(r.UserID, 10),
	}
}

// Ports for outbound adapters.
type (
	// MovementMirror keeps a spreadsheet copy of movements keyed by id.
	MovementMirror interface {
		// Upsert writes the row, replacing an earlier copy with the same id.
		Upsert(ctx context.Context, r Row) (rowRef string, err error)
		// Delete removes the row with the given id. Missing rows are not an error.
		Delete(ctx context.Context, id int64) error
	}
)
