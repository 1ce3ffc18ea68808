package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a planned payment repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	// Badge is a currency.
	Badge struct {
		ID          int64  `json:"id"`
		Code        string `json:"code"`
		Symbol      string `json:"symbol"`
		Flag        string `json:"flag"`
		Description string `json:"description"`
	}

	// Group clusters categories (e.g. "Fixed costs").
	Group struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	Category struct {
		ID        int64      `json:"id"`
		UserID    int64      `json:"userId"`
		Name      string     `json:"name"`
		Color     string     `json:"color"`
		Icon      string     `json:"icon"`
		GroupID   *int64     `json:"groupId,omitempty"`
		ParentID  *int64     `json:"parentId,omitempty"`
		DeletedAt *time.Time `json:"-"`
	}

	Account struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"userId"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InitAmount  decimal.Decimal `json:"initAmount"`
		BadgeID     int64           `json:"badgeId"`
		DeletedAt   *time.Time      `json:"-"`
	}

	Event struct {
		ID          int64  `json:"id"`
		UserID      int64  `json:"userId"`
		Name        string `json:"name"`
		Description string `json:"description"`
		EndDate     *Date  `json:"endDate,omitempty"`
	}

	Investment struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"userId"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InitAmount  decimal.Decimal `json:"initAmount"`
		InitDate    Date            `json:"initDate"`
		EndDate     *Date           `json:"endDate,omitempty"`
		BadgeID     int64           `json:"badgeId"`
	}

	// Appreciation is a valuation of an investment at a given date.
	Appreciation struct {
		ID           int64           `json:"id"`
		UserID       int64           `json:"userId"`
		InvestmentID int64           `json:"investmentId"`
		Amount       decimal.Decimal `json:"amount"`
		Date         Date            `json:"date"`
	}

	// Movement is a single signed money flow on an account: negative for
	// expenses, positive for income.
	Movement struct {
		ID           int64           `json:"id"`
		UserID       int64           `json:"userId"`
		AccountID    int64           `json:"accountId"`
		CategoryID   int64           `json:"categoryId"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		PurchaseDate Date            `json:"purchaseDate"`
		EventID      *int64          `json:"eventId,omitempty"`
		InvestmentID *int64          `json:"investmentId,omitempty"`
		TransferID   *int64          `json:"transferId,omitempty"`
		// ImportKey identifies a row written by an import or a planned
		// payment so that replays do not duplicate it. API writes leave it nil.
		ImportKey    *string         `json:"-"`
	}

	// Budget caps spending on a category. Month 0 means the whole year.
	Budget struct {
		ID         int64           `json:"id"`
		UserID     int64           `json:"userId"`
		CategoryID int64           `json:"categoryId"`
		Amount     decimal.Decimal `json:"amount"`
		Year       int             `json:"year"`
		Month      int             `json:"month"`
	}

	// Heritage is a yearly snapshot of a patrimonial asset.
	Heritage struct {
		ID              int64           `json:"id"`
		UserID          int64           `json:"userId"`
		Name            string          `json:"name"`
		ComercialAmount decimal.Decimal `json:"comercialAmount"`
		LegalAmount     decimal.Decimal `json:"legalAmount"`
		Year            int             `json:"year"`
		BadgeID         int64           `json:"badgeId"`
	}

	// PlannedPayment is a template the daily job turns into movements.
	PlannedPayment struct {
		ID                int64           `json:"id"`
		UserID            int64           `json:"userId"`
		AccountID         int64           `json:"accountId"`
		CategoryID        int64           `json:"categoryId"`
		Amount            decimal.Decimal `json:"amount"`
		Description       string          `json:"description"`
		Frequency         Frequency       `json:"frequency"`
		StartDate         Date            `json:"startDate"`
		EndDate           *Date           `json:"endDate,omitempty"`
		LastExecutionDate *Date           `json:"lastExecutionDate,omitempty"`
	}
)

func checkName(v *ValidationError, field, name string) {
	switch {
	case strings.TrimSpace(name) == "":
		v.Add(field, "is required")
	case len(name) > maxNameLength:
		v.Add(field, "too long (max 100 characters)")
	}
}

func checkDescription(v *ValidationError, description string) {
	if len(description) > maxDescriptionLength {
		v.Add("description", "too long (max 200 characters)")
	}
}

func checkYear(v *ValidationError, year int) {
	if year < 1900 || year > 9999 {
		v.Add("year", "must be between 1900 and 9999")
	}
}

func (b Badge) Validate() error {
	v := &ValidationError{}
	if len(strings.TrimSpace(b.Code)) != 3 {
		v.Add("code", "must be a 3-letter currency code")
	}
	if strings.TrimSpace(b.Symbol) == "" {
		v.Add("symbol", "is required")
	}
	checkDescription(v, b.Description)
	return v.OrNil()
}

func (g Group) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", g.Name)
	checkDescription(v, g.Description)
	return v.OrNil()
}

func (c Category) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", c.Name)
	if c.ParentID != nil && *c.ParentID == c.ID && c.ID != 0 {
		v.Add("parentId", "category cannot be its own parent")
	}
	return v.OrNil()
}

func (a Account) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", a.Name)
	checkDescription(v, a.Description)
	if a.BadgeID <= 0 {
		v.Add("badgeId", "is required")
	}
	return v.OrNil()
}

func (e Event) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", e.Name)
	checkDescription(v, e.Description)
	return v.OrNil()
}

func (i Investment) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", i.Name)
	checkDescription(v, i.Description)
	if i.BadgeID <= 0 {
		v.Add("badgeId", "is required")
	}
	if i.InitDate.IsZero() {
		v.Add("initDate", "is required")
	}
	if i.EndDate != nil && !i.EndDate.IsZero() && i.EndDate.Before(i.InitDate.Time) {
		v.Add("endDate", "must not be before initDate")
	}
	return v.OrNil()
}

func (a Appreciation) Validate() error {
	v := &ValidationError{}
	if a.InvestmentID <= 0 {
		v.Add("investmentId", "is required")
	}
	if a.Date.IsZero() {
		v.Add("date", "is required")
	}
	return v.OrNil()
}

func (m Movement) Validate() error {
	v := &ValidationError{}
	if m.AccountID <= 0 {
		v.Add("accountId", "is required")
	}
	if m.CategoryID <= 0 {
		v.Add("categoryId", "is required")
	}
	if m.Amount.IsZero() {
		v.Add("amount", "must not be zero")
	}
	if m.PurchaseDate.IsZero() {
		v.Add("purchaseDate", "is required")
	}
	checkDescription(v, m.Description)
	return v.OrNil()
}

func (b Budget) Validate() error {
	v := &ValidationError{}
	if b.CategoryID <= 0 {
		v.Add("categoryId", "is required")
	}
	if !b.Amount.IsPositive() {
		v.Add("amount", "must be positive")
	}
	checkYear(v, b.Year)
	if b.Month < 0 || b.Month > 12 {
		v.Add("month", "must be between 0 and 12")
	}
	return v.OrNil()
}

func (h Heritage) Validate() error {
	v := &ValidationError{}
	checkName(v, "name", h.Name)
	checkYear(v, h.Year)
	if h.BadgeID <= 0 {
		v.Add("badgeId", "is required")
	}
	return v.OrNil()
}

func (p PlannedPayment) Validate() error {
	v := &ValidationError{}
	if p.AccountID <= 0 {
		v.Add("accountId", "is required")
	}
	if p.CategoryID <= 0 {
		v.Add("categoryId", "is required")
	}
	if p.Amount.IsZero() {
		v.Add("amount", "must not be zero")
	}
	if strings.TrimSpace(p.Description) == "" {
		v.Add("description", "is required")
	}
	checkDescription(v, p.Description)
	if !p.Frequency.Valid() {
		v.Add("frequency", "must be one of daily, weekly, monthly, yearly")
	}
	if p.StartDate.IsZero() {
		v.Add("startDate", "is required")
	}
	if p.EndDate != nil && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate.Time) {
		v.Add("endDate", "must not be before startDate")
	}
	return v.OrNil()
}

// ActiveOn reports whether the payment window covers day.
func (p PlannedPayment) ActiveOn(day Date) bool {
	if day.Before(p.StartDate.Time) {
		return false
	}
	if p.EndDate != nil && !p.EndDate.IsZero() && day.After(p.EndDate.Time) {
		return false
	}
	return true
}
