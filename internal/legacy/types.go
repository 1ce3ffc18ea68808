package legacy

import (
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Remote records carry no ids the local store understands; every reference is
// a natural key (a name or a currency code).
type (
	Account struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InitAmount  decimal.Decimal `json:"initAmount"`
		Badge       string          `json:"badge"`
	}

	Category struct {
		Name   string `json:"name"`
		Color  string `json:"color"`
		Icon   string `json:"icon"`
		Group  string `json:"group"`
		Parent string `json:"parent"`
	}

	Event struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		EndDate     *core.Date `json:"endDate"`
	}

	Investment struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InitAmount  decimal.Decimal `json:"initAmount"`
		InitDate    core.Date       `json:"initDate"`
		EndDate     *core.Date      `json:"endDate"`
		Badge       string          `json:"badge"`
	}

	// TransferLeg describes the counterpart of a transfer-out movement.
	TransferLeg struct {
		Account  string          `json:"account"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Date     core.Date       `json:"date"`
	}

	Movement struct {
		Account      string          `json:"account"`
		Category     string          `json:"category"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		PurchaseDate core.Date       `json:"purchaseDate"`
		Event        string          `json:"event"`
		Investment   string          `json:"investment"`
		Transfer     *TransferLeg    `json:"transfer"`
	}

	Heritage struct {
		Name            string          `json:"name"`
		ComercialAmount decimal.Decimal `json:"comercialAmount"`
		LegalAmount     decimal.Decimal `json:"legalAmount"`
		Year            int             `json:"year"`
		Badge           string          `json:"badge"`
	}

	Payment struct {
		Account     string          `json:"account"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Frequency   core.Frequency  `json:"frequency"`
		StartDate   core.Date       `json:"startDate"`
		EndDate     *core.Date      `json:"endDate"`
	}

	Appreciation struct {
		Investment string          `json:"investment"`
		Amount     decimal.Decimal `json:"amount"`
		Date       core.Date       `json:"date"`
	}
)
