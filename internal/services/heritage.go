package services

import (
	"context"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

type HeritageService struct {
	*Service[core.Heritage]
	repo *storage.SQLiteRepository
}

func NewHeritageService(repo *storage.SQLiteRepository, logger *applog.Logger) *HeritageService {
	own := func(h *core.Heritage, userID, id int64) { h.ID, h.UserID = id, userID }
	svc := NewService(repo.Heritages, own, logger).WithReferences(
		func(ctx context.Context, userID int64, h *core.Heritage) error {
			return reference(ctx, repo.Badges, userID, h.BadgeID, "badgeId")
		})
	return &HeritageService{Service: svc, repo: repo}
}

// HeritageTotal sums the heritage snapshots of one currency and year.
type HeritageTotal struct {
	Badge           string          `json:"badge"`
	Year            int             `json:"year"`
	ComercialAmount decimal.Decimal `json:"comercialAmount"`
	LegalAmount     decimal.Decimal `json:"legalAmount"`
	Items           int             `json:"items"`
}

// Summary totals heritage per (currency, year), newest year first. A
// non-zero year restricts the summary to that year.
func (s *HeritageService) Summary(ctx context.Context, userID int64, year int) ([]HeritageTotal, error) {
	var (
		items []core.Heritage
		err   error
	)
	if year != 0 {
		items, err = s.repo.Heritages.Select(ctx, userID, "year = ?", year)
	} else {
		items, err = s.repo.Heritages.List(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	type key struct {
		badge int64
		year  int
	}
	codes := map[int64]string{}
	index := map[key]int{}
	out := make([]HeritageTotal, 0)
	for _, h := range items {
		code, ok := codes[h.BadgeID]
		if !ok {
			b, err := s.repo.Badges.Get(ctx, userID, h.BadgeID)
			if err != nil {
				return nil, err
			}
			code = b.Code
			codes[h.BadgeID] = code
		}
		k := key{h.BadgeID, h.Year}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, HeritageTotal{Badge: code, Year: h.Year, ComercialAmount: decimal.Zero, LegalAmount: decimal.Zero})
		}
		out[i].ComercialAmount = out[i].ComercialAmount.Add(h.ComercialAmount)
		out[i].LegalAmount = out[i].LegalAmount.Add(h.LegalAmount)
		out[i].Items++
	}
	return out, nil
}
