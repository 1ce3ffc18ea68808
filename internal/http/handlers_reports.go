package http

import (
	"net/http"
	"strings"

	applog "finanzas/internal/log"
	"finanzas/internal/report"
)

const reportFailed = "report generation failed"

// handleReport serves GET /reports/{type}/{period}. The selector pair is
// checked before any parameter parsing or store access.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	t, err := report.ParseType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, applog.OpReport, badRequest(err), "")
		return
	}
	p, err := report.ParsePeriod(r.PathValue("period"))
	if err != nil {
		writeError(w, r, applog.OpReport, badRequest(err), "")
		return
	}
	params, err := ParseReportParams(r.URL.Query(), callerID(r))
	if err != nil {
		writeError(w, r, applog.OpReport, err, "")
		return
	}
	rows, err := s.svc.Reports.Generate(r.Context(), string(t), string(p), params)
	if err != nil {
		writeError(w, r, applog.OpReport, err, reportFailed)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	year := q.Int("year")
	if err := q.Err(); err != nil {
		writeError(w, r, applog.OpReport, err, "")
		return
	}
	totals, err := s.svc.Reports.Totals(r.Context(), callerID(r).UserID, year)
	if err != nil {
		writeError(w, r, applog.OpReport, err, reportFailed)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.svc.Balances.Accounts(r.Context(), callerID(r).UserID)
	if err != nil {
		writeError(w, r, applog.OpRead, err, "failed to compute balances")
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err, "")
		return
	}
	balance, err := s.svc.Balances.Account(r.Context(), callerID(r).UserID, id)
	if err != nil {
		writeError(w, r, applog.OpRead, err, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// handleBalanceHistory serves GET /balances/history?period=&year=. The
// period defaults to monthly.
func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	year := q.Int("year")
	if err := q.Err(); err != nil {
		writeError(w, r, applog.OpReport, err, "")
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period == "" {
		period = string(report.Monthly)
	}
	if _, err := report.ParsePeriod(period); err != nil {
		writeError(w, r, applog.OpReport, badRequest(err), "")
		return
	}
	points, err := s.svc.Balances.History(r.Context(), callerID(r).UserID, period, year)
	if err != nil {
		writeError(w, r, applog.OpReport, err, reportFailed)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	year, month := q.Int("year"), q.Int("month")
	if err := q.Err(); err != nil {
		writeError(w, r, applog.OpReport, err, "")
		return
	}
	if year == 0 {
		year = s.now().Year()
	}
	lines, err := s.svc.Budgets.Report(r.Context(), callerID(r).UserID, year, month)
	if err != nil {
		writeError(w, r, applog.OpReport, err, reportFailed)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleHeritageSummary(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	year := q.Int("year")
	if err := q.Err(); err != nil {
		writeError(w, r, applog.OpReport, err, "")
		return
	}
	totals, err := s.svc.Heritages.Summary(r.Context(), callerID(r).UserID, year)
	if err != nil {
		writeError(w, r, applog.OpReport, err, reportFailed)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleMovements lists movements, optionally filtered by account, category
// and a [from, to) date range.
func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	f, err := ParseMovementFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err, "")
		return
	}
	items, err := s.svc.Movements.Search(r.Context(), callerID(r).UserID, f)
	if err != nil {
		writeError(w, r, applog.OpList, err, "failed to list movements")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
