package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cbms/internal/core"
	"cbms/internal/log"
	"cbms/internal/report"
	"cbms/internal/storage"
)

type groupSharePayload struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Total   string `json:"total"`
	Percent string `json:"percent,omitempty"`
}

type analysisResponse struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	Label         string           `json:"label"`
	TotalIncome   string           `json:"total_income"`
	TotalExpenses string           `json:"total_expenses"`
	NetBalance    string           `json:"net_balance"`
	Expenses      []expensePayload `json:"expenses"`
	Incomes       []incomePayload  `json:"incomes"`
}

func groupTotals(totals []core.GroupTotal, labels map[string]string) []groupSharePayload {
	out := make([]groupSharePayload, 0, len(totals))
	for _, g := range totals {
		out = append(out, groupSharePayload{
			Key:   g.Key,
			Label: core.DisplayLabel(g.Key, labels),
			Total: core.FormatAmount(g.Total),
		})
	}
	return out
}

func groupShares(shares []core.GroupShare, labels map[string]string) []groupSharePayload {
	out := make([]groupSharePayload, 0, len(shares))
	for _, g := range shares {
		out = append(out, groupSharePayload{
			Key:     g.Key,
			Label:   core.DisplayLabel(g.Key, labels),
			Total:   core.FormatAmount(g.Total),
			Percent: g.Percent.StringFixed(1),
		})
	}
	return out
}

// monthRecords loads one month's expenses and incomes for a user. It
// writes the response on failure: 400 for a bad year/month, the mapped
// service error for storage failures.
func (s *Server) monthRecords(w http.ResponseWriter, r *http.Request, userID int64) (int, int, []core.Expense, []core.Income, bool) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, nil, nil, false
	}
	expenses, err := s.repo.ListExpensesByMonth(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, err)
		return 0, 0, nil, nil, false
	}
	incomes, err := s.repo.ListIncomesByMonth(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, err)
		return 0, 0, nil, nil, false
	}
	return year, month, expenses, incomes, true
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%sanalysis:%d-%02d", userCachePrefix(userID), year, month)
	if cached, ok := s.analysisCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	expenses, err := s.repo.ListExpensesByMonth(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	incomes, err := s.repo.ListIncomesByMonth(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	totalIncome := core.Sum(incomes)
	totalExpenses := core.Sum(expenses)
	resp := analysisResponse{
		Year:          year,
		Month:         month,
		Label:         report.MonthLabel(year, month),
		TotalIncome:   core.FormatAmount(totalIncome),
		TotalExpenses: core.FormatAmount(totalExpenses),
		NetBalance:    core.FormatAmount(core.NetBalance(totalIncome, totalExpenses)),
		Expenses:      make([]expensePayload, 0, len(expenses)),
		Incomes:       make([]incomePayload, 0, len(incomes)),
	}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, expenseToPayload(e))
	}
	for _, in := range incomes {
		resp.Incomes = append(resp.Incomes, incomeToPayload(in))
	}

	s.analysisCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleBalanceSheet reports a month's totals with category and
// payment-method breakdowns.
func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	year, month, expenses, incomes, ok := s.monthRecords(w, r, userID)
	if !ok {
		return
	}

	totalIncome := core.Sum(incomes)
	totalExpenses := core.Sum(expenses)

	writeJSON(w, http.StatusOK, map[string]any{
		"year":             year,
		"month":            month,
		"label":            report.MonthLabel(year, month),
		"total_income":     core.FormatAmount(totalIncome),
		"total_expenses":   core.FormatAmount(totalExpenses),
		"net_balance":      core.FormatAmount(core.NetBalance(totalIncome, totalExpenses)),
		"by_category":      groupTotals(core.BreakdownBy(expenses, core.ByCategory), core.CategoryLabels),
		"by_payment":       groupTotals(core.BreakdownBy(expenses, core.ByPaymentMethod), core.PaymentMethodLabels),
		"income_by_source": groupTotals(core.BreakdownBy(incomes, core.BySource), nil),
	})
}

// handleProfitLoss reports a month's percentage breakdowns, expense
// share and profit margin.
func (s *Server) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	year, month, expenses, incomes, ok := s.monthRecords(w, r, userID)
	if !ok {
		return
	}

	totalIncome := core.Sum(incomes)
	totalExpenses := core.Sum(expenses)
	net := core.NetBalance(totalIncome, totalExpenses)

	writeJSON(w, http.StatusOK, map[string]any{
		"year":           year,
		"month":          month,
		"label":          report.MonthLabel(year, month),
		"total_income":   core.FormatAmount(totalIncome),
		"total_expenses": core.FormatAmount(totalExpenses),
		"net_balance":    core.FormatAmount(net),
		"profit_margin":  core.ProfitMargin(net, totalIncome).StringFixed(1),
		"expense_share":  core.ExpenseShare(totalExpenses, totalIncome).StringFixed(1),
		"expense_breakdown": groupShares(
			core.PercentageBreakdown(expenses, core.ByCategory, totalExpenses),
			core.CategoryLabels),
		"income_breakdown": groupShares(
			core.PercentageBreakdown(incomes, core.BySource, totalIncome),
			nil),
	})
}

// handleReportCSV streams a month report as a CSV download.
func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	reportType, ok := report.ParseType(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report type")
		return
	}

	year, month, expenses, incomes, ok := s.monthRecords(w, r, userID)
	if !ok {
		return
	}
	label := report.MonthLabel(year, month)

	filename := fmt.Sprintf("%s_%04d-%02d.csv", reportType, year, month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	var err error
	switch reportType {
	case report.TypeExpenses:
		err = report.WriteExpenses(w, label, expenses)
	case report.TypeIncome:
		err = report.WriteIncomes(w, label, incomes)
	case report.TypeAll:
		err = report.WriteCombined(w, label, expenses, incomes)
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "report write failed", log.FieldError, err)
	}
}

type exportRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Type  string `json:"type"`
}

type exportPayload struct {
	ID          int64  `json:"id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	ReportType  string `json:"report_type"`
	Status      string `json:"status"`
	FilePath    string `json:"file_path,omitempty"`
	RequestedAt string `json:"requested_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func exportToPayload(ex storage.ReportExport) exportPayload {
	p := exportPayload{
		ID:          ex.ID,
		Year:        ex.Year,
		Month:       ex.Month,
		ReportType:  ex.ReportType,
		Status:      ex.Status,
		FilePath:    ex.FilePath,
		RequestedAt: ex.RequestedAt.Format(time.RFC3339),
	}
	if ex.CompletedAt != nil {
		p.CompletedAt = ex.CompletedAt.Format(time.RFC3339)
	}
	return p
}

// handleRequestExport queues an asynchronous CSV export.
func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID := currentUserID(r.Context())

	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	now := time.Now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = int(now.Month())
	}
	reportType, ok := report.ParseType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report type")
		return
	}

	id, err := s.budget.RequestExport(r.Context(), userID, req.Year, req.Month, string(reportType))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     id,
		"status": storage.ExportStatusPending,
	})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	if v := r.URL.Query().Get("id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		ex, err := s.repo.GetExport(r.Context(), userID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exportToPayload(*ex))
		return
	}

	exports, err := s.repo.ListExports(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payload := make([]exportPayload, 0, len(exports))
	for _, ex := range exports {
		payload = append(payload, exportToPayload(ex))
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": payload})
}
