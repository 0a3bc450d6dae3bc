package http

import (
	"context"
	"net/http"
	"time"

	"cbms/internal/core"
	"cbms/internal/log"
	"cbms/internal/report"
)

// seriesWindow is how many trailing months the dashboard chart shows.
const seriesWindow = 6

type monthBucketPayload struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

type dashboardResponse struct {
	TotalIncome    string               `json:"total_income"`
	TotalExpenses  string               `json:"total_expenses"`
	Balance        string               `json:"balance"`
	PeopleCount    int64                `json:"people_count"`
	CurrentMonth   monthBucketPayload   `json:"current_month"`
	Series         []monthBucketPayload `json:"series"`
	RecentExpenses []expensePayload     `json:"recent_expenses"`
	RecentIncomes  []incomePayload      `json:"recent_incomes"`
}

func bucketToPayload(b core.MonthBucket) monthBucketPayload {
	return monthBucketPayload{
		Year:    b.Year,
		Month:   b.Month,
		Label:   report.MonthLabel(b.Year, b.Month),
		Income:  core.FormatAmount(b.Income),
		Expense: core.FormatAmount(b.Expense),
		Balance: core.FormatAmount(b.Balance),
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	key := userCachePrefix(userID) + "dashboard"
	if cached, ok := s.dashboardCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	resp, err := s.buildDashboard(r.Context(), userID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "dashboard build failed",
			log.FieldError, err, log.FieldUserID, userID)
		writeServiceError(w, err)
		return
	}

	s.dashboardCache.Set(key, *resp)
	writeJSON(w, http.StatusOK, *resp)
}

func (s *Server) buildDashboard(ctx context.Context, userID int64) (*dashboardResponse, error) {
	totalIncome, err := s.repo.TotalIncomes(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalExpenses, err := s.repo.TotalExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	peopleCount, err := s.repo.CountPeople(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reference := core.NewDate(now.Year(), int(now.Month()), now.Day())

	// Load the whole window once and bucket in memory.
	from := core.NewDate(now.Year(), int(now.Month())-seriesWindow+1, 1)
	to := core.NewDate(now.Year(), int(now.Month())+1, 0) // last day of this month
	expenses, err := s.repo.ListExpensesByRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	incomes, err := s.repo.ListIncomesByRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	series, err := core.MonthlySeries(incomes, expenses, reference, seriesWindow)
	if err != nil {
		return nil, err
	}

	recentExpenses, err := s.repo.ListRecentExpenses(ctx, userID, 5)
	if err != nil {
		return nil, err
	}
	recentIncomes, err := s.repo.ListRecentIncomes(ctx, userID, 5)
	if err != nil {
		return nil, err
	}

	resp := &dashboardResponse{
		TotalIncome:    core.FormatAmount(totalIncome),
		TotalExpenses:  core.FormatAmount(totalExpenses),
		Balance:        core.FormatAmount(core.NetBalance(totalIncome, totalExpenses)),
		PeopleCount:    peopleCount,
		Series:         make([]monthBucketPayload, 0, len(series)),
		RecentExpenses: make([]expensePayload, 0, len(recentExpenses)),
		RecentIncomes:  make([]incomePayload, 0, len(recentIncomes)),
	}
	for _, b := range series {
		resp.Series = append(resp.Series, bucketToPayload(b))
	}
	if len(series) > 0 {
		resp.CurrentMonth = resp.Series[len(resp.Series)-1]
	}
	for _, e := range recentExpenses {
		resp.RecentExpenses = append(resp.RecentExpenses, expenseToPayload(e))
	}
	for _, in := range recentIncomes {
		resp.RecentIncomes = append(resp.RecentIncomes, incomeToPayload(in))
	}
	return resp, nil
}
