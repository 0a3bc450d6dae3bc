package http

import (
	"net/http"
	"strconv"
	"strings"

	"cbms/internal/core"
)

type expensePayload struct {
	ID            int64  `json:"id"`
	Person        string `json:"person"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	Vendor        string `json:"vendor,omitempty"`
	PaymentMethod string `json:"payment_method"`
	PaymentLabel  string `json:"payment_method_label"`
	Date          string `json:"date"`
	Notes         string `json:"notes,omitempty"`
}

type createExpenseRequest struct {
	Person        string `json:"person"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Vendor        string `json:"vendor"`
	PaymentMethod string `json:"payment_method"`
	Date          string `json:"date"`
	Notes         string `json:"notes"`
}

func expenseToPayload(e core.Expense) expensePayload {
	return expensePayload{
		ID:            e.ID,
		Person:        e.PersonName,
		Amount:        core.FormatAmount(e.Amount),
		Category:      string(e.Category),
		CategoryLabel: e.Category.Display(),
		Vendor:        e.Vendor,
		PaymentMethod: string(e.PaymentMethod),
		PaymentLabel:  e.PaymentMethod.Display(),
		Date:          e.Date.String(),
		Notes:         e.Notes,
	}
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// listExpenses returns the user's expenses, optionally scoped to one
// month with ?year=&month=.
func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var (
		expenses []core.Expense
		err      error
	)
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month, perr := parseYearMonth(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		expenses, err = s.repo.ListExpensesByMonth(r.Context(), userID, year, month)
	} else {
		expenses, err = s.repo.ListExpenses(r.Context(), userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]expensePayload, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, expenseToPayload(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": payload,
		"total":    core.FormatAmount(core.Sum(expenses)),
	})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var req createExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	category := core.Category(strings.TrimSpace(req.Category))
	if category == "" {
		category = core.CategoryOther
	}
	method := core.PaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = core.PaymentCash
	}

	e := core.Expense{
		Amount:        amount,
		Category:      category,
		Vendor:        sanitizeInput(req.Vendor),
		PaymentMethod: method,
		Date:          date,
		Notes:         sanitizeInput(req.Notes),
	}

	id, err := s.budget.CreateExpense(r.Context(), userID, sanitizeInput(req.Person), e)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateUserCaches(userID)

	created, err := s.repo.GetExpense(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseToPayload(*created))
}

func (s *Server) handleExpenseDetail(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	e, err := s.repo.GetExpense(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseToPayload(*e))
}

type deleteExpenseRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID := currentUserID(r.Context())

	var req deleteExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.repo.DeleteExpense(r.Context(), userID, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateUserCaches(userID)
	w.WriteHeader(http.StatusNoContent)
}
