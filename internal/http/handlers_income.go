package http

import (
	"net/http"
	"strconv"
	"strings"

	"cbms/internal/core"
)

type incomePayload struct {
	ID            int64  `json:"id"`
	Person        string `json:"person"`
	Amount        string `json:"amount"`
	Source        string `json:"source"`
	Category      string `json:"category,omitempty"`
	PaymentMethod string `json:"payment_method"`
	PaymentLabel  string `json:"payment_method_label"`
	Date          string `json:"date"`
	Notes         string `json:"notes,omitempty"`
}

type createIncomeRequest struct {
	Person        string `json:"person"`
	Amount        string `json:"amount"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	PaymentMethod string `json:"payment_method"`
	Date          string `json:"date"`
	Notes         string `json:"notes"`
}

func incomeToPayload(in core.Income) incomePayload {
	return incomePayload{
		ID:            in.ID,
		Person:        in.Person,
		Amount:        core.FormatAmount(in.Amount),
		Source:        in.Source,
		Category:      string(in.Category),
		PaymentMethod: string(in.PaymentMethod),
		PaymentLabel:  in.PaymentMethod.Display(),
		Date:          in.Date.String(),
		Notes:         in.Notes,
	}
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listIncomes(w, r)
	case http.MethodPost:
		s.createIncome(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listIncomes(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var (
		incomes []core.Income
		err     error
	)
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month, perr := parseYearMonth(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		incomes, err = s.repo.ListIncomesByMonth(r.Context(), userID, year, month)
	} else {
		incomes, err = s.repo.ListIncomes(r.Context(), userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]incomePayload, 0, len(incomes))
	for _, in := range incomes {
		payload = append(payload, incomeToPayload(in))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incomes": payload,
		"total":   core.FormatAmount(core.Sum(incomes)),
	})
}

func (s *Server) createIncome(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var req createIncomeRequest
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

	method := core.PaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = core.PaymentBankTransfer
	}

	in := core.Income{
		Person:        sanitizeInput(req.Person),
		Amount:        amount,
		Source:        sanitizeInput(req.Source),
		Category:      core.Category(strings.TrimSpace(req.Category)),
		PaymentMethod: method,
		Date:          date,
		Notes:         sanitizeInput(req.Notes),
	}

	id, err := s.budget.CreateIncome(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateUserCaches(userID)

	in.ID = id
	in.UserID = userID
	writeJSON(w, http.StatusCreated, incomeToPayload(in))
}

func (s *Server) handleIncomeDetail(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	in, err := s.repo.GetIncome(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incomeToPayload(*in))
}

type deleteIncomeRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID := currentUserID(r.Context())

	var req deleteIncomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.repo.DeleteIncome(r.Context(), userID, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateUserCaches(userID)
	w.WriteHeader(http.StatusNoContent)
}
