package http

import (
	"net/http"
	"strconv"

	"cbms/internal/core"
)

type personPayload struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
}

type createPersonRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	JobTitle string `json:"job_title"`
}

func personToPayload(p core.Person) personPayload {
	return personPayload{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Phone:    p.Phone,
		JobTitle: p.JobTitle,
	}
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPeople(w, r)
	case http.MethodPost:
		s.createPerson(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listPeople(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	people, err := s.repo.ListPeople(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]personPayload, 0, len(people))
	for _, p := range people {
		payload = append(payload, personToPayload(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": payload})
}

func (s *Server) createPerson(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())

	var req createPersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := core.Person{
		Name:     sanitizeInput(req.Name),
		Email:    sanitizeInput(req.Email),
		Phone:    sanitizeInput(req.Phone),
		JobTitle: sanitizeInput(req.JobTitle),
	}

	id, err := s.budget.CreatePerson(r.Context(), userID, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	p.ID = id
	writeJSON(w, http.StatusCreated, personToPayload(p))
}

func (s *Server) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := currentUserID(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	p, err := s.repo.GetPerson(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	expenses, err := s.repo.ListExpensesByPerson(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	payload := make([]expensePayload, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, expenseToPayload(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"person":   personToPayload(*p),
		"expenses": payload,
		"total":    core.FormatAmount(core.Sum(expenses)),
	})
}

type deletePersonRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID := currentUserID(r.Context())

	var req deletePersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.budget.DeletePerson(r.Context(), userID, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	// Cascaded expense deletions change every aggregate view.
	s.invalidateUserCaches(userID)
	w.WriteHeader(http.StatusNoContent)
}
