// Package services holds the business logic between the HTTP layer and
// storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cbms/internal/amqp"
	"cbms/internal/core"
	"cbms/internal/log"
	"cbms/internal/storage"
)

// ErrInsufficientBalance rejects an expense larger than the current
// balance (total income minus total expenses).
var ErrInsufficientBalance = errors.New("insufficient balance")

// ExportPublisher enqueues a report export job. Satisfied by
// *amqp.Client.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

// BudgetService orchestrates expense, income, people and report export
// operations.
type BudgetService struct {
	storage   *storage.SQLiteRepository
	publisher ExportPublisher
	logger    *log.Logger
}

func NewBudgetService(repo *storage.SQLiteRepository, publisher ExportPublisher, logger *log.Logger) *BudgetService {
	return &BudgetService{
		storage:   repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBudget),
	}
}

// CreateExpense validates the expense against the user's current
// balance and records it, creating the named person on the fly when
// they are not in the contact list yet.
func (s *BudgetService) CreateExpense(ctx context.Context, userID int64, personName string, e core.Expense) (int64, error) {
	e.UserID = userID
	personName = strings.TrimSpace(personName)
	if personName == "" {
		return 0, core.ErrEmptyName
	}
	if err := core.ValidateAmount(e.Amount); err != nil {
		return 0, err
	}
	if err := e.Date.Validate(); err != nil {
		return 0, err
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if e.Amount.GreaterThan(balance) {
		return 0, fmt.Errorf("%w: balance is %s, expense is %s",
			ErrInsufficientBalance, core.FormatAmount(balance), core.FormatAmount(e.Amount))
	}

	person, err := s.getOrCreatePerson(ctx, userID, personName)
	if err != nil {
		return 0, err
	}
	e.PersonID = person.ID

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	s.logger.InfoContext(ctx, "expense created",
		log.FieldUserID, userID,
		log.FieldPerson, person.Name,
		log.FieldAmount, core.FormatAmount(e.Amount),
		log.FieldCategory, string(e.Category))

	return id, nil
}

// getOrCreatePerson reuses an existing contact by name or provisions
// one with a synthesized email of the form first.last@company.com.
func (s *BudgetService) getOrCreatePerson(ctx context.Context, userID int64, name string) (*core.Person, error) {
	person, err := s.storage.GetPersonByName(ctx, userID, name)
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("look up person: %w", err)
	}

	p := core.Person{
		UserID:   userID,
		Name:     name,
		Email:    SynthesizeEmail(name),
		JobTitle: "Employee",
	}
	id, err := s.storage.CreatePerson(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("provision person: %w", err)
	}
	p.ID = id
	return &p, nil
}

// SynthesizeEmail derives a placeholder email from a person's name.
func SynthesizeEmail(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@company.com"
}

func (s *BudgetService) CreateIncome(ctx context.Context, userID int64, in core.Income) (int64, error) {
	in.UserID = userID
	if err := in.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("create income: %w", err)
	}

	s.logger.InfoContext(ctx, "income created",
		log.FieldUserID, userID,
		log.FieldSource, in.Source,
		log.FieldAmount, core.FormatAmount(in.Amount))

	return id, nil
}

// Balance returns total income minus total expenses for the user.
func (s *BudgetService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	incomes, err := s.storage.TotalIncomes(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total incomes: %w", err)
	}
	expenses, err := s.storage.TotalExpenses(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total expenses: %w", err)
	}
	return core.NetBalance(incomes, expenses), nil
}

func (s *BudgetService) CreatePerson(ctx context.Context, userID int64, p core.Person) (int64, error) {
	p.UserID = userID
	if err := p.Validate(); err != nil {
		return 0, err
	}
	taken, err := s.storage.HasPersonWithEmail(ctx, userID, p.Email)
	if err != nil {
		return 0, fmt.Errorf("check person email: %w", err)
	}
	if taken {
		return 0, storage.ErrDuplicateEmail
	}
	id, err := s.storage.CreatePerson(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return 0, err
		}
		return 0, fmt.Errorf("create person: %w", err)
	}
	return id, nil
}

// DeletePerson removes a contact and, through the schema's cascade,
// every expense recorded against them.
func (s *BudgetService) DeletePerson(ctx context.Context, userID, personID int64) error {
	if err := s.storage.DeletePerson(ctx, userID, personID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "person deleted",
		log.FieldUserID, userID, "person_id", personID)
	return nil
}

// RequestExport records an export job and enqueues it. The row is
// written first so the worker's sweep can recover jobs whose publish
// failed.
func (s *BudgetService) RequestExport(ctx context.Context, userID int64, year, month int, reportType string) (int64, error) {
	if month < 1 || month > 12 {
		return 0, core.ErrInvalidDate
	}

	id, err := s.storage.CreateExport(ctx, userID, year, month, reportType)
	if err != nil {
		return 0, fmt.Errorf("record export: %w", err)
	}

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "no publisher configured, export waits for sweep",
			log.FieldExportID, id)
		return id, nil
	}

	msg := amqp.NewReportExportMessage(id, userID, year, month, reportType)
	if err := s.publisher.PublishReportExport(ctx, msg); err != nil {
		// Job stays pending; the worker sweep will pick it up.
		s.logger.ErrorContext(ctx, "publish export failed",
			log.FieldError, err, log.FieldExportID, id)
	}

	return id, nil
}
