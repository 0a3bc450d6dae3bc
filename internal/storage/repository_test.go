package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"cbms/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, username string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func newTestPerson(t *testing.T, repo *SQLiteRepository, userID int64, name, email string) int64 {
	t.Helper()
	id, err := repo.CreatePerson(context.Background(), core.Person{
		UserID: userID, Name: name, Email: email,
	})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return id
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year, month int
		from, to    string
	}{
		{2024, 1, "2024-01-01", "2024-02-01"},
		{2024, 2, "2024-02-01", "2024-03-01"},
		{2024, 12, "2024-12-01", "2025-01-01"},
	}
	for _, tt := range tests {
		from, to := MonthRange(tt.year, tt.month)
		if from != tt.from || to != tt.to {
			t.Errorf("MonthRange(%d, %d) = %q, %q; want %q, %q",
				tt.year, tt.month, from, to, tt.from, tt.to)
		}
	}
}

func TestDuplicatePersonEmail(t *testing.T) {
	repo := newTestRepo(t)
	userID := newTestUser(t, repo, "alice")
	other := newTestUser(t, repo, "bob")

	newTestPerson(t, repo, userID, "John", "john@company.com")

	_, err := repo.CreatePerson(context.Background(), core.Person{
		UserID: userID, Name: "John Again", Email: "john@company.com",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Same email under a different user is fine.
	if _, err := repo.CreatePerson(context.Background(), core.Person{
		UserID: other, Name: "John", Email: "john@company.com",
	}); err != nil {
		t.Fatalf("other user's person: %v", err)
	}
}

func TestExpenseAmountsStayExact(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userID := newTestUser(t, repo, "alice")
	personID := newTestPerson(t, repo, userID, "John", "john@company.com")

	for i := 0; i < 1000; i++ {
		_, err := repo.CreateExpense(ctx, core.Expense{
			UserID:        userID,
			PersonID:      personID,
			Amount:        mustDecimal(t, "0.10"),
			Category:      core.CategoryOther,
			PaymentMethod: core.PaymentCash,
			Date:          core.NewDate(2024, 3, 15),
		})
		if err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	total, err := repo.TotalExpenses(ctx, userID)
	if err != nil {
		t.Fatalf("total expenses: %v", err)
	}
	if total.String() != "100" {
		t.Errorf("total = %s, want 100", total)
	}
}

func TestListExpensesByMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userID := newTestUser(t, repo, "alice")
	personID := newTestPerson(t, repo, userID, "John", "john@company.com")

	dates := []core.Date{
		core.NewDate(2024, 2, 29),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 4, 1),
	}
	for _, d := range dates {
		if _, err := repo.CreateExpense(ctx, core.Expense{
			UserID: userID, PersonID: personID,
			Amount: mustDecimal(t, "10.00"),
			Date:   d,
		}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	got, err := repo.ListExpensesByMonth(ctx, userID, 2024, 3)
	if err != nil {
		t.Fatalf("list by month: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d expenses, want 2", len(got))
	}
	if got[0].Date.String() != "2024-03-01" || got[1].Date.String() != "2024-03-31" {
		t.Errorf("dates = %s, %s; want 2024-03-01, 2024-03-31",
			got[0].Date, got[1].Date)
	}
	if got[0].PersonName != "John" {
		t.Errorf("person name = %q, want John", got[0].PersonName)
	}
}

func TestDeletePersonCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userID := newTestUser(t, repo, "alice")
	personID := newTestPerson(t, repo, userID, "John", "john@company.com")

	if _, err := repo.CreateExpense(ctx, core.Expense{
		UserID: userID, PersonID: personID,
		Amount: mustDecimal(t, "10.00"),
		Date:   core.NewDate(2024, 3, 15),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := repo.DeletePerson(ctx, userID, personID); err != nil {
		t.Fatalf("delete person: %v", err)
	}

	expenses, err := repo.ListExpenses(ctx, userID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("got %d expenses after cascade, want 0", len(expenses))
	}
}

func TestUserScoping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice")
	bob := newTestUser(t, repo, "bob")
	personID := newTestPerson(t, repo, alice, "John", "john@company.com")

	id, err := repo.CreateExpense(ctx, core.Expense{
		UserID: alice, PersonID: personID,
		Amount: mustDecimal(t, "10.00"),
		Date:   core.NewDate(2024, 3, 15),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if _, err := repo.GetExpense(ctx, bob, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user get: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, bob, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user delete: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetExpense(ctx, alice, id); err != nil {
		t.Errorf("owner get: %v", err)
	}
}

func TestExportLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userID := newTestUser(t, repo, "alice")

	id, err := repo.CreateExport(ctx, userID, 2024, 3, "expenses")
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	pending, err := repo.ListPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want one job with id %d", pending, id)
	}

	if err := repo.MarkExportDone(ctx, id, "/exports/report.csv"); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	ex, err := repo.GetExport(ctx, userID, id)
	if err != nil {
		t.Fatalf("get export: %v", err)
	}
	if ex.Status != ExportStatusDone {
		t.Errorf("status = %q, want %q", ex.Status, ExportStatusDone)
	}
	if ex.FilePath != "/exports/report.csv" {
		t.Errorf("file path = %q", ex.FilePath)
	}
	if ex.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	pending, err = repo.ListPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending after completion, want 0", len(pending))
	}
}
