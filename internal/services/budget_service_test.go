package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cbms/internal/amqp"
	"cbms/internal/auth"
	"cbms/internal/core"
	"cbms/internal/log"
	"cbms/internal/storage"
)

type fakePublisher struct {
	published []*amqp.ReportExportMessage
	err       error
}

func (f *fakePublisher) PublishReportExport(_ context.Context, msg *amqp.ReportExportMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func newTestService(t *testing.T) (*BudgetService, *storage.SQLiteRepository, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	pub := &fakePublisher{}
	return NewBudgetService(repo, pub, log.New(log.DefaultConfig())), repo, pub
}

func newServiceUser(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func addIncome(t *testing.T, svc *BudgetService, userID int64, amount string) {
	t.Helper()
	_, err := svc.CreateIncome(context.Background(), userID, core.Income{
		Person: "ACME Corp",
		Amount: dec(t, amount),
		Source: "Consulting",
		Date:   core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
}

func TestCreateExpenseInsufficientBalance(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := newServiceUser(t, repo)
	addIncome(t, svc, userID, "100.00")

	_, err := svc.CreateExpense(context.Background(), userID, "John", core.Expense{
		Amount: dec(t, "100.01"),
		Date:   core.NewDate(2024, 3, 15),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}

	// Spending exactly the balance is allowed.
	if _, err := svc.CreateExpense(context.Background(), userID, "John", core.Expense{
		Amount: dec(t, "100.00"),
		Date:   core.NewDate(2024, 3, 15),
	}); err != nil {
		t.Fatalf("spend full balance: %v", err)
	}

	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance = %s, want 0", balance)
	}
}

func TestCreateExpenseProvisionsPerson(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := newServiceUser(t, repo)
	addIncome(t, svc, userID, "500.00")

	if _, err := svc.CreateExpense(context.Background(), userID, "John Smith", core.Expense{
		Amount: dec(t, "50.00"),
		Date:   core.NewDate(2024, 3, 15),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	person, err := repo.GetPersonByName(context.Background(), userID, "John Smith")
	if err != nil {
		t.Fatalf("provisioned person not found: %v", err)
	}
	if person.Email != "john.smith@company.com" {
		t.Errorf("email = %q, want john.smith@company.com", person.Email)
	}
	if person.JobTitle != "Employee" {
		t.Errorf("job title = %q, want Employee", person.JobTitle)
	}

	// A second expense for the same name reuses the person.
	if _, err := svc.CreateExpense(context.Background(), userID, "John Smith", core.Expense{
		Amount: dec(t, "10.00"),
		Date:   core.NewDate(2024, 3, 16),
	}); err != nil {
		t.Fatalf("second expense: %v", err)
	}
	people, err := repo.ListPeople(context.Background(), userID)
	if err != nil {
		t.Fatalf("list people: %v", err)
	}
	if len(people) != 1 {
		t.Errorf("got %d people, want 1", len(people))
	}
}

func TestSynthesizeEmail(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"John Smith", "john.smith@company.com"},
		{"Alice", "alice@company.com"},
		{"Mary Jane Watson", "mary.jane.watson@company.com"},
	}
	for _, tt := range tests {
		if got := SynthesizeEmail(tt.name); got != tt.want {
			t.Errorf("SynthesizeEmail(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCreatePersonRejectsDuplicateEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := newServiceUser(t, repo)
	ctx := context.Background()

	p := core.Person{Name: "Jane Doe", Email: "jane@company.com", JobTitle: "Manager"}
	if _, err := svc.CreatePerson(ctx, userID, p); err != nil {
		t.Fatalf("create person: %v", err)
	}

	p.Name = "Jane D."
	if _, err := svc.CreatePerson(ctx, userID, p); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Errorf("duplicate email err = %v, want ErrDuplicateEmail", err)
	}
}

func TestRequestExportPublishes(t *testing.T) {
	svc, repo, pub := newTestService(t)
	userID := newServiceUser(t, repo)

	id, err := svc.RequestExport(context.Background(), userID, 2024, 3, "all")
	if err != nil {
		t.Fatalf("request export: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.ID != id || msg.UserID != userID || msg.Year != 2024 || msg.Month != 3 {
		t.Errorf("message = %+v", msg)
	}

	ex, err := repo.GetExport(context.Background(), userID, id)
	if err != nil {
		t.Fatalf("get export: %v", err)
	}
	if ex.Status != storage.ExportStatusPending {
		t.Errorf("status = %q, want pending", ex.Status)
	}
}

func TestRequestExportSurvivesPublishFailure(t *testing.T) {
	svc, repo, pub := newTestService(t)
	userID := newServiceUser(t, repo)
	pub.err = errors.New("broker down")

	id, err := svc.RequestExport(context.Background(), userID, 2024, 3, "expenses")
	if err != nil {
		t.Fatalf("request export: %v", err)
	}

	// The job row exists and stays pending for the sweep.
	pending, err := repo.ListPendingExports(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Errorf("pending = %+v", pending)
	}
}

func TestRequestExportRejectsBadMonth(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := newServiceUser(t, repo)

	for _, month := range []int{0, 13, -1} {
		if _, err := svc.RequestExport(context.Background(), userID, 2024, month, "expenses"); err == nil {
			t.Errorf("month %d accepted", month)
		}
	}
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	_, repo, _ := newTestService(t)
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	svc := NewAuthService(repo, tokens, log.New(log.DefaultConfig()))

	token, err := svc.Register(context.Background(), "bob", "supersecret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username != "bob" {
		t.Errorf("username = %q", claims.Username)
	}

	if _, err := svc.Register(context.Background(), "bob", "supersecret"); !errors.Is(err, storage.ErrDuplicateUsername) {
		t.Errorf("duplicate register: got %v", err)
	}
	if _, err := svc.Register(context.Background(), "jo", "supersecret"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("short username: got %v", err)
	}

	if _, err := svc.Login(context.Background(), "bob", "supersecret"); err != nil {
		t.Errorf("login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "bob", "wrongpass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody", "supersecret"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}
