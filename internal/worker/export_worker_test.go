package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"cbms/internal/amqp"
	"cbms/internal/core"
	"cbms/internal/log"
	"cbms/internal/storage"
)

func newTestWorker(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	exportDir := filepath.Join(dir, "exports")
	w := NewExportWorker(repo, exportDir, 10, log.New(log.DefaultConfig()))
	return w, repo, exportDir
}

func seedMonth(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()

	userID, err := repo.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	personID, err := repo.CreatePerson(ctx, core.Person{
		UserID: userID, Name: "John", Email: "john@company.com",
	})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	if _, err := repo.CreateIncome(ctx, core.Income{
		UserID: userID, Person: "ACME", Amount: decimal.New(250000, -2),
		Source: "Consulting", Date: core.NewDate(2024, 3, 5),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{
		UserID: userID, PersonID: personID, Amount: decimal.New(12050, -2),
		Category: core.CategoryRent, PaymentMethod: core.PaymentBankTransfer,
		Date: core.NewDate(2024, 3, 10),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return userID
}

func TestHandleExportMessageWritesFile(t *testing.T) {
	ctx := context.Background()
	w, repo, exportDir := newTestWorker(t)
	userID := seedMonth(t, repo)

	jobID, err := repo.CreateExport(ctx, userID, 2024, 3, "all")
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	msg := amqp.NewReportExportMessage(jobID, userID, 2024, 3, "all")
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	job, err := repo.GetExport(ctx, userID, jobID)
	if err != nil {
		t.Fatalf("get export: %v", err)
	}
	if job.Status != storage.ExportStatusDone {
		t.Fatalf("status = %q, want done", job.Status)
	}
	if filepath.Dir(job.FilePath) != exportDir {
		t.Errorf("file path %q not in export dir", job.FilePath)
	}

	body, err := os.ReadFile(job.FilePath)
	if err != nil {
		t.Fatalf("read export file: %v", err)
	}
	content := string(body)
	for _, want := range []string{
		"March 2024", "SUMMARY", "Net Balance,1379.50", "Total Income,2500.00", "Total Expenses,120.50",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("export file missing %q\n%s", want, content)
		}
	}
}

func TestHandleExportMessageSkipsCompleted(t *testing.T) {
	ctx := context.Background()
	w, repo, _ := newTestWorker(t)
	userID := seedMonth(t, repo)

	jobID, err := repo.CreateExport(ctx, userID, 2024, 3, "expenses")
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	if err := repo.MarkExportDone(ctx, jobID, "/already/done.csv"); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	// A redelivered message for a completed job is a no-op.
	msg := amqp.NewReportExportMessage(jobID, userID, 2024, 3, "expenses")
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	job, _ := repo.GetExport(ctx, userID, jobID)
	if job.FilePath != "/already/done.csv" {
		t.Errorf("file path overwritten: %q", job.FilePath)
	}
}

func TestHandleExportMessageUnknownJob(t *testing.T) {
	w, _, _ := newTestWorker(t)
	msg := amqp.NewReportExportMessage(999, 1, 2024, 3, "expenses")
	if err := w.HandleExportMessage(context.Background(), msg); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestProcessPendingExports(t *testing.T) {
	ctx := context.Background()
	w, repo, _ := newTestWorker(t)
	userID := seedMonth(t, repo)

	for _, rt := range []string{"expenses", "income"} {
		if _, err := repo.CreateExport(ctx, userID, 2024, 3, rt); err != nil {
			t.Fatalf("create export: %v", err)
		}
	}
	// A job with a bogus type fails but does not stop the batch.
	badID, err := repo.CreateExport(ctx, userID, 2024, 3, "bogus")
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	pending, err := repo.ListPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d jobs still pending", len(pending))
	}

	bad, err := repo.GetExport(ctx, userID, badID)
	if err != nil {
		t.Fatalf("get bad job: %v", err)
	}
	if bad.Status != storage.ExportStatusFailed {
		t.Errorf("bad job status = %q, want failed", bad.Status)
	}
}
