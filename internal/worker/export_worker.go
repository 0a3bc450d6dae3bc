// Package worker turns queued report export jobs into CSV files on
// disk.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"cbms/internal/amqp"
	"cbms/internal/log"
	"cbms/internal/report"
	"cbms/internal/storage"
)

// ExportConsumer delivers export jobs. Satisfied by *amqp.Client.
type ExportConsumer interface {
	ConsumeReportExports(ctx context.Context, handler func(*amqp.ReportExportMessage) error) error
}

type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exportDir string
	batchSize int
	logger    *log.Logger
}

func NewExportWorker(repo *storage.SQLiteRepository, exportDir string, batchSize int, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		storage:   repo,
		exportDir: exportDir,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes export messages and periodically sweeps pending jobs
// until ctx is cancelled. The sweep recovers jobs whose publish was
// lost.
func (w *ExportWorker) Run(ctx context.Context, consumer ExportConsumer, sweepInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeReportExports(ctx, func(msg *amqp.ReportExportMessage) error {
			return w.HandleExportMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingExports(ctx); err != nil {
					w.logger.ErrorContext(ctx, "sweep failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleExportMessage runs a single export job. Jobs already completed
// by an earlier delivery or the sweep are acknowledged without rework.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	job, err := w.storage.GetExportAnyUser(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load export job %d: %w", msg.ID, err)
	}
	if job.Status != storage.ExportStatusPending {
		w.logger.InfoContext(ctx, "export already handled",
			log.FieldExportID, job.ID, "status", job.Status)
		return nil
	}
	return w.runExport(ctx, job)
}

// ProcessPendingExports works through pending jobs oldest first, up to
// the batch size.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.storage.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing pending exports", "count", len(pending))

	for i := range pending {
		if err := w.runExport(ctx, &pending[i]); err != nil {
			w.logger.ErrorContext(ctx, "export failed",
				log.FieldError, err, log.FieldExportID, pending[i].ID)
		}
	}
	return nil
}

func (w *ExportWorker) runExport(ctx context.Context, job *storage.ReportExport) error {
	path, err := w.writeReport(ctx, job)
	if err != nil {
		if markErr := w.storage.MarkExportFailed(ctx, job.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "mark export failed",
				log.FieldError, markErr, log.FieldExportID, job.ID)
		}
		return fmt.Errorf("export job %d: %w", job.ID, err)
	}

	if err := w.storage.MarkExportDone(ctx, job.ID, path); err != nil {
		return fmt.Errorf("mark export done: %w", err)
	}

	w.logger.InfoContext(ctx, "export completed",
		log.FieldExportID, job.ID,
		log.FieldUserID, job.UserID,
		log.FieldReportType, job.ReportType,
		log.FieldFilePath, path)

	return nil
}

func (w *ExportWorker) writeReport(ctx context.Context, job *storage.ReportExport) (string, error) {
	reportType, ok := report.ParseType(job.ReportType)
	if !ok {
		return "", fmt.Errorf("unknown report type %q", job.ReportType)
	}

	if err := os.MkdirAll(w.exportDir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(w.exportDir, exportFileName(job))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := w.render(ctx, f, reportType, job); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (w *ExportWorker) render(ctx context.Context, out io.Writer, reportType report.Type, job *storage.ReportExport) error {
	label := report.MonthLabel(job.Year, job.Month)

	switch reportType {
	case report.TypeExpenses:
		expenses, err := w.storage.ListExpensesByMonth(ctx, job.UserID, job.Year, job.Month)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return report.WriteExpenses(out, label, expenses)
	case report.TypeIncome:
		incomes, err := w.storage.ListIncomesByMonth(ctx, job.UserID, job.Year, job.Month)
		if err != nil {
			return fmt.Errorf("load incomes: %w", err)
		}
		return report.WriteIncomes(out, label, incomes)
	case report.TypeAll:
		expenses, err := w.storage.ListExpensesByMonth(ctx, job.UserID, job.Year, job.Month)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		incomes, err := w.storage.ListIncomesByMonth(ctx, job.UserID, job.Year, job.Month)
		if err != nil {
			return fmt.Errorf("load incomes: %w", err)
		}
		return report.WriteCombined(out, label, expenses, incomes)
	default:
		return fmt.Errorf("unknown report type %q", reportType)
	}
}

func exportFileName(job *storage.ReportExport) string {
	return fmt.Sprintf("%s_%04d-%02d_user%d_job%d.csv",
		job.ReportType, job.Year, job.Month, job.UserID, job.ID)
}
