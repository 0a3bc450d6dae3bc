package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Export statuses. A job moves pending -> done or pending -> failed.
const (
	ExportStatusPending = "pending"
	ExportStatusDone    = "done"
	ExportStatusFailed  = "failed"
)

type ReportExport struct {
	ID          int64
	UserID      int64
	Year        int
	Month       int
	ReportType  string
	Status      string
	FilePath    string
	RequestedAt time.Time
	CompletedAt *time.Time
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, userID int64, year, month int, reportType string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO report_exports (user_id, year, month, report_type)
		 VALUES (?, ?, ?, ?)`,
		userID, year, month, reportType)
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create export id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetExport(ctx context.Context, userID, id int64) (*ReportExport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, year, month, report_type, status, file_path, requested_at, completed_at
		 FROM report_exports WHERE id = ? AND user_id = ?`,
		id, userID)
	ex, err := scanExport(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return ex, nil
}

// GetExportAnyUser is the worker-side lookup; it does not scope by
// user because jobs arrive over the queue with their owner inside.
func (r *SQLiteRepository) GetExportAnyUser(ctx context.Context, id int64) (*ReportExport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, year, month, report_type, status, file_path, requested_at, completed_at
		 FROM report_exports WHERE id = ?`,
		id)
	ex, err := scanExport(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return ex, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, userID int64) ([]ReportExport, error) {
	return r.queryExports(ctx,
		`SELECT id, user_id, year, month, report_type, status, file_path, requested_at, completed_at
		 FROM report_exports WHERE user_id = ?
		 ORDER BY requested_at DESC, id DESC`,
		userID)
}

// ListPendingExports returns up to limit jobs still waiting, oldest
// first, for the worker's periodic sweep.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]ReportExport, error) {
	return r.queryExports(ctx,
		`SELECT id, user_id, year, month, report_type, status, file_path, requested_at, completed_at
		 FROM report_exports WHERE status = ?
		 ORDER BY requested_at, id
		 LIMIT ?`,
		ExportStatusPending, limit)
}

func (r *SQLiteRepository) MarkExportDone(ctx context.Context, id int64, filePath string) error {
	return r.finishExport(ctx, id, ExportStatusDone, filePath)
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64) error {
	return r.finishExport(ctx, id, ExportStatusFailed, "")
}

func (r *SQLiteRepository) finishExport(ctx context.Context, id int64, status, filePath string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE report_exports
		 SET status = ?, file_path = ?, completed_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, filePath, id)
	if err != nil {
		return fmt.Errorf("finish export: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish export rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryExports(ctx context.Context, query string, args ...any) ([]ReportExport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var exports []ReportExport
	for rows.Next() {
		ex, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exports = append(exports, *ex)
	}
	return exports, rows.Err()
}

func scanExport(row rowScanner) (*ReportExport, error) {
	var (
		ex        ReportExport
		completed sql.NullTime
	)
	err := row.Scan(&ex.ID, &ex.UserID, &ex.Year, &ex.Month, &ex.ReportType,
		&ex.Status, &ex.FilePath, &ex.RequestedAt, &completed)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		ex.CompletedAt = &t
	}
	return &ex, nil
}
