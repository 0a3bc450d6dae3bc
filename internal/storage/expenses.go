package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cbms/internal/core"
)

const expenseColumns = `e.id, e.user_id, e.person_id, p.name, e.amount_cents,
	e.category, e.vendor, e.payment_method, e.date, e.notes`

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, person_id, amount_cents, category, vendor, payment_method, date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.PersonID, cents(e.Amount), string(e.Category), e.Vendor,
		string(e.PaymentMethod), e.Date.String(), e.Notes)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expense id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.id = ? AND e.user_id = ?`,
		id, userID)
	e, err := scanExpense(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.user_id = ?
		 ORDER BY e.date DESC, e.id DESC`,
		userID)
}

func (r *SQLiteRepository) ListExpensesByMonth(ctx context.Context, userID int64, year, month int) ([]core.Expense, error) {
	from, to := MonthRange(year, month)
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.user_id = ? AND e.date >= ? AND e.date < ?
		 ORDER BY e.date, e.id`,
		userID, from, to)
}

// ListExpensesByRange returns expenses with from <= date <= to, both
// bounds inclusive.
func (r *SQLiteRepository) ListExpensesByRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.user_id = ? AND e.date >= ? AND e.date <= ?
		 ORDER BY e.date, e.id`,
		userID, from.String(), to.String())
}

func (r *SQLiteRepository) ListExpensesByPerson(ctx context.Context, userID, personID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.user_id = ? AND e.person_id = ?
		 ORDER BY e.date DESC, e.id DESC`,
		userID, personID)
}

func (r *SQLiteRepository) ListRecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN people p ON p.id = e.person_id
		 WHERE e.user_id = ?
		 ORDER BY e.date DESC, e.id DESC
		 LIMIT ?`,
		userID, limit)
}

// TotalExpenses sums every expense of the user in cents, in SQL, and
// returns the exact decimal total.
func (r *SQLiteRepository) TotalExpenses(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`,
		userID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total expenses: %w", err)
	}
	return amount(total), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		e        core.Expense
		amtCents int64
		category string
		method   string
		date     string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.PersonID, &e.PersonName, &amtCents,
		&category, &e.Vendor, &method, &date, &e.Notes)
	if err != nil {
		return nil, err
	}
	e.Amount = amount(amtCents)
	e.Category = core.Category(category)
	e.PaymentMethod = core.PaymentMethod(method)
	if e.Date, err = core.ParseDate(date); err != nil {
		return nil, fmt.Errorf("stored date %q: %w", date, err)
	}
	return &e, nil
}
