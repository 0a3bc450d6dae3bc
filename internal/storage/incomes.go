package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cbms/internal/core"
)

const incomeColumns = `id, user_id, person, amount_cents, source, category,
	payment_method, date, notes`

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, person, amount_cents, source, category, payment_method, date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, in.Person, cents(in.Amount), in.Source, string(in.Category),
		string(in.PaymentMethod), in.Date.String(), in.Notes)
	if err != nil {
		return 0, fmt.Errorf("create income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create income id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, userID, id int64) (*core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND user_id = ?`,
		id, userID)
	in, err := scanIncome(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return in, nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		 WHERE user_id = ?
		 ORDER BY date DESC, id DESC`,
		userID)
}

func (r *SQLiteRepository) ListIncomesByMonth(ctx context.Context, userID int64, year, month int) ([]core.Income, error) {
	from, to := MonthRange(year, month)
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		 WHERE user_id = ? AND date >= ? AND date < ?
		 ORDER BY date, id`,
		userID, from, to)
}

// ListIncomesByRange returns incomes with from <= date <= to, both
// bounds inclusive.
func (r *SQLiteRepository) ListIncomesByRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, id`,
		userID, from.String(), to.String())
}

func (r *SQLiteRepository) ListRecentIncomes(ctx context.Context, userID int64, limit int) ([]core.Income, error) {
	return r.queryIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		 WHERE user_id = ?
		 ORDER BY date DESC, id DESC
		 LIMIT ?`,
		userID, limit)
}

// TotalIncomes sums every income of the user in cents, in SQL, and
// returns the exact decimal total.
func (r *SQLiteRepository) TotalIncomes(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE user_id = ?`,
		userID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total incomes: %w", err)
	}
	return amount(total), nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete income rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryIncomes(ctx context.Context, query string, args ...any) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, *in)
	}
	return incomes, rows.Err()
}

func scanIncome(row rowScanner) (*core.Income, error) {
	var (
		in       core.Income
		amtCents int64
		category string
		method   string
		date     string
	)
	err := row.Scan(&in.ID, &in.UserID, &in.Person, &amtCents, &in.Source,
		&category, &method, &date, &in.Notes)
	if err != nil {
		return nil, err
	}
	in.Amount = amount(amtCents)
	in.Category = core.Category(category)
	in.PaymentMethod = core.PaymentMethod(method)
	if in.Date, err = core.ParseDate(date); err != nil {
		return nil, fmt.Errorf("stored date %q: %w", date, err)
	}
	return &in, nil
}
