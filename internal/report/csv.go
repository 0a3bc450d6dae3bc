// Package report renders month reports as CSV, matching the layout the
// download endpoints and the export worker both serve: a title row, a
// blank separator, a column header row, one row per record in ascending
// date order, a blank separator, and a totals row.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"cbms/internal/core"
)

// ExpenseHeader is the column header row for expense reports.
const ExpenseHeader = "Date,Person,Category,Vendor,Payment Method,Amount,Notes"

// IncomeHeader is the column header row for income reports.
const IncomeHeader = "Date,Person,Source,Amount"

// Type selects which report to render.
type Type string

const (
	TypeExpenses Type = "expenses"
	TypeIncome   Type = "income"
	TypeAll      Type = "all"
)

// ParseType validates a report type string, defaulting to expenses.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeExpenses, TypeIncome, TypeAll:
		return Type(s), true
	case "":
		return TypeExpenses, true
	}
	return "", false
}

// MonthLabel renders a (year, month) pair the way report titles show it,
// e.g. "January 2024".
func MonthLabel(year, month int) string {
	return time.Month(month).String() + " " + strconv.Itoa(year)
}

// WriteExpenses writes the expense report for one month.
func WriteExpenses(w io.Writer, label string, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := writeExpenseSection(cw, "Expense Report", label, expenses); err != nil {
		return err
	}
	return cw.Error()
}

// WriteIncomes writes the income report for one month.
func WriteIncomes(w io.Writer, label string, incomes []core.Income) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := writeIncomeSection(cw, "Income Report", label, incomes); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCombined writes expenses, income and a summary section in one
// report.
func WriteCombined(w io.Writer, label string, expenses []core.Expense, incomes []core.Income) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"Financial Report", label}); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}

	if err := writeExpenseSection(cw, "EXPENSES", "", expenses); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}
	if err := writeIncomeSection(cw, "INCOME", "", incomes); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}

	expenseTotal := core.Sum(expenses)
	incomeTotal := core.Sum(incomes)
	rows := [][]string{
		{"SUMMARY"},
		{"Total Income", core.FormatAmount(incomeTotal)},
		{"Total Expenses", core.FormatAmount(expenseTotal)},
		{"Net Balance", core.FormatAmount(core.NetBalance(incomeTotal, expenseTotal))},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

func writeExpenseSection(cw *csv.Writer, title, label string, expenses []core.Expense) error {
	titleRow := []string{title}
	if label != "" {
		titleRow = append(titleRow, label)
	}
	if err := cw.Write(titleRow); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}
	if err := cw.Write(strings.Split(ExpenseHeader, ",")); err != nil {
		return err
	}

	for _, e := range sortedExpenses(expenses) {
		row := []string{
			e.Date.String(),
			e.PersonName,
			e.Category.Display(),
			e.Vendor,
			e.PaymentMethod.Display(),
			core.FormatAmount(e.Amount),
			e.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if err := cw.Write(nil); err != nil {
		return err
	}
	total := core.FormatAmount(core.Sum(expenses))
	return cw.Write([]string{"Total Expenses", "", "", "", "", total})
}

func writeIncomeSection(cw *csv.Writer, title, label string, incomes []core.Income) error {
	titleRow := []string{title}
	if label != "" {
		titleRow = append(titleRow, label)
	}
	if err := cw.Write(titleRow); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}
	if err := cw.Write(strings.Split(IncomeHeader, ",")); err != nil {
		return err
	}

	for _, in := range sortedIncomes(incomes) {
		row := []string{
			in.Date.String(),
			in.Person,
			in.Source,
			core.FormatAmount(in.Amount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if err := cw.Write(nil); err != nil {
		return err
	}
	total := core.FormatAmount(core.Sum(incomes))
	return cw.Write([]string{"Total Income", "", "", total})
}

// sortedExpenses returns a date-ascending copy; same-date order is not
// specified and callers must not rely on it.
func sortedExpenses(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, len(expenses))
	copy(out, expenses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

func sortedIncomes(incomes []core.Income) []core.Income {
	out := make([]core.Income, len(incomes))
	copy(out, incomes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}
