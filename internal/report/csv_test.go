package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cbms/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleExpenses() []core.Expense {
	return []core.Expense{
		{
			PersonName:    "Ana",
			Amount:        dec("50.00"),
			Category:      core.CategoryRent,
			Vendor:        "Acme Estates",
			PaymentMethod: core.PaymentBankTransfer,
			Date:          core.NewDate(2024, 1, 20),
			Notes:         "office",
		},
		{
			PersonName:    "Ben",
			Amount:        dec("100.00"),
			Category:      core.CategoryRent,
			PaymentMethod: core.PaymentCash,
			Date:          core.NewDate(2024, 1, 5),
		},
	}
}

func sampleIncomes() []core.Income {
	return []core.Income{
		{
			Person:        "Client Corp",
			Amount:        dec("500.00"),
			Source:        "Consulting",
			PaymentMethod: core.PaymentBankTransfer,
			Date:          core.NewDate(2024, 1, 10),
		},
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"expenses", "income", "all", ""} {
		if _, ok := ParseType(s); !ok {
			t.Fatalf("%q expected valid", s)
		}
	}
	if _, ok := ParseType("pdf"); ok {
		t.Fatalf("expected invalid type")
	}
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "January 2024", MonthLabel(2024, 1))
	assert.Equal(t, "December 2023", MonthLabel(2023, 12))
}

func TestWriteExpensesLayout(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExpenses(&buf, MonthLabel(2024, 1), sampleExpenses())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)

	assert.Equal(t, "Expense Report,January 2024", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, ExpenseHeader, lines[2])
	// Rows are date ascending regardless of input order.
	assert.Equal(t, "2024-01-05,Ben,Rent,,Cash,100.00,", lines[3])
	assert.Equal(t, "2024-01-20,Ana,Rent,Acme Estates,Bank Transfer,50.00,office", lines[4])
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "Total Expenses,,,,,150.00", lines[6])
}

func TestWriteIncomesLayout(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIncomes(&buf, MonthLabel(2024, 1), sampleIncomes())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, "Income Report,January 2024", lines[0])
	assert.Equal(t, IncomeHeader, lines[2])
	assert.Equal(t, "2024-01-10,Client Corp,Consulting,500.00", lines[3])
	assert.Equal(t, "Total Income,,,500.00", lines[5])
}

func TestWriteCombinedSummary(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCombined(&buf, MonthLabel(2024, 1), sampleExpenses(), sampleIncomes())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Financial Report,January 2024")
	assert.Contains(t, out, "EXPENSES\n")
	assert.Contains(t, out, "INCOME\n")
	assert.Contains(t, out, "SUMMARY\n")
	assert.Contains(t, out, "Total Income,500.00")
	assert.Contains(t, out, "Total Expenses,150.00")
	assert.Contains(t, out, "Net Balance,350.00")
}

func TestWriteExpensesEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExpenses(&buf, MonthLabel(2024, 3), nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Total Expenses,,,,,0.00", lines[4])
}
