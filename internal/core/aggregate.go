package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type (
	// MonthBucket is the aggregate for one calendar month. It is
	// derived on demand and never persisted.
	MonthBucket struct {
		Year    int
		Month   int // 1-12
		Income  decimal.Decimal
		Expense decimal.Decimal
		Balance decimal.Decimal
	}

	// GroupTotal is one group of a breakdown: a key and its summed
	// amount.
	GroupTotal struct {
		Key   string
		Total decimal.Decimal
	}

	// GroupShare extends GroupTotal with the group's percentage of a
	// grand total, rounded to one decimal place.
	GroupShare struct {
		Key     string
		Total   decimal.Decimal
		Percent decimal.Decimal
	}
)

// Sum returns the exact sum of record amounts. The empty collection
// sums to zero.
func Sum[R Record](records []R) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}

// FilterByMonth keeps records whose date falls within the given
// calendar month, preserving input order. A record with a zero date
// means the collaborator handed us unvalidated data; that is a bug
// upstream, reported as ErrMalformedRecord rather than coerced away.
func FilterByMonth[R Record](records []R, year, month int) ([]R, error) {
	var out []R
	for _, r := range records {
		d := r.When()
		if d.IsZero() {
			return nil, ErrMalformedRecord
		}
		if d.Year() == year && d.Month() == month {
			out = append(out, r)
		}
	}
	return out, nil
}

// FilterByRange keeps records whose date falls within [from, to]
// inclusive, preserving input order.
func FilterByRange[R Record](records []R, from, to Date) ([]R, error) {
	var out []R
	for _, r := range records {
		d := r.When()
		if d.IsZero() {
			return nil, ErrMalformedRecord
		}
		if !d.Before(from.Time) && !d.After(to.Time) {
			out = append(out, r)
		}
	}
	return out, nil
}

// MonthlySeries buckets income and expense records into exactly window
// consecutive calendar months ending at the month containing reference,
// oldest first. Months are computed with calendar arithmetic, so year
// boundaries roll correctly and no month is skipped or duplicated
// regardless of month lengths.
func MonthlySeries(incomes []Income, expenses []Expense, reference Date, window int) ([]MonthBucket, error) {
	if window <= 0 {
		return nil, nil
	}
	if reference.IsZero() {
		return nil, ErrMalformedRecord
	}

	// First day of the oldest month in the window. time.Date
	// normalizes out-of-range months, which handles the year roll.
	start := time.Date(reference.Year(), time.Month(reference.Month()-window+1), 1, 0, 0, 0, 0, time.UTC)

	buckets := make([]MonthBucket, window)
	index := make(map[int]int, window)
	for i := range buckets {
		m := start.AddDate(0, i, 0)
		buckets[i] = MonthBucket{
			Year:    m.Year(),
			Month:   int(m.Month()),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
		index[m.Year()*12+int(m.Month())] = i
	}

	for _, in := range incomes {
		if in.Date.IsZero() {
			return nil, ErrMalformedRecord
		}
		if i, ok := index[in.Date.Year()*12+in.Date.Month()]; ok {
			buckets[i].Income = buckets[i].Income.Add(in.Amount)
		}
	}
	for _, ex := range expenses {
		if ex.Date.IsZero() {
			return nil, ErrMalformedRecord
		}
		if i, ok := index[ex.Date.Year()*12+ex.Date.Month()]; ok {
			buckets[i].Expense = buckets[i].Expense.Add(ex.Amount)
		}
	}
	for i := range buckets {
		buckets[i].Balance = buckets[i].Income.Sub(buckets[i].Expense)
	}

	return buckets, nil
}

// BreakdownBy groups records by the extractor key and sums each group.
// Groups are ordered by descending total, then ascending key, so the
// output is deterministic for a given input multiset.
func BreakdownBy[R Record](records []R, key func(R) string) []GroupTotal {
	totals := make(map[string]decimal.Decimal)
	for _, r := range records {
		k := key(r)
		totals[k] = totals[k].Add(r.Value())
	}

	out := make([]GroupTotal, 0, len(totals))
	for k, t := range totals {
		out = append(out, GroupTotal{Key: k, Total: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// PercentageBreakdown is BreakdownBy plus each group's share of
// grandTotal as a percentage rounded to one decimal place. A zero
// grand total yields zero percentages, not an error.
func PercentageBreakdown[R Record](records []R, key func(R) string, grandTotal decimal.Decimal) []GroupShare {
	groups := BreakdownBy(records, key)
	out := make([]GroupShare, 0, len(groups))
	for _, g := range groups {
		pct := decimal.Zero
		if grandTotal.IsPositive() {
			pct = g.Total.Div(grandTotal).Mul(hundred).Round(1)
		}
		out = append(out, GroupShare{Key: g.Key, Total: g.Total, Percent: pct})
	}
	return out
}

// NetBalance is total income minus total expense. A negative result is
// a deficit, not an error.
func NetBalance(totalIncome, totalExpense decimal.Decimal) decimal.Decimal {
	return totalIncome.Sub(totalExpense)
}

// ProfitMargin is net over total income as a percentage rounded to one
// decimal place, zero when there is no income.
func ProfitMargin(net, totalIncome decimal.Decimal) decimal.Decimal {
	if !totalIncome.IsPositive() {
		return decimal.Zero
	}
	return net.Div(totalIncome).Mul(hundred).Round(1)
}

// ExpenseShare is total expense over total income as a percentage
// rounded to one decimal place, zero when there is no income.
func ExpenseShare(totalExpense, totalIncome decimal.Decimal) decimal.Decimal {
	if !totalIncome.IsPositive() {
		return decimal.Zero
	}
	return totalExpense.Div(totalIncome).Mul(hundred).Round(1)
}

// ByCategory keys an expense breakdown by category code.
func ByCategory(e Expense) string { return string(e.Category) }

// ByPaymentMethod keys an expense breakdown by payment method code.
func ByPaymentMethod(e Expense) string { return string(e.PaymentMethod) }

// BySource keys an income breakdown by source name.
func BySource(i Income) string { return i.Source }
