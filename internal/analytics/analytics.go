// Package analytics computes read-time spending snapshots over the
// ledger: dashboard totals with a category breakdown and a trailing
// monthly series, and month-to-month comparisons. Nothing here is
// persisted; every figure is recomputed per query.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finans/internal/core"
	"finans/internal/period"
)

// RecentLimit is how many of the newest matching transactions the
// dashboard snapshot carries.
const RecentLimit = 10

// seriesMonths is the length of the trailing monthly series.
const seriesMonths = 6

// monthAbbrev maps calendar month number to its fixed Turkish
// three-letter label.
var monthAbbrev = [13]string{
	"", "Oca", "Şub", "Mar", "Nis", "May", "Haz",
	"Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara",
}

// Reader is the slice of the ledger store analytics reads from.
type Reader interface {
	SumAmount(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	CountTransactions(ctx context.Context, start, end time.Time) (int, error)
	CategorySums(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
	RecentTransactions(ctx context.Context, start, end time.Time, limit int) ([]core.Transaction, error)
	DistinctMonths(ctx context.Context) ([]time.Time, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// Engine answers dashboard and comparison queries.
type Engine struct {
	reader Reader
}

func NewEngine(reader Reader) *Engine {
	return &Engine{reader: reader}
}

// Dashboard computes the snapshot for a resolved date range: total
// spend, transaction count, category breakdown, the trailing 6-month
// series anchored on the range's end, and the most recent
// transactions.
func (e *Engine) Dashboard(ctx context.Context, r period.Range) (*core.DashboardStats, error) {
	total, err := e.reader.SumAmount(ctx, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("dashboard total: %w", err)
	}
	count, err := e.reader.CountTransactions(ctx, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("dashboard count: %w", err)
	}
	breakdown, err := e.breakdown(ctx, r, total)
	if err != nil {
		return nil, err
	}
	series, err := e.monthlySeries(ctx, r.End)
	if err != nil {
		return nil, err
	}
	recent, err := e.reader.RecentTransactions(ctx, r.Start, r.End, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent: %w", err)
	}

	return &core.DashboardStats{
		TotalSpending:      total,
		TransactionCount:   count,
		CategoryBreakdown:  breakdown,
		MonthlySeries:      series,
		RecentTransactions: recent,
	}, nil
}

// breakdown groups spend by category label, largest first. Unlabeled
// transactions fold into the fixed fallback category.
func (e *Engine) breakdown(ctx context.Context, r period.Range, total decimal.Decimal) ([]core.CategoryBreakdown, error) {
	sums, err := e.reader.CategorySums(ctx, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("dashboard breakdown: %w", err)
	}
	categories, err := e.reader.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard categories: %w", err)
	}

	merged := make(map[string]decimal.Decimal, len(sums))
	for label, sum := range sums {
		if label == "" {
			label = core.OtherCategory
		}
		merged[label] = merged[label].Add(sum)
	}

	out := make([]core.CategoryBreakdown, 0, len(merged))
	for label, sum := range merged {
		out = append(out, core.CategoryBreakdown{
			Category:   label,
			Amount:     sum,
			Percentage: core.PercentageOf(sum, total),
			Color:      core.CategoryColor(label, categories),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// monthlySeries sums each of the six calendar months ending with the
// month containing end. The series ignores the requested range's
// start on purpose: it always shows the six months leading up to the
// range's end.
func (e *Engine) monthlySeries(ctx context.Context, end time.Time) ([]core.MonthlyPoint, error) {
	series := make([]core.MonthlyPoint, 0, seriesMonths)
	for i := seriesMonths - 1; i >= 0; i-- {
		month := period.MonthOf(period.AddMonths(end, -i))
		sum, err := e.reader.SumAmount(ctx, month.Start, month.End)
		if err != nil {
			return nil, fmt.Errorf("monthly series: %w", err)
		}
		series = append(series, core.MonthlyPoint{
			Month:  monthAbbrev[month.Start.Month()],
			Amount: sum,
		})
	}
	return series, nil
}

// Compare contrasts the calendar months containing month1 and month2.
// Differences are month2 minus month1; percentage changes are relative
// to month1 with the same zero guard as the breakdown. The category
// list is the union of both months, sorted by absolute difference
// descending so the largest swings come first.
func (e *Engine) Compare(ctx context.Context, month1, month2 time.Time) (*core.MonthComparison, error) {
	r1 := period.MonthOf(month1)
	r2 := period.MonthOf(month2)

	sums1, err := e.reader.CategorySums(ctx, r1.Start, r1.End)
	if err != nil {
		return nil, fmt.Errorf("compare %s: %w", monthLabel(r1.Start), err)
	}
	sums2, err := e.reader.CategorySums(ctx, r2.Start, r2.End)
	if err != nil {
		return nil, fmt.Errorf("compare %s: %w", monthLabel(r2.Start), err)
	}

	total1 := sumValues(sums1)
	total2 := sumValues(sums2)

	labels := make(map[string]struct{}, len(sums1)+len(sums2))
	for label := range sums1 {
		labels[normalizeLabel(label)] = struct{}{}
	}
	for label := range sums2 {
		labels[normalizeLabel(label)] = struct{}{}
	}

	byLabel1 := normalizeSums(sums1)
	byLabel2 := normalizeSums(sums2)

	comparisons := make([]core.CategoryComparison, 0, len(labels))
	for label := range labels {
		a1 := byLabel1[label]
		a2 := byLabel2[label]
		diff := a2.Sub(a1)
		comparisons = append(comparisons, core.CategoryComparison{
			Category:         label,
			Month1Amount:     a1,
			Month2Amount:     a2,
			Difference:       diff,
			PercentageChange: core.PercentageOf(diff, a1),
		})
	}
	sort.Slice(comparisons, func(i, j int) bool {
		di := comparisons[i].Difference.Abs()
		dj := comparisons[j].Difference.Abs()
		if !di.Equal(dj) {
			return di.GreaterThan(dj)
		}
		return comparisons[i].Category < comparisons[j].Category
	})

	totalDiff := total2.Sub(total1)
	return &core.MonthComparison{
		Month1:              monthLabel(r1.Start),
		Month2:              monthLabel(r2.Start),
		Month1Total:         total1,
		Month2Total:         total2,
		TotalDifference:     totalDiff,
		TotalPercentage:     core.PercentageOf(totalDiff, total1),
		CategoryComparisons: comparisons,
	}, nil
}

// MonthsAvailable lists the calendar months that hold at least one
// transaction, newest first. An empty ledger falls back to a
// synthesized trailing-12-month list anchored on now.
func (e *Engine) MonthsAvailable(ctx context.Context, now time.Time) ([]time.Time, error) {
	months, err := e.reader.DistinctMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("months available: %w", err)
	}
	if len(months) > 0 {
		return months, nil
	}
	months = make([]time.Time, 0, 12)
	for i := 0; i < 12; i++ {
		months = append(months, period.MonthOf(period.AddMonths(now, -i)).Start)
	}
	return months, nil
}

func normalizeLabel(label string) string {
	if label == "" {
		return core.OtherCategory
	}
	return label
}

func normalizeSums(sums map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(sums))
	for label, sum := range sums {
		key := normalizeLabel(label)
		out[key] = out[key].Add(sum)
	}
	return out
}

func sumValues(sums map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range sums {
		total = total.Add(v)
	}
	return total
}

func monthLabel(monthStart time.Time) string {
	return fmt.Sprintf("%s %d", monthAbbrev[monthStart.Month()], monthStart.Year())
}
