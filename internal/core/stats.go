package core

import "github.com/shopspring/decimal"

type (
	// CategoryBreakdown is one slice of a spending breakdown. Percentage
	// is derived at read time and never persisted.
	CategoryBreakdown struct {
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage decimal.Decimal `json:"percentage"`
		Color      string          `json:"color"`
	}

	// MonthlyPoint is one bar of the trailing monthly series. Month is a
	// localized 3-letter abbreviation keyed by calendar month number.
	MonthlyPoint struct {
		Month  string          `json:"month"`
		Amount decimal.Decimal `json:"amount"`
	}

	// DashboardStats is the aggregation snapshot for one date range.
	DashboardStats struct {
		TotalSpending      decimal.Decimal     `json:"totalSpending"`
		TransactionCount   int                 `json:"transactionCount"`
		CategoryBreakdown  []CategoryBreakdown `json:"categoryBreakdown"`
		MonthlySeries      []MonthlyPoint      `json:"monthlySeries"`
		RecentTransactions []Transaction       `json:"recentTransactions"`
	}

	// CategoryComparison holds one category's amounts in two compared
	// months. Categories missing from a month contribute zero.
	CategoryComparison struct {
		Category         string          `json:"category"`
		Month1Amount     decimal.Decimal `json:"month1Amount"`
		Month2Amount     decimal.Decimal `json:"month2Amount"`
		Difference       decimal.Decimal `json:"difference"`
		PercentageChange decimal.Decimal `json:"percentageChange"`
	}

	// MonthComparison compares two calendar months. Month labels use the
	// localized "Oca 2024" form. Differences are month2 minus month1;
	// percentage changes are relative to month1.
	MonthComparison struct {
		Month1              string               `json:"month1"`
		Month2              string               `json:"month2"`
		Month1Total         decimal.Decimal      `json:"month1Total"`
		Month2Total         decimal.Decimal      `json:"month2Total"`
		TotalDifference     decimal.Decimal      `json:"totalDifference"`
		TotalPercentage     decimal.Decimal      `json:"totalPercentageChange"`
		CategoryComparisons []CategoryComparison `json:"categoryComparisons"`
	}
)

// PercentageOf returns part/total*100, or zero when total is not
// positive. The guard keeps zero-spend ranges from faulting on
// division by zero.
func PercentageOf(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100))
}
