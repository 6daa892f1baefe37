// Package ratios derives financial ratios from a record.
//
// Compute is pure and total: missing data yields nil ratios, never an error
// or a panic.
package ratios

import (
	"math"

	"github.com/roach88/finflow/internal/fin"
)

// SafeDiv returns a/b, or nil if a is nil, b is nil, or b is zero.
// A non-finite quotient (overflow) is also reported as nil.
func SafeDiv(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	q := *a / *b
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return nil
	}
	return &q
}

// Compute returns the full ratio set for r.
func Compute(r *fin.Record) fin.RatioSet {
	if r == nil {
		return fin.RatioSet{}
	}
	b, i := r.Balance, r.Income

	return fin.RatioSet{
		CurrentRatio:      SafeDiv(b.CurrentAssets, b.CurrentLiabilities),
		QuickRatio:        SafeDiv(quickAssets(b), b.CurrentLiabilities),
		WorkingCapital:    sub(b.CurrentAssets, b.CurrentLiabilities),
		DebtToEquity:      SafeDiv(b.TotalLiabilities, b.ShareholdersEquity),
		InterestCoverage:  SafeDiv(coverageBase(i), i.InterestExpense),
		GrossMargin:       SafeDiv(i.GrossProfit, i.Revenue),
		OperatingMargin:   SafeDiv(i.OperatingIncome, i.Revenue),
		NetMargin:         SafeDiv(i.NetIncome, i.Revenue),
		EBITDAMargin:      SafeDiv(i.EBITDA, i.Revenue),
		ROA:               SafeDiv(i.NetIncome, b.TotalAssets),
		ROE:               SafeDiv(i.NetIncome, b.ShareholdersEquity),
		AssetTurnover:     SafeDiv(i.Revenue, b.TotalAssets),
		InventoryTurnover: SafeDiv(i.COGS, b.Inventory),
	}
}

// quickAssets sums cash and receivables, counting a missing operand as zero.
func quickAssets(b fin.BalanceSheet) *float64 {
	sum := value(b.Cash) + value(b.AccountsReceivable)
	return &sum
}

// coverageBase prefers EBITDA and falls back to operating income.
func coverageBase(i fin.IncomeStatement) *float64 {
	if i.EBITDA != nil {
		return i.EBITDA
	}
	return i.OperatingIncome
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
