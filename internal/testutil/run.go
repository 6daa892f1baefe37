package testutil

import (
	"github.com/roach88/finflow/internal/fin"
)

// F returns a pointer to v.
func F(v float64) *float64 {
	return &v
}

// NewRun returns a minimal running run suitable for persisting.
func NewRun(runID string) *fin.Run {
	return &fin.Run{
		RunID:      runID,
		DocID:      "doc-" + runID,
		DocPath:    "/tmp/" + runID + ".pdf",
		Node:       fin.NodeParse,
		Status:     fin.StatusRunning,
		Record:     fin.NewRecord("2024-12-31", "USD", fin.ScaleUnit),
		Fields:     []fin.ExtractedField{},
		Issues:     []fin.Issue{},
		Audit:      []fin.AuditEntry{},
		Thresholds: fin.DefaultThresholds(),
		CreatedAt:  Epoch,
		UpdatedAt:  Epoch,
	}
}

// BalancedRecord returns a record that passes every validation rule.
func BalancedRecord() *fin.Record {
	r := fin.NewRecord("2024-12-31", "USD", fin.ScaleUnit)
	r.Balance.TotalAssets = F(1000)
	r.Balance.TotalLiabilities = F(600)
	r.Balance.ShareholdersEquity = F(400)
	r.Balance.CurrentAssets = F(500)
	r.Balance.CurrentLiabilities = F(250)
	r.Balance.Cash = F(100)
	r.Balance.AccountsReceivable = F(150)
	r.Balance.Inventory = F(200)
	r.Balance.ShortTermDebt = F(50)
	r.Balance.LongTermDebt = F(150)
	r.Income.Revenue = F(2000)
	r.Income.COGS = F(1200)
	r.Income.GrossProfit = F(800)
	r.Income.OperatingIncome = F(300)
	r.Income.NetIncome = F(200)
	r.Income.InterestExpense = F(30)
	r.Income.EBITDA = F(400)
	return r
}
