package testutil

import "github.com/roach88/finflow/internal/extract"

// Field returns a raw extraction field.
func Field(path string, v, conf float64) extract.RawField {
	return extract.RawField{Path: path, Value: F(v), Confidence: conf}
}

// BalancedExtraction yields a record that passes validation with high
// confidence, so a run completes without review.
func BalancedExtraction() *extract.Result {
	return &extract.Result{
		Period:    "2024-12-31",
		Currency:  "USD",
		ScaleHint: "UNIT",
		Fields: []extract.RawField{
			Field("balance.total_assets", 1000, 0.95),
			Field("balance.total_liabilities", 600, 0.95),
			Field("balance.shareholders_equity", 400, 0.95),
			Field("balance.current_assets", 500, 0.9),
			Field("balance.current_liabilities", 250, 0.9),
			Field("income.revenue", 2000, 0.95),
			Field("income.net_income", 200, 0.95),
		},
	}
}

// ImbalancedExtraction yields assets of 100 against liabilities plus equity
// of 90, so a run suspends for review.
func ImbalancedExtraction() *extract.Result {
	return &extract.Result{
		Period:   "2024-12-31",
		Currency: "MXN",
		Fields: []extract.RawField{
			Field("balance.total_assets", 100, 0.9),
			Field("balance.total_liabilities", 60, 0.9),
			Field("balance.shareholders_equity", 30, 0.9),
			Field("income.revenue", 80, 0.9),
			Field("income.net_income", 8, 0.9),
		},
	}
}
