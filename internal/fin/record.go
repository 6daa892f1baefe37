package fin

import "fmt"

// BalanceSheet holds the balance sheet section of a Record.
type BalanceSheet struct {
	Cash               *float64 `json:"cash"`
	AccountsReceivable *float64 `json:"accounts_receivable"`
	Inventory          *float64 `json:"inventory"`
	CurrentAssets      *float64 `json:"current_assets"`
	TotalAssets        *float64 `json:"total_assets"`
	AccountsPayable    *float64 `json:"accounts_payable"`
	ShortTermDebt      *float64 `json:"short_term_debt"`
	CurrentLiabilities *float64 `json:"current_liabilities"`
	LongTermDebt       *float64 `json:"long_term_debt"`
	TotalLiabilities   *float64 `json:"total_liabilities"`
	ShareholdersEquity *float64 `json:"shareholders_equity"`
}

// IncomeStatement holds the income statement section of a Record.
type IncomeStatement struct {
	Revenue         *float64 `json:"revenue"`
	COGS            *float64 `json:"cogs"`
	GrossProfit     *float64 `json:"gross_profit"`
	OperatingIncome *float64 `json:"operating_income"`
	EBITDA          *float64 `json:"ebitda"`
	InterestExpense *float64 `json:"interest_expense"`
	NetIncome       *float64 `json:"net_income"`
}

// CashFlow holds the cash flow statement section of a Record.
type CashFlow struct {
	OperatingCF *float64 `json:"operating_cf"`
	InvestingCF *float64 `json:"investing_cf"`
	FinancingCF *float64 `json:"financing_cf"`
	FreeCF      *float64 `json:"free_cf"`
}

// Record is the normalized financial statement set for one document.
//
// FieldsRaw keeps every extracted field keyed by its dotted path, including
// paths that did not resolve to a section attribute, so provenance is never
// lost.
type Record struct {
	Period    string                    `json:"period"`
	Currency  string                    `json:"currency"`
	Scale     Scale                     `json:"scale"`
	Balance   BalanceSheet              `json:"balance"`
	Income    IncomeStatement           `json:"income"`
	CashFlow  CashFlow                  `json:"cashflow"`
	FieldsRaw map[string]ExtractedField `json:"fields_raw"`
}

// NewRecord returns an empty record with an initialized provenance map.
func NewRecord(period, currency string, scale Scale) *Record {
	return &Record{
		Period:    period,
		Currency:  currency,
		Scale:     scale,
		FieldsRaw: make(map[string]ExtractedField),
	}
}

// Get returns the value at p, or nil if the field is unset.
// The zero Path always yields nil.
func (r *Record) Get(p Path) *float64 {
	ref, ok := refByPath[p]
	if !ok {
		return nil
	}
	return *ref(r)
}

// Set assigns v at p and returns the previous value.
// The stored pointer is a private copy of v.
func (r *Record) Set(p Path, v *float64) (*float64, error) {
	ref, ok := refByPath[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldPath, p.String())
	}
	slot := ref(r)
	old := *slot
	*slot = copyFloat(v)
	return old, nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := NewRecord(r.Period, r.Currency, r.Scale)
	for _, f := range fields {
		*f.ref(out) = copyFloat(*f.ref(r))
	}
	for k, v := range r.FieldsRaw {
		out.FieldsRaw[k] = v.clone()
	}
	return out
}

// Float returns a pointer to v. Convenience for building records.
func Float(v float64) *float64 {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
