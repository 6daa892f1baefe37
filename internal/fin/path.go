package fin

import (
	"fmt"
	"strings"
)

// Section names one of the three statements in a Record.
type Section string

const (
	SectionBalance  Section = "balance"
	SectionIncome   Section = "income"
	SectionCashFlow Section = "cashflow"
)

// Meta-directive paths accepted by review corrections. They mutate
// record-level scalars instead of section fields and never resolve through
// ParsePath.
const (
	MetaScaleConfirmed    = "meta.scale_confirmed"
	MetaCurrencyConfirmed = "meta.currency_confirmed"
)

// Path identifies one declared field of a Record.
//
// Paths can only be obtained from ParsePath, Paths, or the exported path
// variables below, so every non-zero Path resolves. The zero Path is invalid.
type Path struct {
	section Section
	attr    string
}

// Section returns the statement the path belongs to.
func (p Path) Section() Section { return p.section }

// Attribute returns the field name within the section.
func (p Path) Attribute() string { return p.attr }

// IsZero reports whether p is the invalid zero Path.
func (p Path) IsZero() bool { return p.attr == "" }

// String returns the dotted form, e.g. "balance.total_assets".
func (p Path) String() string {
	if p.IsZero() {
		return ""
	}
	return string(p.section) + "." + p.attr
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParsePath.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Declared paths.
var (
	BalanceCash               = Path{SectionBalance, "cash"}
	BalanceAccountsReceivable = Path{SectionBalance, "accounts_receivable"}
	BalanceInventory          = Path{SectionBalance, "inventory"}
	BalanceCurrentAssets      = Path{SectionBalance, "current_assets"}
	BalanceTotalAssets        = Path{SectionBalance, "total_assets"}
	BalanceAccountsPayable    = Path{SectionBalance, "accounts_payable"}
	BalanceShortTermDebt      = Path{SectionBalance, "short_term_debt"}
	BalanceCurrentLiabilities = Path{SectionBalance, "current_liabilities"}
	BalanceLongTermDebt       = Path{SectionBalance, "long_term_debt"}
	BalanceTotalLiabilities   = Path{SectionBalance, "total_liabilities"}
	BalanceShareholdersEquity = Path{SectionBalance, "shareholders_equity"}

	IncomeRevenue         = Path{SectionIncome, "revenue"}
	IncomeCOGS            = Path{SectionIncome, "cogs"}
	IncomeGrossProfit     = Path{SectionIncome, "gross_profit"}
	IncomeOperatingIncome = Path{SectionIncome, "operating_income"}
	IncomeEBITDA          = Path{SectionIncome, "ebitda"}
	IncomeInterestExpense = Path{SectionIncome, "interest_expense"}
	IncomeNetIncome       = Path{SectionIncome, "net_income"}

	CashFlowOperating = Path{SectionCashFlow, "operating_cf"}
	CashFlowInvesting = Path{SectionCashFlow, "investing_cf"}
	CashFlowFinancing = Path{SectionCashFlow, "financing_cf"}
	CashFlowFree      = Path{SectionCashFlow, "free_cf"}
)

type fieldRef func(r *Record) **float64

type declaredField struct {
	path Path
	ref  fieldRef
}

// fields is the closed enumeration, in declaration order.
var fields = []declaredField{
	{BalanceCash, func(r *Record) **float64 { return &r.Balance.Cash }},
	{BalanceAccountsReceivable, func(r *Record) **float64 { return &r.Balance.AccountsReceivable }},
	{BalanceInventory, func(r *Record) **float64 { return &r.Balance.Inventory }},
	{BalanceCurrentAssets, func(r *Record) **float64 { return &r.Balance.CurrentAssets }},
	{BalanceTotalAssets, func(r *Record) **float64 { return &r.Balance.TotalAssets }},
	{BalanceAccountsPayable, func(r *Record) **float64 { return &r.Balance.AccountsPayable }},
	{BalanceShortTermDebt, func(r *Record) **float64 { return &r.Balance.ShortTermDebt }},
	{BalanceCurrentLiabilities, func(r *Record) **float64 { return &r.Balance.CurrentLiabilities }},
	{BalanceLongTermDebt, func(r *Record) **float64 { return &r.Balance.LongTermDebt }},
	{BalanceTotalLiabilities, func(r *Record) **float64 { return &r.Balance.TotalLiabilities }},
	{BalanceShareholdersEquity, func(r *Record) **float64 { return &r.Balance.ShareholdersEquity }},
	{IncomeRevenue, func(r *Record) **float64 { return &r.Income.Revenue }},
	{IncomeCOGS, func(r *Record) **float64 { return &r.Income.COGS }},
	{IncomeGrossProfit, func(r *Record) **float64 { return &r.Income.GrossProfit }},
	{IncomeOperatingIncome, func(r *Record) **float64 { return &r.Income.OperatingIncome }},
	{IncomeEBITDA, func(r *Record) **float64 { return &r.Income.EBITDA }},
	{IncomeInterestExpense, func(r *Record) **float64 { return &r.Income.InterestExpense }},
	{IncomeNetIncome, func(r *Record) **float64 { return &r.Income.NetIncome }},
	{CashFlowOperating, func(r *Record) **float64 { return &r.CashFlow.OperatingCF }},
	{CashFlowInvesting, func(r *Record) **float64 { return &r.CashFlow.InvestingCF }},
	{CashFlowFinancing, func(r *Record) **float64 { return &r.CashFlow.FinancingCF }},
	{CashFlowFree, func(r *Record) **float64 { return &r.CashFlow.FreeCF }},
}

var refByPath = func() map[Path]fieldRef {
	m := make(map[Path]fieldRef, len(fields))
	for _, f := range fields {
		m[f.path] = f.ref
	}
	return m
}()

// CriticalPaths lists the fields whose absence always requires review.
var CriticalPaths = []Path{
	BalanceTotalAssets,
	BalanceTotalLiabilities,
	BalanceShareholdersEquity,
	IncomeRevenue,
	IncomeNetIncome,
}

// ParsePath resolves a dotted "<section>.<attribute>" string to a Path.
// Surrounding whitespace is ignored; matching is case-sensitive.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	section, attr, ok := strings.Cut(s, ".")
	if !ok || attr == "" {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidFieldPath, s)
	}
	p := Path{section: Section(section), attr: attr}
	if _, ok := refByPath[p]; !ok {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidFieldPath, s)
	}
	return p, nil
}

// Paths returns every declared path in declaration order.
func Paths() []Path {
	out := make([]Path, len(fields))
	for i, f := range fields {
		out[i] = f.path
	}
	return out
}
