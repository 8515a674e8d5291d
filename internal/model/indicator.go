package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IndicatorName is one of the closed set of financial line items the
// engine understands.
type IndicatorName string

const (
	TotalIncome         IndicatorName = "total_income"
	PurchaseTradedGoods IndicatorName = "purchase_traded_goods"
	StockChange         IndicatorName = "stock_change"
	EmployeeCost        IndicatorName = "employee_cost"
	OtherExpenses       IndicatorName = "other_expenses"
	EBITDA              IndicatorName = "ebitda"
	Depreciation        IndicatorName = "depreciation"
	EBIT                IndicatorName = "ebit"
	Interest            IndicatorName = "interest"
	OtherIncome         IndicatorName = "other_income"
	PBT                 IndicatorName = "pbt"
	Tax                 IndicatorName = "tax"
	PAT                 IndicatorName = "pat"
	EBITDAMargin        IndicatorName = "ebitda_margin"
	EBITMargin          IndicatorName = "ebit_margin"
	ProfitMargin        IndicatorName = "profit_margin"
	EPS                 IndicatorName = "eps"
)

var allIndicators = []IndicatorName{
	TotalIncome, PurchaseTradedGoods, StockChange, EmployeeCost, OtherExpenses,
	EBITDA, Depreciation, EBIT, Interest, OtherIncome, PBT, Tax, PAT,
	EBITDAMargin, EBITMargin, ProfitMargin, EPS,
}

var indicatorIndex = func() map[IndicatorName]int {
	m := make(map[IndicatorName]int, len(allIndicators))
	for i, n := range allIndicators {
		m[n] = i
	}
	return m
}()

// AllIndicators returns every indicator in canonical P&L order.
func AllIndicators() []IndicatorName {
	out := make([]IndicatorName, len(allIndicators))
	copy(out, allIndicators)
	return out
}

// Valid reports whether n is a known indicator.
func (n IndicatorName) Valid() bool {
	_, ok := indicatorIndex[n]
	return ok
}

// IsPercentage reports whether the indicator is a ratio rather than an
// amount in crores.
func (n IndicatorName) IsPercentage() bool {
	switch n {
	case EBITDAMargin, EBITMargin, ProfitMargin:
		return true
	}
	return false
}

var titleCaser = cases.Title(language.English)

// Label renders the human form: "total_income" -> "Total Income".
func (n IndicatorName) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(n), "_", " "))
}

// Indicator is one extracted value. Value is in INR crores for amounts,
// percent for margins and rupees for EPS.
type Indicator struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"source_text,omitempty"`
}

// IndicatorSet holds the indicators found for one period. Absent keys mean
// not found; they are never zero-filled.
type IndicatorSet map[IndicatorName]Indicator

// Get returns the indicator and whether it is present.
func (s IndicatorSet) Get(n IndicatorName) (Indicator, bool) {
	ind, ok := s[n]
	return ind, ok
}

// Value returns the indicator's value and whether it is present.
func (s IndicatorSet) Value(n IndicatorName) (float64, bool) {
	ind, ok := s[n]
	return ind.Value, ok
}

// Names lists the present indicators in canonical order.
func (s IndicatorSet) Names() []IndicatorName {
	var out []IndicatorName
	for _, n := range allIndicators {
		if _, ok := s[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns an independent copy.
func (s IndicatorSet) Clone() IndicatorSet {
	out := make(IndicatorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Without returns a copy with the named indicators removed.
func (s IndicatorSet) Without(names ...IndicatorName) IndicatorSet {
	out := s.Clone()
	for _, n := range names {
		delete(out, n)
	}
	return out
}
