// Package model defines the financial research domain types shared across
// extraction, validation, derivation, storage and reporting.
package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Quarter is a fiscal quarter of the April-March Indian financial year.
type Quarter string

const (
	Q1 Quarter = "Q1" // April - June
	Q2 Quarter = "Q2" // July - September
	Q3 Quarter = "Q3" // October - December
	Q4 Quarter = "Q4" // January - March
)

// AllQuarters returns Q1 through Q4 in order.
func AllQuarters() []Quarter {
	return []Quarter{Q1, Q2, Q3, Q4}
}

// ParseQuarter accepts "Q3", "q3" or "3".
func ParseQuarter(s string) (Quarter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "Q") {
		s = "Q" + s
	}
	q := Quarter(s)
	if !q.Valid() {
		return "", eris.Errorf("model: invalid quarter %q", s)
	}
	return q, nil
}

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool {
	switch q {
	case Q1, Q2, Q3, Q4:
		return true
	}
	return false
}

// EndMonth is the month name the quarter closes in.
func (q Quarter) EndMonth() string {
	switch q {
	case Q1:
		return "June"
	case Q2:
		return "September"
	case Q3:
		return "December"
	case Q4:
		return "March"
	}
	return ""
}

// Period identifies one company-quarter. Year is the fiscal year the
// quarter belongs to, named by the calendar year it ends in: Q3 2025 is
// the quarter ending December 2024.
type Period struct {
	Company string  `json:"company" validate:"required"`
	Quarter Quarter `json:"quarter" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	Year    int     `json:"year" validate:"gte=2000,lte=2100"`
}

// Key is the identity string "<company>_<quarter>", matching progress item ids.
func (p Period) Key() string {
	return fmt.Sprintf("%s_%s", p.Company, p.Quarter)
}

// String renders "TCS - Q1 2024".
func (p Period) String() string {
	return fmt.Sprintf("%s - %s %d", p.Company, p.Quarter, p.Year)
}

// FiscalLabel renders the financial-year label used in queries: "FY2024-25"
// from 2025 on, "FY2024" before.
func (p Period) FiscalLabel() string {
	if p.Year >= 2025 {
		return fmt.Sprintf("FY%d-%02d", p.Year-1, p.Year%100)
	}
	return fmt.Sprintf("FY%d", p.Year)
}

// QuarterEnd renders the calendar month the quarter closes in, e.g.
// "December 2024" for Q3 2025.
func (p Period) QuarterEnd() string {
	year := p.Year - 1
	if p.Quarter == Q4 {
		year = p.Year
	}
	return fmt.Sprintf("%s %d", p.Quarter.EndMonth(), year)
}

// Previous is the quarter before p for the same company. Q1 steps back
// into Q4 of the prior fiscal year.
func (p Period) Previous() Period {
	prev := p
	switch p.Quarter {
	case Q1:
		prev.Quarter, prev.Year = Q4, p.Year-1
	case Q2:
		prev.Quarter = Q1
	case Q3:
		prev.Quarter = Q2
	case Q4:
		prev.Quarter = Q3
	}
	return prev
}
