package validate

import (
	"fmt"
	"math"

	"github.com/sells-group/finresearch/internal/model"
)

// CheckRecord validates a derived quarterly record: amount ranges,
// agreement of the derived fields with their inputs, plausible margins and,
// when prev is given, the quarter-over-quarter revenue swing.
func (v *Validator) CheckRecord(rec, prev *model.QuarterlyRecord) model.ValidationReport {
	r := model.NewValidationReport()

	for _, f := range []struct {
		label string
		val   *float64
	}{
		{"Total Income", rec.TotalIncome},
		{"Employee Cost", rec.EmployeeCost},
		{"Other Expenses", rec.OtherExpenses},
	} {
		if f.val != nil && (*f.val < v.th.AmountMin || *f.val > v.th.AmountMax) {
			r.AddError(fmt.Sprintf("%s %g outside [%g, %g]", f.label, *f.val, v.th.AmountMin, v.th.AmountMax))
		}
	}

	consistent := func(label string, got *float64, want func() (float64, bool)) {
		if got == nil {
			return
		}
		if w, ok := want(); ok && math.Abs(w-*got) > v.th.ConsistencyTol {
			r.AddError(fmt.Sprintf("%s %g does not match its inputs (expected %g)", label, *got, w))
		}
	}
	consistent("Contribution", rec.Contribution, func() (float64, bool) {
		if rec.TotalIncome == nil || rec.PurchaseTradedGoods == nil || rec.StockChange == nil {
			return 0, false
		}
		return *rec.TotalIncome - *rec.PurchaseTradedGoods - *rec.StockChange, true
	})
	consistent("Op. EBITDA", rec.OpEBITDA, func() (float64, bool) {
		if rec.Contribution == nil || rec.EmployeeCost == nil || rec.OtherExpenses == nil {
			return 0, false
		}
		return *rec.Contribution - *rec.EmployeeCost - *rec.OtherExpenses, true
	})

	for _, m := range []struct {
		label string
		val   *float64
	}{
		{"Op. EBITDA %", rec.OpEBITDAPct},
		{"Op. EBIT %", rec.OpEBITPct},
		{"Op. PBT %", rec.OpPBTPct},
		{"PBT %", rec.PBTPct},
	} {
		if m.val != nil && (*m.val < v.th.MarginMin || *m.val > v.th.MarginMax) {
			r.AddWarning(fmt.Sprintf("unusual %s: %.2f", m.label, *m.val))
		}
	}

	if prev != nil && prev.TotalIncome != nil && rec.TotalIncome != nil && *prev.TotalIncome != 0 {
		change := math.Abs((*rec.TotalIncome - *prev.TotalIncome) / *prev.TotalIncome * 100)
		if change > v.th.QoQChangeMax {
			r.AddWarning(fmt.Sprintf("total income moved %.1f%% from %s %d", change, prev.Quarter, prev.Year))
		}
	}
	return r
}
