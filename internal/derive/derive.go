// Package derive builds quarterly financial statements from extracted
// primitives.
package derive

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finresearch/internal/model"
)

// FromIndicators copies every primitive present in set onto a new record.
// Missing indicators stay nil; a reported zero is kept as zero.
func FromIndicators(p model.Period, set model.IndicatorSet, src model.Source) *model.QuarterlyRecord {
	rec := &model.QuarterlyRecord{
		Company:    p.Company,
		Quarter:    p.Quarter,
		Year:       p.Year,
		DataSource: src,
	}
	for name, field := range map[model.IndicatorName]**float64{
		model.TotalIncome:         &rec.TotalIncome,
		model.PurchaseTradedGoods: &rec.PurchaseTradedGoods,
		model.StockChange:         &rec.StockChange,
		model.EmployeeCost:        &rec.EmployeeCost,
		model.OtherExpenses:       &rec.OtherExpenses,
		model.Depreciation:        &rec.Depreciation,
		model.Interest:            &rec.Interest,
		model.OtherIncome:         &rec.OtherIncome,
		model.Tax:                 &rec.Tax,
	} {
		if v, ok := set.Value(name); ok {
			*field = model.Float(v)
		}
	}
	return rec
}

// chain evaluates derivation steps in order and remembers the first
// failure; once failed, every later step yields nil.
type chain struct {
	err error
}

func (c *chain) step(name string, fn func(v []float64) float64, in ...*float64) *float64 {
	if c.err != nil {
		return nil
	}
	vals := make([]float64, 0, len(in))
	for _, p := range in {
		if p == nil {
			return nil
		}
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			c.err = eris.Errorf("derive: %s: non-finite input %v", name, *p)
			return nil
		}
		vals = append(vals, *p)
	}
	return model.Float(fn(vals))
}

func sum(v []float64) float64 { return v[0] + v[1] }

func diff(v []float64) float64 {
	out := v[0]
	for _, x := range v[1:] {
		out -= x
	}
	return out
}

// Compute fills the derived fields of rec. A step runs only when all of its
// inputs are present. A non-finite input stops the chain with an error;
// fields computed before that point are kept.
func Compute(rec *model.QuarterlyRecord) error {
	var c chain
	rec.TotalCOGS = c.step("total_cogs", sum, rec.PurchaseTradedGoods, rec.StockChange)
	rec.Contribution = c.step("contribution", diff, rec.TotalIncome, rec.PurchaseTradedGoods, rec.StockChange)
	rec.OpEBITDA = c.step("op_ebitda", diff, rec.Contribution, rec.EmployeeCost, rec.OtherExpenses)
	rec.OpEBIT = c.step("op_ebit", diff, rec.OpEBITDA, rec.Depreciation)
	rec.OpPBT = c.step("op_pbt", diff, rec.OpEBIT, rec.Interest)
	rec.PBT = c.step("pbt", sum, rec.OpPBT, rec.OtherIncome)
	rec.PAT = c.step("pat", diff, rec.PBT, rec.Tax)

	if ti := rec.TotalIncome; ti != nil && *ti > 0 {
		pct := func(x *float64) *float64 {
			if x == nil {
				return nil
			}
			return model.Float(*x / *ti * 100)
		}
		rec.OpEBITDAPct = pct(rec.OpEBITDA)
		rec.OpEBITPct = pct(rec.OpEBIT)
		rec.OpPBTPct = pct(rec.OpPBT)
		rec.PBTPct = pct(rec.PBT)
	}
	if c.err != nil {
		return eris.Wrapf(c.err, "derive: compute %s", rec.Period())
	}
	return nil
}

// Record builds and computes a record in one go. A computation error is
// returned alongside the partial record.
func Record(p model.Period, set model.IndicatorSet, src model.Source) (*model.QuarterlyRecord, error) {
	rec := FromIndicators(p, set, src)
	err := Compute(rec)
	return rec, err
}
