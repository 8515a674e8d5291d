package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/finresearch/internal/model"
)

// Check runs the strict rules over an extracted set. Soft anomalies become
// warnings; an impossible profit hierarchy or a missing field required for
// operating PBT makes the report invalid.
func (v *Validator) Check(set model.IndicatorSet) model.ValidationReport {
	r := model.NewValidationReport()
	val := set.Value

	ti, hasTI := val(model.TotalIncome)
	ebitda, hasEBITDA := val(model.EBITDA)
	ebit, hasEBIT := val(model.EBIT)
	pbt, hasPBT := val(model.PBT)
	pat, hasPAT := val(model.PAT)

	if hasPBT && hasTI && math.Abs(pbt-ti) < v.th.CollisionDelta {
		r.AddWarning(fmt.Sprintf("PBT (%g) equals total income (%g), likely a mis-extraction", pbt, ti))
	}
	if hasPAT && hasTI && pat < v.th.PercentPATMax && ti > v.th.PercentIncomeMin {
		r.AddWarning(fmt.Sprintf("PAT (%g) looks like a percentage against total income %g", pat, ti))
	}

	for _, n := range []model.IndicatorName{model.EBITDA, model.EBIT, model.PBT, model.PAT} {
		if x, ok := val(n); ok && x < 0 {
			r.AddWarning(fmt.Sprintf("%s is negative (%g)", strings.ToUpper(string(n)), x))
		}
	}
	if hasEBITDA && hasTI && ti > 0 {
		if m := ebitda / ti * 100; m > v.th.EBITDAMarginMax {
			r.AddWarning(fmt.Sprintf("EBITDA margin %.1f%% is unusually high", m))
		}
	}

	if hasEBITDA && hasEBIT && ebitda < ebit {
		r.AddWarning(fmt.Sprintf("EBITDA (%g) is below EBIT (%g)", ebitda, ebit))
	}
	if hasEBIT && hasPBT && pbt > ebit*v.th.PBTOverEBIT {
		r.AddWarning(fmt.Sprintf("PBT (%g) far exceeds EBIT (%g), verify other income", pbt, ebit))
	}
	if hasPBT && hasPAT && pbt > 0 && pat > pbt {
		r.AddError(fmt.Sprintf("PAT (%g) exceeds PBT (%g)", pat, pbt))
	}

	var missing []string
	for _, n := range v.th.RequiredForOpPBT {
		if _, ok := set.Get(n); !ok {
			missing = append(missing, string(n))
		}
	}
	if len(missing) > 0 {
		r.AddError("missing fields for operating PBT: " + strings.Join(missing, ", "))
	}
	return r
}
