// Package validate detects implausible extractions and checks the
// consistency of derived financial records.
package validate

import "github.com/sells-group/finresearch/internal/model"

// Thresholds tunes the validation rules. Amounts are INR crores.
type Thresholds struct {
	// CollisionDelta: PBT within this distance of total income is treated
	// as a mis-read of the total line.
	CollisionDelta float64 `yaml:"collision_delta" mapstructure:"collision_delta"`

	// PAT below PercentPATMax with total income above PercentIncomeMin is
	// treated as a misread percentage.
	PercentPATMax    float64 `yaml:"percent_pat_max" mapstructure:"percent_pat_max"`
	PercentIncomeMin float64 `yaml:"percent_income_min" mapstructure:"percent_income_min"`

	// PBTOverEBIT flags PBT above this multiple of EBIT.
	PBTOverEBIT float64 `yaml:"pbt_over_ebit" mapstructure:"pbt_over_ebit"`

	// EBITDAMarginMax flags EBITDA margins above this percentage.
	EBITDAMarginMax float64 `yaml:"ebitda_margin_max" mapstructure:"ebitda_margin_max"`

	CompanyPenalty float64 `yaml:"company_penalty" mapstructure:"company_penalty"`
	PeriodPenalty  float64 `yaml:"period_penalty" mapstructure:"period_penalty"`

	// RequiredForOpPBT lists the extracted indicators without which
	// operating PBT cannot be reconstructed.
	RequiredForOpPBT []model.IndicatorName `yaml:"required_for_op_pbt" mapstructure:"required_for_op_pbt"`

	// Record checks.
	AmountMin      float64 `yaml:"amount_min" mapstructure:"amount_min"`
	AmountMax      float64 `yaml:"amount_max" mapstructure:"amount_max"`
	MarginMin      float64 `yaml:"margin_min" mapstructure:"margin_min"`
	MarginMax      float64 `yaml:"margin_max" mapstructure:"margin_max"`
	QoQChangeMax   float64 `yaml:"qoq_change_max" mapstructure:"qoq_change_max"`
	ConsistencyTol float64 `yaml:"consistency_tolerance" mapstructure:"consistency_tolerance"`
}

// DefaultThresholds returns the standard rule settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CollisionDelta:   1.0,
		PercentPATMax:    100,
		PercentIncomeMin: 10000,
		PBTOverEBIT:      1.5,
		EBITDAMarginMax:  50,
		CompanyPenalty:   0.3,
		PeriodPenalty:    0.2,
		RequiredForOpPBT: []model.IndicatorName{model.EBIT, model.Interest, model.OtherIncome},
		AmountMin:        0,
		AmountMax:        100000,
		MarginMin:        -50,
		MarginMax:        100,
		QoQChangeMax:     50,
		ConsistencyTol:   0.01,
	}
}

// Validator applies the rules with one set of thresholds.
type Validator struct {
	th Thresholds
}

// New returns a Validator. Zero-valued thresholds fall back to defaults.
func New(th Thresholds) *Validator {
	def := DefaultThresholds()
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&th.CollisionDelta, def.CollisionDelta)
	fill(&th.PercentPATMax, def.PercentPATMax)
	fill(&th.PercentIncomeMin, def.PercentIncomeMin)
	fill(&th.PBTOverEBIT, def.PBTOverEBIT)
	fill(&th.EBITDAMarginMax, def.EBITDAMarginMax)
	fill(&th.CompanyPenalty, def.CompanyPenalty)
	fill(&th.PeriodPenalty, def.PeriodPenalty)
	fill(&th.AmountMax, def.AmountMax)
	fill(&th.MarginMin, def.MarginMin)
	fill(&th.MarginMax, def.MarginMax)
	fill(&th.QoQChangeMax, def.QoQChangeMax)
	fill(&th.ConsistencyTol, def.ConsistencyTol)
	if th.RequiredForOpPBT == nil {
		th.RequiredForOpPBT = def.RequiredForOpPBT
	}
	return &Validator{th: th}
}

// Thresholds returns the effective settings.
func (v *Validator) Thresholds() Thresholds {
	return v.th
}
