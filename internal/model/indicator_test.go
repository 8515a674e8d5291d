package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicatorName_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Total Income", TotalIncome.Label())
	assert.Equal(t, "Pbt", PBT.Label())
	assert.Equal(t, "Employee Cost", EmployeeCost.Label())
}

func TestIndicatorName_Valid(t *testing.T) {
	t.Parallel()

	for _, n := range AllIndicators() {
		assert.True(t, n.Valid(), n)
	}
	assert.False(t, IndicatorName("revenue_growth").Valid())
}

func TestIndicatorSet_NamesCanonicalOrder(t *testing.T) {
	t.Parallel()

	s := IndicatorSet{
		PAT:         {Value: 1},
		TotalIncome: {Value: 2},
		EBITDA:      {Value: 3},
	}
	assert.Equal(t, []IndicatorName{TotalIncome, EBITDA, PAT}, s.Names())
}

func TestIndicatorSet_WithoutDoesNotMutate(t *testing.T) {
	t.Parallel()

	s := IndicatorSet{PBT: {Value: 10}, PAT: {Value: 7}}
	out := s.Without(PBT)

	assert.Len(t, s, 2)
	_, ok := out.Get(PBT)
	assert.False(t, ok)
	v, ok := out.Value(PAT)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestQuarterlyRecord_Completeness(t *testing.T) {
	t.Parallel()

	r := &QuarterlyRecord{}
	assert.Equal(t, 0.0, r.Completeness())

	r.TotalIncome = Float(5000)
	r.EmployeeCost = Float(0)
	r.Tax = Float(100)
	assert.InDelta(t, 33.33, r.Completeness(), 0.01)
}

func TestValidationReport(t *testing.T) {
	t.Parallel()

	r := NewValidationReport()
	r.AddWarning("odd margin")
	assert.True(t, r.Valid)

	r.AddError("PAT exceeds PBT")
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"PAT exceeds PBT"}, r.Errors)
	assert.Equal(t, []string{"odd margin"}, r.Warnings)
}
