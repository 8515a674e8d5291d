package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/model"
)

const unavailableWords = `(?:not available|not disclosed|not reported|not explicitly|not|n/a|na)\b`

// A label only counts on its own: "Tax" inside "Profit Before Tax" or a
// longer word does not match.
const labelGuard = `(?<![\w/&])(?<!before\s)(?<!after\s)`

var unavailable = func() map[model.IndicatorName]*regexp2.Regexp {
	m := make(map[model.IndicatorName]*regexp2.Regexp)
	for _, n := range model.AllIndicators() {
		re := regexp2.MustCompile(labelGuard+regexp2.Escape(n.Label())+`[:\s*]+`+unavailableWords, regexp2.IgnoreCase)
		re.MatchTimeout = time.Second
		m[n] = re
	}
	return m
}()

func statesUnavailable(n model.IndicatorName, text string) bool {
	ok, err := unavailable[n].MatchString(text)
	if err != nil {
		zap.L().Debug("validate: unavailability match timed out", zap.String("indicator", string(n)), zap.Error(err))
		return false
	}
	return ok
}

// Prune removes extraction artifacts from set and returns a new set along
// with a note for every removal. It never adds or changes values.
func (v *Validator) Prune(set model.IndicatorSet, text string) (model.IndicatorSet, []string) {
	var drop []model.IndicatorName
	var notes []string

	ti, hasTI := set.Value(model.TotalIncome)
	if pbt, ok := set.Value(model.PBT); ok && hasTI && math.Abs(pbt-ti) < v.th.CollisionDelta {
		drop = append(drop, model.PBT)
		notes = append(notes, fmt.Sprintf("dropped PBT (%.2f): equals total income (%.2f)", pbt, ti))
	}
	if pat, ok := set.Value(model.PAT); ok && hasTI && pat < v.th.PercentPATMax && ti > v.th.PercentIncomeMin {
		drop = append(drop, model.PAT)
		notes = append(notes, fmt.Sprintf("dropped PAT (%.2f): looks like a percentage of income %.2f", pat, ti))
	}
	for _, n := range set.Names() {
		if statesUnavailable(n, text) {
			drop = append(drop, n)
			notes = append(notes, fmt.Sprintf("dropped %s: source states it is not available", n))
		}
	}

	for _, note := range notes {
		zap.L().Debug("validate: pruned indicator", zap.String("note", note))
	}
	return set.Without(drop...), notes
}

// ContextConfidence scores whether text is about period at all: 1.0 minus
// a penalty for a missing company mention and one for a missing quarter or
// fiscal-year mention.
func (v *Validator) ContextConfidence(text string, p model.Period) float64 {
	lower := strings.ToLower(text)
	c := 1.0
	if p.Company == "" || !strings.Contains(lower, strings.ToLower(p.Company)) {
		c -= v.th.CompanyPenalty
	}
	if !mentionsPeriod(lower, p) {
		c -= v.th.PeriodPenalty
	}
	return round2(clamp(c))
}

func mentionsPeriod(lower string, p model.Period) bool {
	year := strconv.Itoa(p.Year)
	candidates := []string{
		strings.ToLower(string(p.Quarter)),
		strings.ToLower(p.FiscalLabel()),
		"fy " + year,
		"fy" + year,
		fmt.Sprintf("fy%02d", p.Year%100),
	}
	for _, c := range candidates {
		if c != "" && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// ApplyContext scales every indicator's confidence by c.
func ApplyContext(set model.IndicatorSet, c float64) model.IndicatorSet {
	out := make(model.IndicatorSet, len(set))
	for n, ind := range set {
		ind.Confidence = round2(clamp(ind.Confidence * c))
		out[n] = ind
	}
	return out
}

func clamp(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
