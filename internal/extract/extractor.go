// Package extract pulls financial indicators out of free-form text using
// ordered regular expression cascades.
package extract

import (
	"math"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/model"
)

const (
	baseConfidence  = 0.95
	rankPenalty     = 0.10
	contextBoost    = 0.05
	contextRadius   = 100
	maxSourceText   = 200
	perMatchTimeout = time.Second
)

var periodKeywords = []string{"quarterly", "q1", "q2", "q3", "q4", "fy"}

// Extractor runs one cascade per indicator. The first pattern in a cascade
// that matches wins; later patterns are not consulted.
type Extractor struct {
	cascades map[model.IndicatorName][]*regexp2.Regexp
}

// Option customizes an Extractor.
type Option func(map[model.IndicatorName][]string)

// WithPatterns replaces the cascade for one indicator. Patterns must have
// exactly one capture group holding the number.
func WithPatterns(name model.IndicatorName, patterns ...string) Option {
	return func(m map[model.IndicatorName][]string) {
		m[name] = patterns
	}
}

// New compiles the default cascades plus any overrides.
func New(opts ...Option) (*Extractor, error) {
	src := defaultCascades()
	for _, o := range opts {
		o(src)
	}

	e := &Extractor{cascades: make(map[model.IndicatorName][]*regexp2.Regexp, len(src))}
	for name, patterns := range src {
		if !name.Valid() {
			return nil, eris.Errorf("extract: unknown indicator %q", name)
		}
		for i, p := range patterns {
			re, err := regexp2.Compile(p, regexp2.IgnoreCase)
			if err != nil {
				return nil, eris.Wrapf(err, "extract: compile %s pattern %d", name, i)
			}
			re.MatchTimeout = perMatchTimeout
			e.cascades[name] = append(e.cascades[name], re)
		}
	}
	return e, nil
}

// ExtractIndicator finds one indicator in text.
func (e *Extractor) ExtractIndicator(text string, name model.IndicatorName) (model.Indicator, bool) {
	runes := []rune(text)
	for rank, re := range e.cascades[name] {
		m, err := re.FindRunesMatch(runes)
		if err != nil {
			zap.L().Warn("extract: pattern failed",
				zap.String("indicator", string(name)),
				zap.Int("rank", rank),
				zap.Error(err),
			)
			continue
		}
		if m == nil {
			continue
		}
		groups := m.Groups()
		if len(groups) < 2 {
			continue
		}
		return model.Indicator{
			Value:      NormalizeNumber(groups[1].String()),
			Confidence: confidence(rank, runes, m.Index, m.Length),
			SourceText: snippet(m.String()),
		}, true
	}
	return model.Indicator{}, false
}

// ExtractAll runs every cascade over text. Indicators with no match are
// absent from the result.
func (e *Extractor) ExtractAll(text string) model.IndicatorSet {
	out := model.IndicatorSet{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, name := range model.AllIndicators() {
		if ind, ok := e.ExtractIndicator(text, name); ok {
			out[name] = ind
		}
	}
	zap.L().Debug("extract: indicators found", zap.Int("count", len(out)))
	return out
}

func confidence(rank int, runes []rune, start, length int) float64 {
	c := baseConfidence - rankPenalty*float64(rank)
	lo := max(0, start-contextRadius)
	hi := min(len(runes), start+length+contextRadius)
	window := strings.ToLower(string(runes[lo:hi]))
	for _, kw := range periodKeywords {
		if strings.Contains(window, kw) {
			c = math.Min(c+contextBoost, 1.0)
			break
		}
	}
	return math.Round(c*100) / 100
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxSourceText {
		return string(r[:maxSourceText])
	}
	return s
}
