package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/model"
)

const quarterTable = `Here are the results for Q1 FY25:

| Metric | Q1 FY25 |
|---|---|
| Total Income | 5,000 |
| EBITDA Margin | 27% |
| EBITDA | 1,350 |
| EBIT | 1,150 |
| PBT | 1,100 |
| PAT | 800 |
`

func newExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func TestExtractIndicator_ProseWithCrore(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	ind, ok := e.ExtractIndicator("Revenue from operations: ₹ 5,000 crore in Q1", model.TotalIncome)
	require.True(t, ok)
	assert.Equal(t, 5000.0, ind.Value)
	assert.GreaterOrEqual(t, ind.Confidence, 0.9)
	assert.Contains(t, ind.SourceText, "5,000 crore")
}

func TestExtractAll_MarkdownTable(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	got := e.ExtractAll(quarterTable)

	want := map[model.IndicatorName]float64{
		model.TotalIncome:  5000,
		model.EBITDA:       1350,
		model.EBIT:         1150,
		model.PBT:          1100,
		model.PAT:          800,
		model.EBITDAMargin: 27,
	}
	for name, v := range want {
		ind, ok := got.Get(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, v, ind.Value, name)
			assert.Greater(t, ind.Confidence, 0.0, name)
			assert.LessOrEqual(t, ind.Confidence, 1.0, name)
		}
	}

	_, ok := got.Get(model.Interest)
	assert.False(t, ok, "absent indicators are not zero-filled")
}

func TestExtractIndicator_EBITDoesNotMatchEBITDA(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	text := "EBITDA stood at ₹1,350 crore"
	_, ok := e.ExtractIndicator(text, model.EBIT)
	assert.False(t, ok)

	ind, ok := e.ExtractIndicator(text, model.EBITDA)
	require.True(t, ok)
	assert.Equal(t, 1350.0, ind.Value)
	assert.InDelta(t, 0.85, ind.Confidence, 1e-9)
}

func TestExtractIndicator_TaxIgnoresProfitBeforeTax(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	text := "Profit before tax: ₹1,100 crore"
	_, ok := e.ExtractIndicator(text, model.Tax)
	assert.False(t, ok)

	ind, ok := e.ExtractIndicator(text, model.PBT)
	require.True(t, ok)
	assert.Equal(t, 1100.0, ind.Value)
}

func TestExtractIndicator_LooseSkipsPeriodTokens(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name string
		text string
		ind  model.IndicatorName
		want float64
	}{
		{"ebitda after quarter label", "EBITDA for Q1 FY25 stood at 1,350 while Revenue for Q1 FY25 was 5,000", model.EBITDA, 1350},
		{"revenue after quarter label", "EBITDA for Q1 FY25 stood at 1,350 while Revenue for Q1 FY25 was 5,000", model.TotalIncome, 5000},
		{"net profit after fiscal year", "Net profit in FY2025 Q3 was 780", model.PAT, 780},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ind, ok := e.ExtractIndicator(tt.text, tt.ind)
			require.True(t, ok)
			assert.Equal(t, tt.want, ind.Value)
		})
	}
}

func TestExtractIndicator_FirstMatchWins(t *testing.T) {
	t.Parallel()

	text := "Revenue from operations: ₹ 5,000. Revenue was 4,800."
	first := `revenue from operations: ₹ (\d+(?:,\d+)*)`
	second := `revenue was (\d+(?:,\d+)*)`

	e := newExtractor(t, WithPatterns(model.TotalIncome, first, second))
	ind, ok := e.ExtractIndicator(text, model.TotalIncome)
	require.True(t, ok)
	assert.Equal(t, 5000.0, ind.Value)
	assert.InDelta(t, 0.95, ind.Confidence, 1e-9)

	reordered := newExtractor(t, WithPatterns(model.TotalIncome, second, first))
	ind, ok = reordered.ExtractIndicator(text, model.TotalIncome)
	require.True(t, ok)
	assert.Equal(t, 4800.0, ind.Value)
}

func TestExtractIndicator_ConfidenceByRank(t *testing.T) {
	t.Parallel()

	e := newExtractor(t, WithPatterns(model.EPS,
		`never (\d+)`,
		`nor (\d+)`,
		`eps of (\d+(?:\.\d+)?)`,
	))

	ind, ok := e.ExtractIndicator("eps of 12.5", model.EPS)
	require.True(t, ok)
	assert.InDelta(t, 0.75, ind.Confidence, 1e-9)

	ind, ok = e.ExtractIndicator("Quarterly eps of 12.5", model.EPS)
	require.True(t, ok)
	assert.InDelta(t, 0.80, ind.Confidence, 1e-9)
}

func TestExtractAll_Empty(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	assert.Empty(t, e.ExtractAll(""))
	assert.Empty(t, e.ExtractAll("The company held its annual general meeting."))
}

func TestNew_RejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := New(WithPatterns(model.PAT, `(unclosed`))
	assert.Error(t, err)

	_, err = New(WithPatterns(model.IndicatorName("goodwill"), `(\d+)`))
	assert.Error(t, err)
}
