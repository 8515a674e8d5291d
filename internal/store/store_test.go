package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/finresearch/internal/model"
)

func TestFilter_Match(t *testing.T) {
	t.Parallel()

	rec := record("Tech Mahindra", model.Q3, 2024)
	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty", Filter{}, true},
		{"company case-insensitive", Filter{Company: "tech mahindra"}, true},
		{"other company", Filter{Company: "Tech"}, false},
		{"quarter", Filter{Quarter: model.Q3}, true},
		{"wrong year", Filter{Company: "Tech Mahindra", Year: 2023}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.f.Match(rec))
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	recs := []model.ResearchRecord{
		*record("TCS", model.Q1, 2024, 0.9, 0.8),
		*record("TCS", model.Q2, 2024, 0.7),
		*record("Infosys", model.Q1, 2024),
	}
	recs[2].Source = model.SourceScrape

	s := Summarize(recs)
	assert.Equal(t, 3, s.TotalRecords)
	assert.Equal(t, 2, s.UniqueCompanies)
	assert.Equal(t, 2, s.UniquePeriods)
	assert.Equal(t, 3, s.TotalExtractions)
	assert.InDelta(t, 0.8, s.AverageConfidence, 1e-9)
	assert.Equal(t, []string{"Infosys", "TCS"}, s.Companies)
	assert.Equal(t, []string{"Q1 2024", "Q2 2024"}, s.Periods)
	assert.Equal(t, 2, s.BySource[model.SourceAI])
	assert.Equal(t, 1, s.BySource[model.SourceScrape])
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	assert.Zero(t, s.TotalRecords)
	assert.Zero(t, s.AverageConfidence)
	assert.Empty(t, s.Companies)
}
