// Package store persists research records keyed by company, quarter and
// year. Saving the same period twice overwrites the earlier record.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/finresearch/internal/model"
)

// Filter narrows GetAll. Empty fields match everything.
type Filter struct {
	Company string        `json:"company,omitempty"`
	Quarter model.Quarter `json:"quarter,omitempty"`
	Year    int           `json:"year,omitempty"`
}

// Match reports whether rec passes the filter. Company matching ignores case.
func (f Filter) Match(rec *model.ResearchRecord) bool {
	if f.Company != "" && !strings.EqualFold(f.Company, rec.Company) {
		return false
	}
	if f.Quarter != "" && f.Quarter != rec.Quarter {
		return false
	}
	return f.Year == 0 || f.Year == rec.Year
}

// Store is the persistence interface for research records.
type Store interface {
	// Save upserts rec under its period.
	Save(ctx context.Context, rec *model.ResearchRecord) error
	// Load returns the record for p, or nil when none is stored. A stored
	// record that cannot be decoded is logged and treated as absent.
	Load(ctx context.Context, p model.Period) (*model.ResearchRecord, error)
	GetAll(ctx context.Context, f Filter) ([]model.ResearchRecord, error)
	// Delete removes the record for p and reports whether one existed.
	Delete(ctx context.Context, p model.Period) (bool, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Summary aggregates what is stored.
type Summary struct {
	TotalRecords      int                  `json:"total_research_count"`
	UniqueCompanies   int                  `json:"unique_companies"`
	UniquePeriods     int                  `json:"unique_periods"`
	TotalExtractions  int                  `json:"total_extractions"`
	AverageConfidence float64              `json:"average_confidence"`
	Companies         []string             `json:"companies"`
	Periods           []string             `json:"periods"`
	BySource          map[model.Source]int `json:"by_source"`
}

// Summarize computes a Summary over records.
func Summarize(records []model.ResearchRecord) Summary {
	companies := map[string]struct{}{}
	periods := map[string]struct{}{}
	var conf []float64
	s := Summary{TotalRecords: len(records), BySource: map[model.Source]int{}}

	for i := range records {
		r := &records[i]
		companies[r.Company] = struct{}{}
		periods[fmt.Sprintf("%s %d", r.Quarter, r.Year)] = struct{}{}
		s.BySource[r.Source]++
		for _, ind := range r.ExtractedData {
			conf = append(conf, ind.Confidence)
		}
	}

	s.TotalExtractions = len(conf)
	if len(conf) > 0 {
		s.AverageConfidence = math.Round(stat.Mean(conf, nil)*100) / 100
	}
	s.Companies = sortedKeys(companies)
	s.Periods = sortedKeys(periods)
	s.UniqueCompanies = len(s.Companies)
	s.UniquePeriods = len(s.Periods)
	return s
}

// SummaryOf loads every record from st and summarizes it.
func SummaryOf(ctx context.Context, st Store) (Summary, error) {
	recs, err := st.GetAll(ctx, Filter{})
	if err != nil {
		return Summary{}, eris.Wrap(err, "store: summary")
	}
	return Summarize(recs), nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortRecords orders records by company, year, then quarter.
func sortRecords(recs []model.ResearchRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Company != b.Company {
			return a.Company < b.Company
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Quarter < b.Quarter
	})
}
