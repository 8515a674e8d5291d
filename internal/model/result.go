package model

import "time"

// Source names where an ExtractionResult came from.
type Source string

const (
	SourceAI     Source = "Perplexity AI"
	SourceScrape Source = "Moneycontrol"
	SourceNone   Source = "None"
)

// ExtractionResult is what a source produced for one period.
type ExtractionResult struct {
	Company             string       `json:"company"`
	Quarter             Quarter      `json:"quarter"`
	Year                int          `json:"year"`
	ExtractedData       IndicatorSet `json:"extracted_data"`
	ContextConfidence   float64      `json:"context_confidence"`
	RawText             string       `json:"raw_text,omitempty"`
	Source              Source       `json:"source"`
	IsFallback          bool         `json:"is_fallback"`
	FallbackMessage     string       `json:"fallback_message,omitempty"`
	PrimarySourceFailed Source       `json:"primary_source_failed,omitempty"`
	Error               string       `json:"error,omitempty"`
}

// NewResult returns an empty result for period.
func NewResult(p Period, src Source) *ExtractionResult {
	return &ExtractionResult{
		Company:       p.Company,
		Quarter:       p.Quarter,
		Year:          p.Year,
		ExtractedData: IndicatorSet{},
		Source:        src,
	}
}

// Period returns the period the result describes.
func (r *ExtractionResult) Period() Period {
	return Period{Company: r.Company, Quarter: r.Quarter, Year: r.Year}
}

// Empty reports whether no indicator was extracted.
func (r *ExtractionResult) Empty() bool {
	return r == nil || len(r.ExtractedData) == 0
}

// ResearchStatus summarizes a research outcome.
type ResearchStatus string

const (
	StatusSuccess ResearchStatus = "success"
	StatusNoData  ResearchStatus = "no_data"
	StatusFailed  ResearchStatus = "failed"
)

// ValidationReport lists what the validators found. Valid is false only
// when Errors is non-empty.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationReport returns a passing report with empty lists.
func NewValidationReport() ValidationReport {
	return ValidationReport{Valid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError appends a hard failure.
func (r *ValidationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning appends a soft finding.
func (r *ValidationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// ResearchRecord is the persisted unit: the source result plus everything
// computed from it.
type ResearchRecord struct {
	ID string `json:"id"`
	ExtractionResult
	Status       ResearchStatus    `json:"status"`
	Validation   *ValidationReport `json:"validation,omitempty"`
	Derived      *QuarterlyRecord  `json:"derived,omitempty"`
	ResearchedAt time.Time         `json:"researched_at"`
	SavedAt      time.Time         `json:"save_timestamp"`
	Version      string            `json:"version"`
}

// RecordVersion is stamped on every saved ResearchRecord.
const RecordVersion = "2.0"
