package store

import (
	"time"

	"github.com/sells-group/finresearch/internal/model"
)

func record(company string, q model.Quarter, year int, conf ...float64) *model.ResearchRecord {
	p := model.Period{Company: company, Quarter: q, Year: year}
	res := model.NewResult(p, model.SourceAI)
	names := []model.IndicatorName{model.TotalIncome, model.EBITDA, model.PAT}
	for i, c := range conf {
		res.ExtractedData[names[i]] = model.Indicator{Value: float64(1000 * (i + 1)), Confidence: c}
	}
	res.ContextConfidence = 1
	return &model.ResearchRecord{
		ID:               "rec-" + p.Key(),
		ExtractionResult: *res,
		Status:           model.StatusSuccess,
		ResearchedAt:     time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
		SavedAt:          time.Date(2025, 2, 1, 10, 0, 1, 0, time.UTC),
		Version:          model.RecordVersion,
	}
}
