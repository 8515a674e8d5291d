package resilience

import (
	"time"

	"github.com/sells-group/finresearch/internal/model"
)

// Error classes recorded on a DLQEntry.
const (
	ErrorTransient = "transient"
	ErrorPermanent = "permanent"
)

// DLQEntry is a research item that failed and can be queued again.
type DLQEntry struct {
	Period    model.Period `json:"period"`
	Error     string       `json:"error"`
	ErrorType string       `json:"error_type"`
	FailedAt  time.Time    `json:"failed_at"`
}

// NewDLQEntry records err against period.
func NewDLQEntry(period model.Period, err error, at time.Time) DLQEntry {
	return DLQEntry{
		Period:    period,
		Error:     err.Error(),
		ErrorType: ClassifyError(err),
		FailedAt:  at,
	}
}

// Retryable reports whether the failure was transient.
func (e DLQEntry) Retryable() bool {
	return e.ErrorType == ErrorTransient
}

// ClassifyError labels err as transient or permanent.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return ErrorTransient
	}
	return ErrorPermanent
}

// RetryPeriods returns the periods of entries whose failure was transient.
func RetryPeriods(entries []DLQEntry) []model.Period {
	var out []model.Period
	for _, e := range entries {
		if e.Retryable() {
			out = append(out, e.Period)
		}
	}
	return out
}
