package source

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/model"
)

const noDataMessage = "No data available from any source"

// Selector tries the AI adapter first and the portal second. Either may be
// nil when it is not configured.
type Selector struct {
	primary  Adapter
	fallback Adapter
}

// NewSelector returns a Selector over primary and fallback.
func NewSelector(primary, fallback Adapter) *Selector {
	return &Selector{primary: primary, fallback: fallback}
}

// Select returns the first non-empty result. It never fails: adapter errors
// and panics are logged and an empty result with Source None is returned
// when nothing produced data.
func (s *Selector) Select(ctx context.Context, p model.Period) *model.ExtractionResult {
	if s.primary != nil {
		if res, ok := attempt(ctx, s.primary, p); ok {
			return res
		}
	}

	if s.fallback != nil {
		if res, ok := attempt(ctx, s.fallback, p); ok {
			res.IsFallback = true
			res.PrimarySourceFailed = model.SourceAI
			res.FallbackMessage = fmt.Sprintf("Using %s data (Perplexity unavailable)", res.Source)
			return res
		}
	}

	zap.L().Warn("source: no data from any source", zap.String("period", p.String()))
	res := model.NewResult(p, model.SourceNone)
	res.Error = noDataMessage
	return res
}

func attempt(ctx context.Context, a Adapter, p model.Period) (res *model.ExtractionResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("source: adapter panic",
				zap.String("source", string(a.Name())),
				zap.String("period", p.String()),
				zap.Error(eris.Errorf("panic: %v", r)),
			)
			res, ok = nil, false
		}
	}()

	res, err := a.Fetch(ctx, p)
	if err != nil {
		zap.L().Warn("source: adapter failed",
			zap.String("source", string(a.Name())),
			zap.String("period", p.String()),
			zap.Error(err),
		)
		return nil, false
	}
	if res.Empty() {
		zap.L().Info("source: adapter returned no data",
			zap.String("source", string(a.Name())),
			zap.String("period", p.String()),
		)
		return nil, false
	}
	return res, true
}
