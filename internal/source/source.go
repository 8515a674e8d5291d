// Package source fetches quarterly figures from the AI research endpoint and
// the Moneycontrol results portal, and picks between them.
package source

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/sells-group/finresearch/internal/cache"
	"github.com/sells-group/finresearch/internal/model"
)

// Adapter produces an ExtractionResult for one period. A nil error with an
// empty result means the source had nothing for that period.
type Adapter interface {
	Name() model.Source
	Fetch(ctx context.Context, p model.Period) (*model.ExtractionResult, error)
}

// ResponseCache is the subset of cache.FileCache the adapters use.
type ResponseCache interface {
	Get(p cache.Params) (json.RawMessage, bool)
	Set(p cache.Params, response any) error
}
