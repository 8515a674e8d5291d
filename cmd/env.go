package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/cache"
	"github.com/sells-group/finresearch/internal/company"
	"github.com/sells-group/finresearch/internal/extract"
	"github.com/sells-group/finresearch/internal/research"
	"github.com/sells-group/finresearch/internal/source"
	"github.com/sells-group/finresearch/internal/store"
	"github.com/sells-group/finresearch/internal/validate"
	"github.com/sells-group/finresearch/pkg/perplexity"
)

// researchEnv holds the store, registry, cache and orchestrator needed by
// the research/batch/serve commands.
type researchEnv struct {
	Store        store.Store
	Registry     *company.Registry
	Cache        *cache.FileCache // nil when caching is disabled
	Orchestrator *research.Orchestrator
}

// Close releases resources held by the environment.
func (e *researchEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store. Callers own the returned Store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initCache opens the response cache, or returns nil when it is disabled.
func initCache() (*cache.FileCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		return nil, eris.Wrap(err, "init cache")
	}
	return c, nil
}

// initEnv validates the config for mode and wires every component. Callers
// should defer env.Close().
func initEnv(ctx context.Context, mode string) (*researchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg, err := company.NewRegistry(cfg.Companies.CustomFile)
	if err != nil {
		return nil, eris.Wrap(err, "init registry")
	}

	fc, err := initCache()
	if err != nil {
		return nil, err
	}
	var respCache source.ResponseCache
	if fc != nil {
		respCache = fc
	}

	ex, err := extract.New()
	if err != nil {
		return nil, eris.Wrap(err, "init extractor")
	}
	v := validate.New(cfg.Validation)

	var primary, fallback source.Adapter
	if cfg.Perplexity.Key != "" {
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithHTTPClient(&http.Client{Timeout: cfg.Perplexity.Timeout()}),
		)
		primary = source.NewAIAdapter(client, ex, v, respCache, source.AIConfig{
			Model:             cfg.Perplexity.Model,
			FinanceDomain:     cfg.Perplexity.FinanceDomain,
			RecencyFilter:     cfg.Perplexity.RecencyFilter,
			RequestsPerMinute: cfg.Perplexity.RequestsPerMinute,
			Timeout:           cfg.Perplexity.Timeout(),
			Retry:             cfg.Perplexity.Retry(),
		})
	} else {
		zap.L().Warn("perplexity key not set, AI source disabled")
	}
	if cfg.Portal.Enabled {
		fallback = source.NewPortalAdapter(reg, respCache, source.PortalConfig{
			Timeout:           cfg.Portal.Timeout(),
			UserAgent:         cfg.Portal.UserAgent,
			RequestsPerSecond: cfg.Portal.RequestsPerSecond,
			Burst:             cfg.Portal.Burst,
			Retry:             cfg.Portal.Retry(),
			Breaker:           cfg.Portal.Breaker(),
		})
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	orch := research.New(st, source.NewSelector(primary, fallback), v,
		research.WithDelay(cfg.Research.Delay()),
	)

	zap.L().Debug("research environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("ai", primary != nil),
		zap.Bool("portal", fallback != nil),
		zap.Bool("cache", fc != nil),
	)

	return &researchEnv{
		Store:        st,
		Registry:     reg,
		Cache:        fc,
		Orchestrator: orch,
	}, nil
}
