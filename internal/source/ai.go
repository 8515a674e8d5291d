package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/cache"
	"github.com/sells-group/finresearch/internal/extract"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/resilience"
	"github.com/sells-group/finresearch/internal/validate"
	"github.com/sells-group/finresearch/pkg/perplexity"
)

const (
	systemPrompt = "You are a financial data expert. Provide precise numerical data with sources " +
		"from reliable financial databases and official filings."
	financeHint = " Focus on financial metrics, quarterly results, and company financials from sources " +
		"like MoneyControl, Screener.in, BSE, NSE, and official company reports."
)

var requestedIndicators = []string{
	"Total Revenue/Total Income from Operations",
	"Purchase of Traded Goods",
	"Change in Inventories (Stock)",
	"Employee Cost",
	"Other Expenses",
	"EBITDA",
	"Depreciation",
	"EBIT",
	"Interest",
	"Other Income",
	"PBT",
	"Tax",
	"PAT",
}

// AIConfig tunes the AI adapter.
type AIConfig struct {
	Model             string
	FinanceDomain     bool
	RecencyFilter     string
	RequestsPerMinute int
	Timeout           time.Duration
	Retry             resilience.RetryConfig
}

// AIAdapter asks the Perplexity chat endpoint for a period's results and
// runs the answer through extraction and context validation.
type AIAdapter struct {
	client    perplexity.Client
	cache     ResponseCache
	limiter   *resilience.SlidingWindow
	extractor *extract.Extractor
	validator *validate.Validator
	cfg       AIConfig
}

// NewAIAdapter builds the adapter. respCache may be nil.
func NewAIAdapter(client perplexity.Client, ex *extract.Extractor, v *validate.Validator, respCache ResponseCache, cfg AIConfig) *AIAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RecencyFilter == "" {
		cfg.RecencyFilter = "month"
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = retryableAI
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("perplexity", "chat_completion")
	}
	return &AIAdapter{
		client:    client,
		cache:     respCache,
		limiter:   resilience.PerMinute(cfg.RequestsPerMinute),
		extractor: ex,
		validator: v,
		cfg:       cfg,
	}
}

// Any non-2xx answer is worth another try, as are timeouts.
func retryableAI(err error) bool {
	var apiErr *perplexity.APIError
	return errors.As(err, &apiErr) || resilience.IsTransient(err)
}

// Name implements Adapter.
func (a *AIAdapter) Name() model.Source { return model.SourceAI }

// BuildPrompt is the research question sent for p.
func BuildPrompt(p model.Period) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search for the quarterly financial data for %s for %s %s (quarter ending %s) from recent sources.\n\n",
		p.Company, p.Quarter, p.FiscalLabel(), p.QuarterEnd())
	b.WriteString("Please provide the following metrics (in INR Crores):\n")
	for _, ind := range requestedIndicators {
		b.WriteString("- " + ind + "\n")
	}
	b.WriteString("\nSource: Use the most recent data from MoneyControl, Screener.in, BSE/NSE filings, or official company announcements.\n")
	b.WriteString("Format: Please provide exact numerical values with units.")
	return b.String()
}

func (a *AIAdapter) systemPrompt() string {
	if a.cfg.FinanceDomain {
		return systemPrompt + financeHint
	}
	return systemPrompt
}

// Fetch implements Adapter.
func (a *AIAdapter) Fetch(ctx context.Context, p model.Period) (*model.ExtractionResult, error) {
	prompt := BuildPrompt(p)
	resp, err := a.query(ctx, prompt)
	if err != nil {
		return nil, eris.Wrapf(err, "source: ai query %s", p)
	}
	text, err := resp.Content()
	if err != nil {
		return nil, eris.Wrapf(err, "source: ai response %s", p)
	}

	res := model.NewResult(p, model.SourceAI)
	res.RawText = text
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	set := a.extractor.ExtractAll(text)
	set, notes := a.validator.Prune(set, text)
	conf := a.validator.ContextConfidence(text, p)
	res.ExtractedData = validate.ApplyContext(set, conf)
	res.ContextConfidence = conf

	zap.L().Info("source: ai extraction",
		zap.String("period", p.String()),
		zap.Int("indicators", len(res.ExtractedData)),
		zap.Int("pruned", len(notes)),
		zap.Float64("context_confidence", conf),
	)
	return res, nil
}

func (a *AIAdapter) query(ctx context.Context, prompt string) (*perplexity.ChatCompletionResponse, error) {
	params := cache.Params{"prompt": prompt, "model": a.cfg.Model}
	if a.cache != nil {
		if raw, ok := a.cache.Get(params); ok {
			var cached perplexity.ChatCompletionResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				zap.L().Debug("source: ai cache hit")
				return &cached, nil
			}
			zap.L().Warn("source: undecodable cached ai response, querying again")
		}
	}

	req := perplexity.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []perplexity.Message{
			{Role: "system", Content: a.systemPrompt()},
			{Role: "user", Content: prompt},
		},
		SearchRecencyFilter: a.cfg.RecencyFilter,
	}
	if a.cfg.FinanceDomain {
		req.SearchDomainFilter = []string{"finance"}
	}

	resp, err := resilience.DoVal(ctx, a.cfg.Retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		return a.client.ChatCompletion(attemptCtx, req)
	})
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(params, resp); err != nil {
			zap.L().Warn("source: cache ai response", zap.Error(err))
		}
	}
	return resp, nil
}
