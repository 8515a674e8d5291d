package source

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/finresearch/internal/cache"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/resilience"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Resolver maps a company name to its quarterly results page.
type Resolver interface {
	QuarterlyURL(name string) (string, error)
}

// PortalConfig tunes the portal adapter.
type PortalConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Retry             resilience.RetryConfig
	Breaker           resilience.CircuitBreakerConfig
}

// PortalAdapter scrapes the quarterly results table of the Moneycontrol
// portal.
type PortalAdapter struct {
	resolver Resolver
	http     *resty.Client
	cache    ResponseCache
	breaker  *resilience.CircuitBreaker
	limiter  *resilience.AdaptiveLimiter
	retry    resilience.RetryConfig
}

// NewPortalAdapter builds the adapter. pageCache may be nil.
func NewPortalAdapter(resolver Resolver, pageCache ResponseCache, cfg PortalConfig) *PortalAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "moneycontrol"
	}
	if cfg.Breaker.ShouldTrip == nil {
		cfg.Breaker.ShouldTrip = resilience.IsTransient
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("moneycontrol", "fetch_page")
	}

	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	return &PortalAdapter{
		resolver: resolver,
		http:     hc,
		cache:    pageCache,
		breaker:  resilience.NewCircuitBreaker(cfg.Breaker),
		limiter:  resilience.NewAdaptiveLimiter(cfg.RequestsPerSecond, cfg.Burst),
		retry:    cfg.Retry,
	}
}

// Name implements Adapter.
func (a *PortalAdapter) Name() model.Source { return model.SourceScrape }

// Fetch implements Adapter. A period missing from the page gives an empty
// result and no error.
func (a *PortalAdapter) Fetch(ctx context.Context, p model.Period) (*model.ExtractionResult, error) {
	url, err := a.resolver.QuarterlyURL(p.Company)
	if err != nil {
		return nil, eris.Wrap(err, "source: resolve portal url")
	}

	page, err := a.page(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "source: portal fetch %s", p)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "source: parse portal page")
	}

	tables := parseTables(doc)
	res := model.NewResult(p, model.SourceScrape)
	if set := tables.lookup(p); len(set) > 0 {
		res.ExtractedData = set
		res.ContextConfidence = portalConfidence
	}

	zap.L().Info("source: portal extraction",
		zap.String("period", p.String()),
		zap.Int("periods_on_page", len(tables)),
		zap.Int("indicators", len(res.ExtractedData)),
	)
	return res, nil
}

func (a *PortalAdapter) page(ctx context.Context, url string) (string, error) {
	params := cache.Params{"url": url}
	if a.cache != nil {
		if raw, ok := a.cache.Get(params); ok {
			var html string
			if err := json.Unmarshal(raw, &html); err == nil {
				return html, nil
			}
		}
	}

	html, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (string, error) {
			return a.get(ctx, url)
		})
	})
	if err != nil {
		return "", err
	}

	if a.cache != nil {
		if err := a.cache.Set(params, html); err != nil {
			zap.L().Warn("source: cache portal page", zap.String("url", url), zap.Error(err))
		}
	}
	return html, nil
}

func (a *PortalAdapter) get(ctx context.Context, url string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	zap.L().Debug("source: fetching portal page", zap.String("url", url))

	resp, err := a.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", eris.Wrapf(err, "source: get %s", url)
	}

	code := resp.StatusCode()
	if code == http.StatusTooManyRequests {
		a.limiter.OnRateLimit()
	}
	if code < 200 || code > 299 {
		err := eris.Errorf("source: get %s: status %d", url, code)
		if resilience.IsTransientHTTPStatus(code) {
			return "", resilience.NewTransientError(err, code)
		}
		return "", err
	}
	a.limiter.OnSuccess()
	return string(decodeBody(resp.Body(), resp.Header().Get("Content-Type"))), nil
}

// decodeBody converts a non-UTF-8 page to UTF-8 using the charset named in
// the Content-Type header. Unknown charsets are passed through.
func decodeBody(body []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	cs := params["charset"]
	if cs == "" || strings.EqualFold(cs, "utf-8") {
		return body
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		zap.L().Debug("source: unknown charset", zap.String("charset", cs))
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}
