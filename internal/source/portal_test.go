package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/cache"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/resilience"
)

type staticResolver map[string]string

func (r staticResolver) QuarterlyURL(name string) (string, error) {
	if u, ok := r[name]; ok {
		return u, nil
	}
	return "", eris.Errorf("unknown company %s", name)
}

func fastPortalConfig() PortalConfig {
	return PortalConfig{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
		Retry:             resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}
}

func pageServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPortalAdapter_Fetch(t *testing.T) {
	t.Parallel()

	srv, _ := pageServer(t, http.StatusOK, tcsResultsPage)
	a := NewPortalAdapter(staticResolver{"TCS": srv.URL + "/tcs"}, nil, fastPortalConfig())

	res, err := a.Fetch(context.Background(), model.Period{Company: "TCS", Quarter: model.Q2, Year: 2025})
	require.NoError(t, err)

	assert.Equal(t, model.SourceScrape, res.Source)
	assert.Equal(t, portalConfidence, res.ContextConfidence)
	v, ok := res.ExtractedData.Value(model.TotalIncome)
	require.True(t, ok)
	assert.Equal(t, 64259.0, v)
	v, _ = res.ExtractedData.Value(model.PurchaseTradedGoods)
	assert.Equal(t, 1020.0, v)
}

func TestPortalAdapter_MissingPeriod(t *testing.T) {
	t.Parallel()

	srv, _ := pageServer(t, http.StatusOK, tcsResultsPage)
	a := NewPortalAdapter(staticResolver{"TCS": srv.URL}, nil, fastPortalConfig())

	res, err := a.Fetch(context.Background(), model.Period{Company: "TCS", Quarter: model.Q4, Year: 2023})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Zero(t, res.ContextConfidence)
}

func TestPortalAdapter_UnknownCompany(t *testing.T) {
	t.Parallel()

	a := NewPortalAdapter(staticResolver{}, nil, fastPortalConfig())
	_, err := a.Fetch(context.Background(), model.Period{Company: "Acme", Quarter: model.Q1, Year: 2025})
	assert.Error(t, err)
}

func TestPortalAdapter_StatusHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		wantHits int32
	}{
		{"server error retried", http.StatusServiceUnavailable, 2},
		{"not found not retried", http.StatusNotFound, 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := pageServer(t, tt.status, "nope")
			a := NewPortalAdapter(staticResolver{"TCS": srv.URL}, nil, fastPortalConfig())

			_, err := a.Fetch(context.Background(), model.Period{Company: "TCS", Quarter: model.Q1, Year: 2025})
			require.Error(t, err)
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestPortalAdapter_CircuitOpens(t *testing.T) {
	t.Parallel()

	srv, hits := pageServer(t, http.StatusBadGateway, "down")
	cfg := fastPortalConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker = resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}
	a := NewPortalAdapter(staticResolver{"TCS": srv.URL}, nil, cfg)

	p := model.Period{Company: "TCS", Quarter: model.Q1, Year: 2025}
	for i := 0; i < 4; i++ {
		_, err := a.Fetch(context.Background(), p)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, resilience.CircuitOpen, a.breaker.State())
}

func TestPortalAdapter_PageCache(t *testing.T) {
	t.Parallel()

	fc, err := cache.New(t.TempDir(), time.Hour)
	require.NoError(t, err)
	srv, hits := pageServer(t, http.StatusOK, tcsResultsPage)
	a := NewPortalAdapter(staticResolver{"TCS": srv.URL}, fc, fastPortalConfig())

	for _, q := range []model.Quarter{model.Q1, model.Q2, model.Q3} {
		res, err := a.Fetch(context.Background(), model.Period{Company: "TCS", Quarter: q, Year: 2025})
		require.NoError(t, err)
		assert.False(t, res.Empty(), q)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "€", string(decodeBody([]byte{0x80}, "text/html; charset=windows-1252")))
	assert.Equal(t, "plain", string(decodeBody([]byte("plain"), "text/html")))
	assert.Equal(t, "plain", string(decodeBody([]byte("plain"), "text/html; charset=klingon")))
	assert.Equal(t, "plain", string(decodeBody([]byte("plain"), "")))
}
