package company

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("")
	require.NoError(t, err)

	c, ok := r.Lookup("Infosys")
	require.True(t, ok)
	assert.Equal(t, "IT", c.Code)

	c, ok = r.Lookup("tech mahindra")
	require.True(t, ok)
	assert.Equal(t, "TM4", c.Code)

	_, ok = r.Lookup("Unknown Corp")
	assert.False(t, ok)
}

func TestQuarterlyURL(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("")
	require.NoError(t, err)

	url, err := r.QuarterlyURL("TCS")
	require.NoError(t, err)
	assert.Equal(t, "https://www.moneycontrol.com/financials/tataconsultancyservices/results/quarterly-results/TCS", url)

	_, err = r.QuarterlyURL("Nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompanyURL(t *testing.T) {
	t.Parallel()

	c := Company{Name: "Wipro", Slug: "wipro", Code: "W", Sector: "computers-software"}
	tests := []struct {
		page Page
		want string
	}{
		{PageProfitLoss, "https://www.moneycontrol.com/financials/wipro/profit-lossVI/W"},
		{PageBalanceSheet, "https://www.moneycontrol.com/financials/wipro/balance-sheetVI/W"},
		{PageRatios, "https://www.moneycontrol.com/financials/wipro/ratiosVI/W"},
		{PageStock, "https://www.moneycontrol.com/india/stockpricequote/computers-software/wipro/W"},
	}
	for _, tt := range tests {
		got, err := c.URL(tt.page)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := c.URL("dividends")
	assert.Error(t, err)
}

func TestDefaultTargets(t *testing.T) {
	t.Parallel()

	targets := DefaultTargets()
	assert.Len(t, targets, 13)
	assert.NotContains(t, targets, "HCL Tech")
	assert.Equal(t, "TCS", targets[0])
	assert.True(t, IsDefault("HCL Tech"))
}

func TestAddRemove_Persists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom_companies.yaml")
	r, err := NewRegistry(path)
	require.NoError(t, err)

	require.NoError(t, r.Add(Company{Name: "KPIT", Slug: "kpittechnologies", Code: "KPI02"}))
	assert.ErrorIs(t, r.Add(Company{Name: "KPIT", Slug: "kpittechnologies", Code: "KPI02"}), ErrExists)

	names := r.Names()
	assert.Equal(t, "KPIT", names[len(names)-1])

	reloaded, err := NewRegistry(path)
	require.NoError(t, err)
	c, ok := reloaded.Lookup("KPIT")
	require.True(t, ok)
	assert.Equal(t, "KPIT Ltd.", c.FullName)
	assert.Equal(t, "computers-software", c.Sector)
	assert.Len(t, reloaded.All(), 15)

	require.NoError(t, reloaded.Remove("KPIT"))
	assert.ErrorIs(t, reloaded.Remove("KPIT"), ErrNotFound)
	assert.ErrorIs(t, reloaded.Remove("TCS"), ErrProtected)

	again, err := NewRegistry(path)
	require.NoError(t, err)
	_, ok = again.Lookup("KPIT")
	assert.False(t, ok)
}

func TestAdd_Invalid(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry("")
	require.NoError(t, err)
	assert.Error(t, r.Add(Company{Name: "Bad", Slug: "Has Spaces", Code: "X"}))
	assert.Error(t, r.Add(Company{Name: "NoCode", Slug: "nocode"}))
}

func TestNewRegistry_BadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("companies: [unterminated"), 0o644))
	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestNewRegistry_SkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	yml := `companies:
  - name: Mastek
    slug: mastek
    code: M
  - name: Broken
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	r, err := NewRegistry(path)
	require.NoError(t, err)

	_, ok := r.Lookup("Mastek")
	assert.True(t, ok)
	_, ok = r.Lookup("Broken")
	assert.False(t, ok)
}
