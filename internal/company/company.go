// Package company holds the registry of companies the portal adapter can
// resolve to Moneycontrol result pages.
package company

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/finresearch/internal/fsutil"
)

const baseURL = "https://www.moneycontrol.com"

// Company is a Moneycontrol listing.
type Company struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Slug     string `yaml:"slug" json:"slug" validate:"required,lowercase"`
	Code     string `yaml:"code" json:"code" validate:"required,alphanum"`
	Sector   string `yaml:"sector" json:"sector"`
	FullName string `yaml:"full_name" json:"full_name"`
}

// Page is a Moneycontrol page type.
type Page string

const (
	PageQuarterly    Page = "quarterly"
	PageProfitLoss   Page = "profit-loss"
	PageBalanceSheet Page = "balance-sheet"
	PageRatios       Page = "ratios"
	PageStock        Page = "stock"
)

// URL returns the Moneycontrol address of page for c.
func (c Company) URL(page Page) (string, error) {
	switch page {
	case PageQuarterly:
		return fmt.Sprintf("%s/financials/%s/results/quarterly-results/%s", baseURL, c.Slug, c.Code), nil
	case PageProfitLoss:
		return fmt.Sprintf("%s/financials/%s/profit-lossVI/%s", baseURL, c.Slug, c.Code), nil
	case PageBalanceSheet:
		return fmt.Sprintf("%s/financials/%s/balance-sheetVI/%s", baseURL, c.Slug, c.Code), nil
	case PageRatios:
		return fmt.Sprintf("%s/financials/%s/ratiosVI/%s", baseURL, c.Slug, c.Code), nil
	case PageStock:
		return fmt.Sprintf("%s/india/stockpricequote/%s/%s/%s", baseURL, c.Sector, c.Slug, c.Code), nil
	}
	return "", eris.Errorf("company: unknown page type %q", page)
}

// Sentinel errors for registry edits.
var (
	ErrNotFound  = eris.New("company: not found")
	ErrExists    = eris.New("company: already exists")
	ErrProtected = eris.New("company: default companies cannot be removed")
)

// Registry is the default company list plus custom entries persisted to a
// YAML file. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	companies  map[string]Company
	customPath string
	validate   *validator.Validate
}

// NewRegistry loads the defaults and, when customPath exists, the custom
// companies stored there. An empty customPath keeps additions in memory.
func NewRegistry(customPath string) (*Registry, error) {
	r := &Registry{
		companies:  make(map[string]Company, len(defaults)),
		customPath: customPath,
		validate:   validator.New(),
	}
	for _, c := range defaults {
		r.companies[c.Name] = c
	}
	if err := r.loadCustom(); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup finds a company by exact name, then case-insensitively.
func (r *Registry) Lookup(name string) (Company, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.companies[name]; ok {
		return c, true
	}
	for n, c := range r.companies {
		if strings.EqualFold(n, name) {
			return c, true
		}
	}
	return Company{}, false
}

// QuarterlyURL returns the quarterly results page for the named company.
func (r *Registry) QuarterlyURL(name string) (string, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return "", eris.Wrapf(ErrNotFound, "company: %s", name)
	}
	return c.URL(PageQuarterly)
}

// Names returns the default companies in registry order followed by custom
// ones sorted by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.companies))
	for _, c := range defaults {
		names = append(names, c.Name)
	}
	var custom []string
	for n := range r.companies {
		if !IsDefault(n) {
			custom = append(custom, n)
		}
	}
	sort.Strings(custom)
	return append(names, custom...)
}

// All returns every company in Names order.
func (r *Registry) All() []Company {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Company, 0, len(names))
	for _, n := range names {
		out = append(out, r.companies[n])
	}
	return out
}

// Add registers a custom company and persists the custom set.
func (r *Registry) Add(c Company) error {
	if c.Sector == "" {
		c.Sector = "computers-software"
	}
	if c.FullName == "" {
		c.FullName = c.Name + " Ltd."
	}
	if err := r.validate.Struct(c); err != nil {
		return eris.Wrap(err, "company: invalid entry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[c.Name]; ok {
		return eris.Wrapf(ErrExists, "company: %s", c.Name)
	}
	r.companies[c.Name] = c
	if err := r.saveCustom(); err != nil {
		delete(r.companies, c.Name)
		return err
	}
	zap.L().Info("company: added", zap.String("company", c.Name))
	return nil
}

// Remove deletes a custom company. Default companies are protected.
func (r *Registry) Remove(name string) error {
	if IsDefault(name) {
		return eris.Wrapf(ErrProtected, "company: %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[name]
	if !ok {
		return eris.Wrapf(ErrNotFound, "company: %s", name)
	}
	delete(r.companies, name)
	if err := r.saveCustom(); err != nil {
		r.companies[name] = c
		return err
	}
	zap.L().Info("company: removed", zap.String("company", name))
	return nil
}

type customFile struct {
	Companies []Company `yaml:"companies"`
}

func (r *Registry) loadCustom() error {
	if r.customPath == "" {
		return nil
	}
	data, err := os.ReadFile(r.customPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "company: read %s", r.customPath)
	}

	var f customFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return eris.Wrapf(err, "company: parse %s", r.customPath)
	}
	for _, c := range f.Companies {
		if err := r.validate.Struct(c); err != nil {
			zap.L().Warn("company: skipping invalid custom entry",
				zap.String("company", c.Name), zap.Error(err))
			continue
		}
		r.companies[c.Name] = c
	}
	zap.L().Debug("company: loaded custom companies",
		zap.String("path", r.customPath), zap.Int("count", len(f.Companies)))
	return nil
}

// saveCustom must be called with mu held.
func (r *Registry) saveCustom() error {
	if r.customPath == "" {
		return nil
	}
	var f customFile
	for n, c := range r.companies {
		if !IsDefault(n) {
			f.Companies = append(f.Companies, c)
		}
	}
	sort.Slice(f.Companies, func(i, j int) bool { return f.Companies[i].Name < f.Companies[j].Name })

	data, err := yaml.Marshal(f)
	if err != nil {
		return eris.Wrap(err, "company: marshal custom companies")
	}
	return fsutil.WriteFileAtomic(r.customPath, data, 0o644)
}
