package source

import (
	"strings"

	"github.com/sells-group/finresearch/internal/model"
)

type aliasGroup struct {
	name    model.IndicatorName
	aliases []string
}

// Row labels used on the portal's results tables. Order decides ties in the
// fuzzy pass.
var portalAliases = []aliasGroup{
	{model.TotalIncome, []string{"total income from operations", "total income", "total revenue",
		"revenue from operations", "net sales", "sales"}},
	{model.PurchaseTradedGoods, []string{"purchase of traded goods", "purchases of stock-in-trade", "purchase of stock-in-trade"}},
	{model.StockChange, []string{"increase/decrease in stocks", "changes in inventories", "change in inventories"}},
	{model.EBITDA, []string{"ebitda", "operating ebitda", "pbdit"}},
	{model.EBIT, []string{"ebit", "operating ebit", "pbit", "p/l before int., excpt. items & tax"}},
	{model.PBT, []string{"p/l before tax", "pbt", "profit before tax", "profit/(loss) before tax"}},
	{model.PAT, []string{"net profit/(loss) for the period", "pat", "profit after tax", "net profit",
		"profit/(loss) for the period"}},
	{model.EmployeeCost, []string{"employees cost", "employee cost", "employee benefit expense",
		"employee benefits expense", "personnel cost", "staff cost"}},
	{model.OtherExpenses, []string{"other expenses", "other expenditure", "operating expenses"}},
	{model.Depreciation, []string{"depreciation", "depreciation and amortisation", "depreciation and amortization expenses", "d&a"}},
	{model.Interest, []string{"interest", "finance cost", "finance costs", "interest expense"}},
	{model.OtherIncome, []string{"other income", "non-operating income"}},
	{model.Tax, []string{"tax", "tax expense", "income tax", "taxation", "current tax"}},
	{model.EPS, []string{"basic eps", "eps", "diluted eps", "earnings per share"}},
}

type matchKind int

const (
	noMatch matchKind = iota
	fuzzyMatch
	exactMatch
)

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// matchIndicator maps a row label to an indicator. Exact alias hits win
// over fuzzy ones, so "Tax" is never read as "Profit Before Tax".
func matchIndicator(label string) (model.IndicatorName, matchKind) {
	text := normalizeLabel(label)
	if text == "" {
		return "", noMatch
	}
	for _, g := range portalAliases {
		for _, a := range g.aliases {
			if text == a {
				return g.name, exactMatch
			}
		}
	}
	for _, g := range portalAliases {
		for _, a := range g.aliases {
			if strings.Contains(text, a) || strings.Contains(a, text) {
				return g.name, fuzzyMatch
			}
			if len(a) > 5 && strings.Contains(text, a[:5]) {
				return g.name, fuzzyMatch
			}
		}
	}
	return "", noMatch
}
