package extract

import (
	"fmt"

	"github.com/sells-group/finresearch/internal/model"
)

// Building blocks shared by the cascades. Every pattern has exactly one
// capture group: the number.
const (
	num       = `(\d+(?:,\d+)*(?:\.\d+)?)`
	signedNum = `(-?\s*\(?\d+(?:,\d+)*(?:\.\d+)?\)?)`
	curr      = `(?:Rs\.?\s*|₹\s*|INR\s*)?`
	crore     = `(?:crores?|cr\b\.?)`
	notPct    = `(?!\s*%)(?![\d.,])`
)

func word(labels string) string { return `\b(?:` + labels + `)\b` }

// **PBT (Profit Before Tax):** ₹1,234
func bold(labels string) string {
	return fmt.Sprintf(`\*\*\s*%s[^*\n]*\*\*\s*:?\s*%s%s`, word(labels), curr, num)
}

// | Total Income | 5,000 |
func tableRow(labels, n string) string {
	return fmt.Sprintf(`\|\s*\**\s*%s[^|\n]*?\|\s*\**\s*%s%s%s`, word(labels), curr, n, notPct)
}

// EBITDA rose to ₹1,350 crore
func labelCrore(labels string) string {
	return fmt.Sprintf(`%s[^\n]*?%s\s*%s\s*%s`, word(labels), curr, num, crore)
}

// Employee cost: 2,000
func labelAmount(labels, n string) string {
	return fmt.Sprintf(`%s[:\s|]+%s%s%s`, word(labels), curr, n, notPct)
}

// 1,350 crore of EBITDA
func croreLabel(labels string) string {
	return fmt.Sprintf(`%s\s*%s[^\n]*?%s`, num, crore, word(labels))
}

// net profit for the quarter was 780
//
// The amount may not start inside a token such as "Q1" or "FY25".
func loose(labels string) string {
	return fmt.Sprintf(`%s[^\n]*?%s(?<![A-Za-z\d])%s%s`, word(labels), curr, num, notPct)
}

// EBITDA margin of 27%
func pctAfter(labels string) string {
	return fmt.Sprintf(`%s[^\n]*?%s\s*%%`, word(labels), num)
}

// 27% EBITDA margin
func pctBefore(labels string) string {
	return fmt.Sprintf(`%s\s*%%[^\n]*?%s`, num, word(labels))
}

const (
	incomeLabels       = `total income from operations|total income|total revenue|revenue from operations|revenue|net sales|sales`
	ebitdaLabels       = `operating ebitda|ebitda|pbdit`
	ebitLabels         = `operating ebit|ebit|pbit`
	pbtLabels          = `pbt|profit before tax(?:es)?|profit/\(loss\) before tax`
	patLabels          = `pat|profit after tax|net profit`
	employeeLabels     = `employee (?:benefits? )?(?:costs?|expenses?)|personnel costs?|staff costs?`
	otherExpenseLabels = `other expenses|other expenditure|operating expenses|other costs`
	depreciationLabels = `depreciation(?: (?:and|&) amorti[sz]ation)?|amorti[sz]ation|d&a`
	interestLabels     = `finance costs?|interest expenses?|interest`
	otherIncomeLabels  = `other income|non-operating income`
	taxLabels          = `(?<!before\s)(?<!after\s)(?:tax expenses?|income tax|taxation|tax)(?!\s*\))`
	purchaseLabels     = `purchases? of (?:stock-in-trade|traded goods)`
	stockChangeLabels  = `increase/decrease in stocks?|changes? in inventor(?:y|ies)[^|:\n]*|stock adjustments?`
	epsLabels          = `basic eps|diluted eps|eps|earnings per share`
)

// defaultCascades lists each indicator's patterns from most to least
// specific. Position in the list sets the confidence of a match.
func defaultCascades() map[model.IndicatorName][]string {
	return map[model.IndicatorName][]string{
		model.TotalIncome: {
			tableRow(incomeLabels, num),
			labelCrore(incomeLabels),
			croreLabel(`total income|revenue`),
			fmt.Sprintf(`%s[^\n]*?stood at[^\n]*?%s\s*%s`, word(`income|revenue`), num, crore),
			loose(`total revenue|revenue|sales`),
		},
		model.EBITDA: {
			tableRow(ebitdaLabels, num),
			labelCrore(ebitdaLabels),
			croreLabel(`ebitda`),
			fmt.Sprintf(`%s[^\n]*?stood at[^\n]*?%s\s*%s`, word(`ebitda`), num, crore),
			loose(`ebitda`),
		},
		model.EBIT: {
			bold(ebitLabels),
			tableRow(ebitLabels, num),
			labelCrore(ebitLabels),
			croreLabel(`ebit`),
			labelAmount(ebitLabels, num),
		},
		model.PBT: {
			bold(pbtLabels),
			tableRow(pbtLabels, num),
			labelCrore(pbtLabels),
			`(?m)^[^\n]*?` + labelAmount(`pbt`, num),
			croreLabel(`pbt`),
		},
		model.PAT: {
			bold(patLabels),
			tableRow(patLabels, num),
			labelCrore(patLabels),
			croreLabel(`pat|net profit`),
			loose(`net profit`),
		},
		model.EmployeeCost: {
			bold(employeeLabels),
			tableRow(employeeLabels, num),
			labelCrore(employeeLabels),
			labelAmount(employeeLabels, num),
			croreLabel(`(?:employee|personnel|staff) (?:costs?|expenses?)`),
		},
		model.OtherExpenses: {
			bold(otherExpenseLabels),
			tableRow(otherExpenseLabels, num),
			labelCrore(otherExpenseLabels),
			labelAmount(otherExpenseLabels, num),
			croreLabel(`other expenses`),
		},
		model.Depreciation: {
			bold(depreciationLabels),
			tableRow(depreciationLabels, num),
			labelCrore(depreciationLabels),
			labelAmount(depreciationLabels, num),
			croreLabel(`depreciation`),
		},
		model.Interest: {
			bold(interestLabels),
			tableRow(interestLabels, num),
			labelCrore(interestLabels),
			labelAmount(interestLabels, num),
			croreLabel(`interest|finance costs?`),
		},
		model.OtherIncome: {
			bold(otherIncomeLabels),
			tableRow(otherIncomeLabels, num),
			labelCrore(otherIncomeLabels),
			labelAmount(otherIncomeLabels, num),
			croreLabel(`other income`),
		},
		model.Tax: {
			tableRow(taxLabels, num),
			labelCrore(taxLabels),
			croreLabel(taxLabels),
			labelAmount(taxLabels, num),
		},
		model.PurchaseTradedGoods: {
			tableRow(purchaseLabels, num),
			labelCrore(purchaseLabels),
			labelAmount(purchaseLabels, num),
		},
		model.StockChange: {
			tableRow(stockChangeLabels, signedNum),
			labelAmount(stockChangeLabels, signedNum),
		},
		model.EBITDAMargin: {
			pctAfter(`ebitda margin|operating margin`),
			pctBefore(`ebitda margin|operating margin`),
		},
		model.EBITMargin: {
			pctAfter(`ebit margin`),
			pctBefore(`ebit margin`),
		},
		model.ProfitMargin: {
			pctAfter(`net profit margin|profit margin|net margin|pat margin`),
			pctBefore(`net profit margin|profit margin|net margin|pat margin`),
		},
		model.EPS: {
			tableRow(epsLabels, num),
			fmt.Sprintf(`%s[^\n]*?(?:Rs\.?\s*|₹\s*)?%s`, word(epsLabels), num),
			fmt.Sprintf(`(?:Rs\.?\s*|₹\s*)?%s[^\n]*?%s`, num, word(epsLabels)),
		},
	}
}
