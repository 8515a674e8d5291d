package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/finresearch/internal/model"
)

const portalConfidence = 0.95

var (
	monthYearRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s*['’"]?\s*(\d{4}|\d{2})\b`)
	quarterRe   = regexp.MustCompile(`(?i)\bq([1-4])\s*(?:fy)?\s*['’"]?\s*(\d{4}|\d{2})?\b`)
	numberRe    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	croreRe   = regexp.MustCompile(`(?i)\bcr(?:ores?|s)?\b\.?`)
	lakhRe    = regexp.MustCompile(`(?i)\b(?:lakhs?|lacs?)\b`)
	millionRe = regexp.MustCompile(`(?i)\b(?:millions?|mn)\b`)
	billionRe = regexp.MustCompile(`(?i)\b(?:billions?|bn)\b`)
)

var placeholders = map[string]bool{"": true, "-": true, "--": true, "n/a": true, "na": true}

// fiscalPeriod is a quarter of the April-March year. Year is the fiscal year
// the quarter ends in; 0 when the header did not name one.
type fiscalPeriod struct {
	Quarter model.Quarter
	Year    int
}

func (fp fiscalPeriod) key() string {
	if fp.Year == 0 {
		return string(fp.Quarter)
	}
	return fmt.Sprintf("%s_%d", fp.Quarter, fp.Year)
}

func expandYear(s string) int {
	y, _ := strconv.Atoi(s)
	if y < 100 {
		y += 2000
	}
	return y
}

// parsePeriodHeader reads "Sep '24", "Dec 2023" or "Q2 FY25" style column
// headers. Month headers are calendar dates: Apr-Dec fall in the fiscal year
// ending the following March.
func parsePeriodHeader(h string) (fiscalPeriod, bool) {
	h = strings.TrimSpace(h)
	if m := monthYearRe.FindStringSubmatch(h); m != nil {
		cal := expandYear(m[2])
		switch strings.ToLower(m[1]) {
		case "jan", "feb", "mar":
			return fiscalPeriod{model.Q4, cal}, true
		case "apr", "may", "jun":
			return fiscalPeriod{model.Q1, cal + 1}, true
		case "jul", "aug", "sep":
			return fiscalPeriod{model.Q2, cal + 1}, true
		default:
			return fiscalPeriod{model.Q3, cal + 1}, true
		}
	}
	if m := quarterRe.FindStringSubmatch(h); m != nil {
		fp := fiscalPeriod{Quarter: model.Quarter("Q" + m[1])}
		if m[2] != "" {
			fp.Year = expandYear(m[2])
		}
		return fp, true
	}
	return fiscalPeriod{}, false
}

// parseCellValue turns a table cell into crores. ok is false for
// placeholders and text without a number.
func parseCellValue(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if placeholders[strings.ToLower(text)] {
		return 0, false
	}

	factor := 1.0
	switch {
	case croreRe.MatchString(text):
	case lakhRe.MatchString(text):
		factor = 0.01
	case millionRe.MatchString(text):
		factor = 0.1
	case billionRe.MatchString(text):
		factor = 100
	}

	neg := strings.Contains(text, "(") && strings.Contains(text, ")")
	cleaned := strings.NewReplacer(",", "", "(", "", ")", "", "₹", "", "$", "", "€", "", "£", "").Replace(text)
	m := numberRe.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if neg && v > 0 {
		v = -v
	}
	return v * factor, true
}

type cellValue struct {
	ind   model.Indicator
	match matchKind
}

// periodTable holds every indicator found on a page, keyed by fiscalPeriod.key.
type periodTable map[string]map[model.IndicatorName]cellValue

func (t periodTable) put(fp fiscalPeriod, name model.IndicatorName, v cellValue) {
	row, ok := t[fp.key()]
	if !ok {
		row = make(map[model.IndicatorName]cellValue)
		t[fp.key()] = row
	}
	// An exact label replaces a fuzzy one; otherwise the first row wins.
	if cur, ok := row[name]; ok && cur.match >= v.match {
		return
	}
	row[name] = v
}

// lookup returns the indicators for p. A column without a year only
// answers when no column names the year.
func (t periodTable) lookup(p model.Period) model.IndicatorSet {
	row, ok := t[fiscalPeriod{p.Quarter, p.Year}.key()]
	if !ok {
		row = t[fiscalPeriod{Quarter: p.Quarter}.key()]
	}
	set := model.IndicatorSet{}
	for n, v := range row {
		set[n] = v.ind
	}
	return set
}

func cellTexts(row *goquery.Selection) []string {
	var out []string
	row.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

// parseTables reads every <table> in doc. The header of a table is its
// first row carrying period tokens; rows before it are ignored.
func parseTables(doc *goquery.Document) periodTable {
	out := periodTable{}
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var cols map[int]fiscalPeriod
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := cellTexts(tr)
			if len(cells) == 0 {
				return
			}
			if cols == nil {
				cols = headerColumns(cells)
				return
			}
			name, kind := matchIndicator(cells[0])
			if kind == noMatch {
				return
			}
			for idx, fp := range cols {
				if idx >= len(cells) {
					continue
				}
				v, ok := parseCellValue(cells[idx])
				if !ok {
					continue
				}
				out.put(fp, name, cellValue{
					ind: model.Indicator{
						Value:      v,
						Confidence: portalConfidence,
						SourceText: cells[0] + ": " + cells[idx],
					},
					match: kind,
				})
			}
		})
	})
	return out
}

// headerColumns returns nil when the row has no period column. The first
// cell is the label column.
func headerColumns(cells []string) map[int]fiscalPeriod {
	var cols map[int]fiscalPeriod
	for i := 1; i < len(cells); i++ {
		if fp, ok := parsePeriodHeader(cells[i]); ok {
			if cols == nil {
				cols = make(map[int]fiscalPeriod)
			}
			cols[i] = fp
		}
	}
	return cols
}
