// Package report renders stored research as Excel workbooks and CSV.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/derive"
	"github.com/sells-group/finresearch/internal/model"
)

// DashboardSheet is the name of the consolidated sheet.
const DashboardSheet = "Consolidated Dashboard"

const (
	amountFormat = "#,##0.00"
	missing      = "--"
	maxSheetName = 31
)

var dashboardHeaders = []string{
	"Company", "Quarter", "Year",
	"Revenue", "EBITDA", "EBITDA %",
	"EBIT", "EBIT %", "PBT", "PAT",
	"EPS", "Source", "Status",
}

// Row is one flattened record, shared by the dashboard and CSV output.
// Missing amounts are nil.
type Row struct {
	Company   string
	Quarter   model.Quarter
	Year      int
	Revenue   *float64
	EBITDA    *float64
	EBITDAPct *float64
	EBIT      *float64
	EBITPct   *float64
	PBT       *float64
	PAT       *float64
	EPS       *float64
	Source    model.Source
	Status    model.ResearchStatus
	Valid     bool
}

// Rows flattens records, preferring extracted headline figures and falling
// back to the derived operating ones. Output is ordered by company, year
// and quarter.
func Rows(records []model.ResearchRecord) []Row {
	sorted := sortedCopy(records)
	out := make([]Row, 0, len(sorted))
	for i := range sorted {
		r := &sorted[i]
		d := derived(r)
		row := Row{
			Company: r.Company,
			Quarter: r.Quarter,
			Year:    r.Year,
			Revenue: first(extracted(r, model.TotalIncome), d.TotalIncome),
			EBITDA:  first(extracted(r, model.EBITDA), d.OpEBITDA),
			EBIT:    first(extracted(r, model.EBIT), d.OpEBIT),
			PBT:     first(extracted(r, model.PBT), d.PBT),
			PAT:     first(extracted(r, model.PAT), d.PAT),
			EPS:     extracted(r, model.EPS),
			Source:  r.Source,
			Status:  r.Status,
			Valid:   r.Validation == nil || r.Validation.Valid,
		}
		row.EBITDAPct = first(extracted(r, model.EBITDAMargin), pct(row.EBITDA, row.Revenue))
		row.EBITPct = first(extracted(r, model.EBITMargin), pct(row.EBIT, row.Revenue))
		out = append(out, row)
	}
	return out
}

func sortedCopy(records []model.ResearchRecord) []model.ResearchRecord {
	out := make([]model.ResearchRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Company != b.Company {
			return a.Company < b.Company
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Quarter < b.Quarter
	})
	return out
}

func derived(r *model.ResearchRecord) *model.QuarterlyRecord {
	if r.Derived != nil {
		return r.Derived
	}
	d, err := derive.Record(r.Period(), r.ExtractedData, r.Source)
	if err != nil {
		zap.L().Debug("report: partial derivation", zap.String("period", r.Period().String()), zap.Error(err))
	}
	return d
}

func extracted(r *model.ResearchRecord, n model.IndicatorName) *float64 {
	if v, ok := r.ExtractedData.Value(n); ok {
		return model.Float(v)
	}
	return nil
}

func first(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func pct(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return model.Float(*num / *den * 100)
}

// WriteXLSX saves a workbook with the consolidated dashboard followed by
// one data sheet per company.
func WriteXLSX(path string, records []model.ResearchRecord) error {
	f := xlsx.NewFile()

	if err := addDashboard(f, Rows(records)); err != nil {
		return err
	}

	byCompany := map[string][]model.ResearchRecord{}
	var companies []string
	for _, r := range sortedCopy(records) {
		if _, ok := byCompany[r.Company]; !ok {
			companies = append(companies, r.Company)
		}
		byCompany[r.Company] = append(byCompany[r.Company], r)
	}
	for _, c := range companies {
		if err := addCompanySheet(f, c, byCompany[c]); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	zap.L().Info("report: workbook written",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("sheets", len(f.Sheets)),
	)
	return nil
}

func boldStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.ApplyFont = true
	return s
}

func addDashboard(f *xlsx.File, rows []Row) error {
	sheet, err := f.AddSheet(DashboardSheet)
	if err != nil {
		return eris.Wrap(err, "report: add dashboard")
	}
	bold := boldStyle()

	header := sheet.AddRow()
	for _, h := range dashboardHeaders {
		c := header.AddCell()
		c.SetString(h)
		c.SetStyle(bold)
	}

	for _, r := range rows {
		xr := sheet.AddRow()
		xr.AddCell().SetString(r.Company)
		xr.AddCell().SetString(string(r.Quarter))
		xr.AddCell().SetInt(r.Year)
		for _, v := range []*float64{r.Revenue, r.EBITDA} {
			amountCell(xr, v)
		}
		percentCell(xr, r.EBITDAPct)
		amountCell(xr, r.EBIT)
		percentCell(xr, r.EBITPct)
		for _, v := range []*float64{r.PBT, r.PAT, r.EPS} {
			amountCell(xr, v)
		}
		xr.AddCell().SetString(string(r.Source))
		status := string(r.Status)
		if !r.Valid {
			status += " (review)"
		}
		xr.AddCell().SetString(status)
	}
	return nil
}

func amountCell(r *xlsx.Row, v *float64) {
	c := r.AddCell()
	if v == nil {
		c.SetString(missing)
		return
	}
	c.SetFloatWithFormat(*v, amountFormat)
}

func percentCell(r *xlsx.Row, v *float64) {
	c := r.AddCell()
	if v == nil {
		c.SetString(missing)
		return
	}
	c.SetString(fmt.Sprintf("%.2f%%", *v))
}

type lineItem struct {
	label   string
	percent bool
	get     func(*model.QuarterlyRecord) *float64
}

var lineItems = []lineItem{
	{"Total Income", false, func(q *model.QuarterlyRecord) *float64 { return q.TotalIncome }},
	{"Purchase of Traded Goods", false, func(q *model.QuarterlyRecord) *float64 { return q.PurchaseTradedGoods }},
	{"Change in Stock", false, func(q *model.QuarterlyRecord) *float64 { return q.StockChange }},
	{"Total COGS", false, func(q *model.QuarterlyRecord) *float64 { return q.TotalCOGS }},
	{"Contribution", false, func(q *model.QuarterlyRecord) *float64 { return q.Contribution }},
	{"Employee Cost", false, func(q *model.QuarterlyRecord) *float64 { return q.EmployeeCost }},
	{"Other Expenses", false, func(q *model.QuarterlyRecord) *float64 { return q.OtherExpenses }},
	{"Op. EBITDA", false, func(q *model.QuarterlyRecord) *float64 { return q.OpEBITDA }},
	{"Op. EBITDA %", true, func(q *model.QuarterlyRecord) *float64 { return q.OpEBITDAPct }},
	{"Depreciation", false, func(q *model.QuarterlyRecord) *float64 { return q.Depreciation }},
	{"Op. EBIT", false, func(q *model.QuarterlyRecord) *float64 { return q.OpEBIT }},
	{"Op. EBIT %", true, func(q *model.QuarterlyRecord) *float64 { return q.OpEBITPct }},
	{"Interest", false, func(q *model.QuarterlyRecord) *float64 { return q.Interest }},
	{"Op. PBT", false, func(q *model.QuarterlyRecord) *float64 { return q.OpPBT }},
	{"Op. PBT %", true, func(q *model.QuarterlyRecord) *float64 { return q.OpPBTPct }},
	{"Other Income", false, func(q *model.QuarterlyRecord) *float64 { return q.OtherIncome }},
	{"PBT", false, func(q *model.QuarterlyRecord) *float64 { return q.PBT }},
	{"PBT %", true, func(q *model.QuarterlyRecord) *float64 { return q.PBTPct }},
	{"Tax", false, func(q *model.QuarterlyRecord) *float64 { return q.Tax }},
	{"PAT", false, func(q *model.QuarterlyRecord) *float64 { return q.PAT }},
}

// CompanySheetName is the data sheet name for company, truncated to fit
// the workbook limit.
func CompanySheetName(company string) string {
	r := []rune(company)
	if len(r) > maxSheetName-len("_Data") {
		r = r[:maxSheetName-len("_Data")]
	}
	return string(r) + "_Data"
}

func addCompanySheet(f *xlsx.File, company string, records []model.ResearchRecord) error {
	sheet, err := f.AddSheet(CompanySheetName(company))
	if err != nil {
		return eris.Wrapf(err, "report: add sheet for %s", company)
	}
	bold := boldStyle()

	derivedRecs := make([]*model.QuarterlyRecord, len(records))
	header := sheet.AddRow()
	h := header.AddCell()
	h.SetString("Metric")
	h.SetStyle(bold)
	for i := range records {
		derivedRecs[i] = derived(&records[i])
		c := header.AddCell()
		c.SetString(fmt.Sprintf("%s %d", records[i].Quarter, records[i].Year))
		c.SetStyle(bold)
	}

	for _, li := range lineItems {
		row := sheet.AddRow()
		label := row.AddCell()
		label.SetString(li.label)
		label.SetStyle(bold)
		for _, d := range derivedRecs {
			if li.percent {
				percentCell(row, li.get(d))
				continue
			}
			amountCell(row, li.get(d))
		}
	}
	return nil
}

// csvRow is the CSV shape of a Row. Missing amounts are empty.
type csvRow struct {
	Company   string `csv:"company"`
	Quarter   string `csv:"quarter"`
	Year      int    `csv:"year"`
	Revenue   string `csv:"revenue"`
	EBITDA    string `csv:"ebitda"`
	EBITDAPct string `csv:"ebitda_pct"`
	EBIT      string `csv:"ebit"`
	EBITPct   string `csv:"ebit_pct"`
	PBT       string `csv:"pbt"`
	PAT       string `csv:"pat"`
	EPS       string `csv:"eps"`
	Source    string `csv:"source"`
	Status    string `csv:"status"`
	Valid     bool   `csv:"valid"`
}

func csvNum(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// WriteCSV writes one line per record to w.
func WriteCSV(w io.Writer, records []model.ResearchRecord) error {
	rows := Rows(records)
	out := make([]*csvRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &csvRow{
			Company:   r.Company,
			Quarter:   string(r.Quarter),
			Year:      r.Year,
			Revenue:   csvNum(r.Revenue),
			EBITDA:    csvNum(r.EBITDA),
			EBITDAPct: csvNum(r.EBITDAPct),
			EBIT:      csvNum(r.EBIT),
			EBITPct:   csvNum(r.EBITPct),
			PBT:       csvNum(r.PBT),
			PAT:       csvNum(r.PAT),
			EPS:       csvNum(r.EPS),
			Source:    string(r.Source),
			Status:    string(r.Status),
			Valid:     r.Valid,
		})
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return eris.Wrap(err, "report: write csv")
	}
	return nil
}
