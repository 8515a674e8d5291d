package model

// QuarterlyRecord is the derived financial statement for one period. Nil
// fields are unknown; they are never silently treated as zero.
type QuarterlyRecord struct {
	Company string  `json:"company"`
	Quarter Quarter `json:"quarter"`
	Year    int     `json:"year"`

	TotalIncome         *float64 `json:"total_income"`
	PurchaseTradedGoods *float64 `json:"purchase_traded_goods"`
	StockChange         *float64 `json:"stock_change"`
	EmployeeCost        *float64 `json:"employee_cost"`
	OtherExpenses       *float64 `json:"other_expenses"`
	Depreciation        *float64 `json:"depreciation"`
	Interest            *float64 `json:"interest"`
	OtherIncome         *float64 `json:"other_income"`
	Tax                 *float64 `json:"tax"`

	TotalCOGS    *float64 `json:"total_cogs"`
	Contribution *float64 `json:"contribution"`
	OpEBITDA     *float64 `json:"op_ebitda"`
	OpEBIT       *float64 `json:"op_ebit"`
	OpPBT        *float64 `json:"op_pbt"`
	PBT          *float64 `json:"pbt"`
	PAT          *float64 `json:"pat"`

	OpEBITDAPct *float64 `json:"op_ebitda_pct"`
	OpEBITPct   *float64 `json:"op_ebit_pct"`
	OpPBTPct    *float64 `json:"op_pbt_pct"`
	PBTPct      *float64 `json:"pbt_pct"`

	DataSource       Source `json:"data_source"`
	ValidationStatus string `json:"validation_status"`
}

// Period returns the record's period.
func (r *QuarterlyRecord) Period() Period {
	return Period{Company: r.Company, Quarter: r.Quarter, Year: r.Year}
}

// Primitives returns pointers to the nine input fields.
func (r *QuarterlyRecord) Primitives() []*float64 {
	return []*float64{
		r.TotalIncome, r.PurchaseTradedGoods, r.StockChange, r.EmployeeCost,
		r.OtherExpenses, r.Depreciation, r.Interest, r.OtherIncome, r.Tax,
	}
}

// Completeness is the percentage of primitive inputs present.
func (r *QuarterlyRecord) Completeness() float64 {
	prims := r.Primitives()
	filled := 0
	for _, p := range prims {
		if p != nil {
			filled++
		}
	}
	return float64(filled) / float64(len(prims)) * 100
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
