package company

const sectorSoftware = "computers-software"

var defaults = []Company{
	{Name: "TCS", Slug: "tataconsultancyservices", Code: "TCS", Sector: sectorSoftware, FullName: "Tata Consultancy Services Ltd."},
	{Name: "Infosys", Slug: "infosys", Code: "IT", Sector: sectorSoftware, FullName: "Infosys Ltd."},
	{Name: "Wipro", Slug: "wipro", Code: "W", Sector: sectorSoftware, FullName: "Wipro Ltd."},
	{Name: "Tech Mahindra", Slug: "techmahindra", Code: "TM4", Sector: sectorSoftware, FullName: "Tech Mahindra Ltd."},
	{Name: "HCL Tech", Slug: "hcltechnologies", Code: "HCL02", Sector: sectorSoftware, FullName: "HCL Technologies Ltd."},
	{Name: "LTIMindtree", Slug: "ltimindtree", Code: "LI12", Sector: sectorSoftware, FullName: "LTIMindtree Ltd."},
	{Name: "Persistent Systems", Slug: "persistentsystems", Code: "PS05", Sector: sectorSoftware, FullName: "Persistent Systems Ltd."},
	{Name: "Coforge", Slug: "coforge", Code: "NC13", Sector: sectorSoftware, FullName: "Coforge Ltd."},
	{Name: "MPHASIS", Slug: "mphasis", Code: "MP", Sector: sectorSoftware, FullName: "Mphasis Ltd."},
	{Name: "Cyient", Slug: "cyient", Code: "IL", Sector: sectorSoftware, FullName: "Cyient Ltd."},
	{Name: "LT Technology Services", Slug: "lttechnologyservices", Code: "LT11", Sector: sectorSoftware, FullName: "L&T Technology Services Ltd."},
	{Name: "Zensar", Slug: "zensartechnologies", Code: "ZT", Sector: sectorSoftware, FullName: "Zensar Technologies Ltd."},
	{Name: "Hexaware", Slug: "hexawaretechnologies", Code: "HT10", Sector: sectorSoftware, FullName: "Hexaware Technologies Ltd."},
	{Name: "Birlasoft", Slug: "birlasoft", Code: "KS13", Sector: sectorSoftware, FullName: "Birlasoft Ltd."},
}

// HCL Tech is resolvable but not researched by default.
var excludedTargets = map[string]bool{"HCL Tech": true}

// IsDefault reports whether name is one of the built-in companies.
func IsDefault(name string) bool {
	for _, c := range defaults {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DefaultTargets returns the companies researched when none are named.
func DefaultTargets() []string {
	out := make([]string, 0, len(defaults))
	for _, c := range defaults {
		if !excludedTargets[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}
