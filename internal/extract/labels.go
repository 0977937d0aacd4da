package extract

// LabelSet is an ordered list of synonyms for one heading or quantity.
// Earlier entries win.
type LabelSet []string

// Field binds a LabelSet to the record field it fills.
type Field struct {
	Name   string
	Labels LabelSet
	Set    func(*FinancialRecord, int64)
}

// Category is one financial statement: where to look and what to read.
type Category struct {
	Name     string
	Sections LabelSet
	Fields   []Field
}

// Categories lists the financial statements in extraction order.
var Categories = []Category{
	{
		Name:     "net position",
		Sections: LabelSet{"statement of net position", "government-wide statement of net position", "net position"},
		Fields: []Field{
			{
				Name:   "totalAssets",
				Labels: LabelSet{"total assets", "total assets and deferred outflows of resources", "total current assets", "assets"},
				Set:    func(r *FinancialRecord, v int64) { r.NetPosition.TotalAssets = v },
			},
			{
				Name:   "totalLiabilities",
				Labels: LabelSet{"total liabilities", "total current liabilities", "liabilities"},
				Set:    func(r *FinancialRecord, v int64) { r.NetPosition.TotalLiabilities = v },
			},
			{
				Name:   "netPosition",
				Labels: LabelSet{"net position", "total net position", "net assets"},
				Set:    func(r *FinancialRecord, v int64) { r.NetPosition.NetPosition = v },
			},
		},
	},
	{
		Name:     "fund balance",
		Sections: LabelSet{"balance sheet", "governmental funds balance sheet", "fund balance"},
		Fields: []Field{
			{
				Name:   "generalFund",
				Labels: LabelSet{"general fund", "fund balance - general fund"},
				Set:    func(r *FinancialRecord, v int64) { r.FundBalance.GeneralFund = v },
			},
			{
				Name:   "debtServiceFund",
				Labels: LabelSet{"debt service fund", "fund balance - debt service"},
				Set:    func(r *FinancialRecord, v int64) { r.FundBalance.DebtServiceFund = v },
			},
		},
	},
	{
		Name:     "revenues",
		Sections: LabelSet{"revenues", "statement of revenues", "revenues by source"},
		Fields: []Field{
			{
				Name:   "local",
				Labels: LabelSet{"local sources", "local revenue", "property taxes", "local and intermediate sources"},
				Set:    func(r *FinancialRecord, v int64) { r.Revenues.Local = v },
			},
			{
				Name:   "state",
				Labels: LabelSet{"state sources", "state revenue", "state programs"},
				Set:    func(r *FinancialRecord, v int64) { r.Revenues.State = v },
			},
			{
				Name:   "federal",
				Labels: LabelSet{"federal sources", "federal revenue", "federal programs"},
				Set:    func(r *FinancialRecord, v int64) { r.Revenues.Federal = v },
			},
		},
	},
	{
		Name:     "expenditures",
		Sections: LabelSet{"expenditures", "statement of expenditures", "expenditures by function"},
		Fields: []Field{
			{
				Name:   "instruction",
				Labels: LabelSet{"instruction", "instructional services", "regular instruction"},
				Set:    func(r *FinancialRecord, v int64) { r.Expenditures.Instruction = v },
			},
			{
				Name:   "admin",
				Labels: LabelSet{"administration", "administrative", "general administration", "school administration"},
				Set:    func(r *FinancialRecord, v int64) { r.Expenditures.Admin = v },
			},
			{
				Name:   "debtService",
				Labels: LabelSet{"debt service", "principal on long-term debt", "interest on long-term debt"},
				Set:    func(r *FinancialRecord, v int64) { r.Expenditures.DebtService = v },
			},
		},
	},
}

// SectionKeywords are the canonical headings reported by the debug
// bundle when present anywhere in the document.
var SectionKeywords = []string{
	"statement of net position",
	"balance sheet",
	"statement of revenues",
	"expenditures",
	"fund balance",
	"net position",
	"total assets",
	"total liabilities",
}

// nextSectionPatterns mark where the following statement likely begins.
var nextSectionPatterns = []string{
	`(?i)statement of`,
	`(?i)notes to`,
	`(?i)required supplementary`,
	`(?i)combining`,
	`(?i)schedule`,
}
