package extract

// NetPosition holds the government-wide statement of net position totals.
type NetPosition struct {
	TotalAssets      int64 `json:"totalAssets"`
	TotalLiabilities int64 `json:"totalLiabilities"`
	NetPosition      int64 `json:"netPosition"`
}

type FundBalance struct {
	GeneralFund     int64 `json:"generalFund"`
	DebtServiceFund int64 `json:"debtServiceFund"`
}

type Revenues struct {
	Local   int64 `json:"local"`
	State   int64 `json:"state"`
	Federal int64 `json:"federal"`
}

type Expenditures struct {
	Instruction int64 `json:"instruction"`
	Admin       int64 `json:"admin"`
	DebtService int64 `json:"debtService"`
}

// FinancialRecord is the normalized result of one extraction. A numeric
// field of 0 means the value was either absent or reported as zero.
type FinancialRecord struct {
	NetPosition  NetPosition  `json:"netPosition"`
	FundBalance  FundBalance  `json:"fundBalance"`
	Revenues     Revenues     `json:"revenues"`
	Expenditures Expenditures `json:"expenditures"`
	DistrictName string       `json:"districtName,omitempty"`
	FiscalYear   string       `json:"fiscalYear,omitempty"`
}

// Label returns a display name for the record, falling back to "Unknown".
func (r *FinancialRecord) Label() string {
	if r == nil || r.DistrictName == "" {
		return "Unknown"
	}
	return r.DistrictName
}
