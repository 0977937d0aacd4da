package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/isdaudit/internal/extract"
)

// Columns is the header shared by the CSV and XLSX exports.
var Columns = []string{
	"District Name",
	"Fiscal Year",
	"Net Position - Total Assets",
	"Net Position - Total Liabilities",
	"Net Position - Net Position",
	"Fund Balance - General Fund",
	"Fund Balance - Debt Service Fund",
	"Revenues - Local",
	"Revenues - State",
	"Revenues - Federal",
	"Expenditures - Instruction",
	"Expenditures - Administration",
	"Expenditures - Debt Service",
}

func row(r extract.FinancialRecord) []any {
	return []any{
		r.DistrictName,
		r.FiscalYear,
		r.NetPosition.TotalAssets,
		r.NetPosition.TotalLiabilities,
		r.NetPosition.NetPosition,
		r.FundBalance.GeneralFund,
		r.FundBalance.DebtServiceFund,
		r.Revenues.Local,
		r.Revenues.State,
		r.Revenues.Federal,
		r.Expenditures.Instruction,
		r.Expenditures.Admin,
		r.Expenditures.DebtService,
	}
}

// ExportFilename names an export of rec, e.g. "sample isd_financial_data.csv".
func ExportFilename(rec extract.FinancialRecord, ext string) string {
	name := rec.DistrictName
	if name == "" {
		name = "audit"
	}
	return fmt.Sprintf("%s_financial_data.%s", name, ext)
}

// WriteJSON writes v as two-space indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, recs ...extract.FinancialRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		vals := row(r)
		fields := make([]string, len(vals))
		for i, v := range vals {
			switch v := v.(type) {
			case string:
				fields[i] = v
			case int64:
				fields[i] = strconv.FormatInt(v, 10)
			}
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Reports"

func setCell(f *excelize.File, col, rowNum int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, rowNum)
	if err != nil {
		return fmt.Errorf("xlsx cell: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		return fmt.Errorf("xlsx cell %s: %w", cell, err)
	}
	return nil
}

// WriteXLSX writes a workbook with one row per record.
func WriteXLSX(w io.Writer, recs ...extract.FinancialRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, h := range Columns {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
	}
	for r, rec := range recs {
		for c, v := range row(rec) {
			if err := setCell(f, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	for _, cw := range []struct {
		from, to string
		width    float64
	}{{"A", "A", 36}, {"B", "B", 12}, {"C", "M", 20}} {
		if err := f.SetColWidth(sheetName, cw.from, cw.to, cw.width); err != nil {
			return fmt.Errorf("xlsx column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
