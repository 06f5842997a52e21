package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// writeSheet fills the default sheet with a styled header row and data rows.
func writeSheet(f *excelize.File, columns []string, rows [][]interface{}) error {
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}
	return nil
}

// WritePortfolioExcel writes the loan portfolio workbook to w.
func WritePortfolioExcel(w io.Writer, rows []PortfolioRow) error {
	f := excelize.NewFile()
	defer f.Close()

	data := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		deadline := ""
		if row.Deadline != nil {
			deadline = row.Deadline.Format("2006-01-02")
		}
		data = append(data, []interface{}{
			row.Borrower,
			row.Principal,
			float64(row.InterestRateBps) / 100,
			row.DurationDays,
			row.TotalDue,
			row.Status,
			row.AppliedAt.Format("2006-01-02"),
			deadline,
		})
	}

	columns := []string{"Borrower", "Principal", "Rate %", "Duration (days)", "Total Due", "Status", "Applied", "Deadline"}
	if err := writeSheet(f, columns, data); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteReputationExcel writes the reputation standings workbook to w.
func WriteReputationExcel(w io.Writer, rows []ReputationRow) error {
	f := excelize.NewFile()
	defer f.Close()

	data := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		data = append(data, []interface{}{row.Holder, row.Total, row.Achievements})
	}

	if err := writeSheet(f, []string{"Holder", "Reputation Points", "Achievements"}, data); err != nil {
		return err
	}
	return f.Write(w)
}
