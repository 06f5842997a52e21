package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteLoanStatementPDF renders a single loan statement to w.
func WriteLoanStatementPDF(w io.Writer, row *PortfolioRow) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Loan Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 MST")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	deadline := "not yet disbursed"
	if row.Deadline != nil {
		deadline = row.Deadline.Format("2006-01-02")
	}

	lines := [][2]string{
		{"Borrower", row.Borrower},
		{"Status", row.Status},
		{"Principal", fmt.Sprintf("%d", row.Principal)},
		{"Interest rate", fmt.Sprintf("%.2f%%", float64(row.InterestRateBps)/100)},
		{"Duration", fmt.Sprintf("%d days", row.DurationDays)},
		{"Total due", fmt.Sprintf("%d", row.TotalDue)},
		{"Applied", row.AppliedAt.Format("2006-01-02")},
		{"Repayment deadline", deadline},
	}

	pdf.SetFont("Arial", "", 10)
	for _, line := range lines {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, line[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, line[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, "The total due is fixed at disbursement from the recorded rate and duration. Late repayment does not change the amount owed.", "", "L", false)

	return pdf.Output(w)
}

// WritePortfolioPDF renders the full portfolio table to w.
func WritePortfolioPDF(w io.Writer, rows []PortfolioRow) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Loan Portfolio", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Borrower", "Principal", "Rate %", "Days", "Total Due", "Status"}
	widths := []float64{95, 30, 25, 20, 35, 30}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	pdf.SetFillColor(242, 242, 242)
	for _, row := range rows {
		cells := []string{
			row.Borrower,
			fmt.Sprintf("%d", row.Principal),
			fmt.Sprintf("%.2f", float64(row.InterestRateBps)/100),
			fmt.Sprintf("%d", row.DurationDays),
			fmt.Sprintf("%d", row.TotalDue),
			row.Status,
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	return pdf.Output(w)
}
