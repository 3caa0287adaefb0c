package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PayslipLine is a single labelled amount on a payslip.
type PayslipLine struct {
	Label  string
	Amount string
}

// PayslipDocument carries everything the renderer needs for one employee.
type PayslipDocument struct {
	CompanyName  string
	EmployeeName string
	LoginID      string
	Designation  string
	Department   string
	Period       string
	Earnings     []PayslipLine
	Deductions   []PayslipLine
	NetPay       string
}

// PDFExporter renders payslips into simple A4 documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderPayslip creates a single-page payslip PDF.
func (e *PDFExporter) RenderPayslip(doc PayslipDocument) ([]byte, error) {
	if doc.EmployeeName == "" || doc.Period == "" {
		return nil, fmt.Errorf("payslip requires employee name and period")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.CompanyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Payslip for %s", doc.Period), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, pair := range [][2]string{
		{"Employee", doc.EmployeeName},
		{"Login ID", doc.LoginID},
		{"Designation", doc.Designation},
		{"Department", doc.Department},
	} {
		pdf.CellFormat(40, 7, pair[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, pair[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	renderSection := func(title string, lines []PayslipLine) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(120, 8, title, "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 8, "Amount", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, line := range lines {
			pdf.CellFormat(120, 7, line.Label, "1", 0, "", false, 0, "")
			pdf.CellFormat(60, 7, line.Amount, "1", 1, "R", false, 0, "")
		}
	}

	renderSection("Earnings", doc.Earnings)
	pdf.Ln(2)
	renderSection("Deductions", doc.Deductions)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(120, 8, "Net Pay", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 8, doc.NetPay, "1", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render payslip pdf: %w", err)
	}
	return buf.Bytes(), nil
}
