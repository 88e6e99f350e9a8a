package reports

import (
	"io"

	"github.com/phpdave11/gofpdf"
)

// WritePDF renders the statement as a single-column A4 table.
func (s Statement) WritePDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Account statement "+s.From+" - "+s.To, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	widths := []float64{24, 20, 40, 66, 30}
	headers := []string{"Date", "Type", "Category", "Description", "Amount"}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range s.Lines {
		note := l.Note
		if len(note) > 40 {
			note = note[:37] + "..."
		}
		cells := []string{l.Date, l.Type, l.Category, note, l.Amount}
		for i, c := range cells {
			align := "L"
			if i == len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, "Income: "+s.Income, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Expense: "+s.Expense, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Net: "+s.Net, "", 1, "R", false, 0, "")

	return pdf.Output(w)
}
