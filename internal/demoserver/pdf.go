package demoserver

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"osreport/internal/inventory"
)

// renderPDF produces a one-table summary of the report, grouped by project.
func renderPDF(report *inventory.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("OpenStack Resources Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "OpenStack Resources Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, "Generated "+report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	pdf.Ln(10)

	s := report.Summary
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("%d projects, %d servers, %d volumes, %d network resources, %d clusters",
		s.TotalProjects, s.TotalServers, s.TotalVolumes, s.NetworkTotal(), s.TotalClusters))
	pdf.Ln(10)

	widths := []float64{60, 30, 40, 60}
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range []string{"Name", "Type", "Status", "Project"} {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()
	for _, r := range report.Resources {
		for i, v := range []string{r.DisplayTitle(), string(r.Type), r.Status, r.ProjectName} {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
