package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	gofpdf "github.com/go-pdf/fpdf"

	"idslab-dashboard/internal/analytics"
)

func (e *Exporter) writePDF(w io.Writer, d Data) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(d.Report.Name, true)
	pdf.SetAuthor(e.author, true)
	pdf.SetCreator("idslab-dashboard", true)
	pdf.SetCreationDate(d.GeneratedAt)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, tr(d.Report.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s report, %s. Generated %s by %s. %d tests included.",
		titleCase(d.Report.Type), dateRangeLabel(d.Report.DateRange),
		d.GeneratedAt.Format(time.RFC1123), e.author, len(d.Tests))), "", "L", false)
	pdf.Ln(5)

	addSectionHeader(pdf, "Detection Summary")
	rows := [][2]string{
		{"Total Attacks", strconv.Itoa(d.Rates.TotalAttacks)},
		{"Detected Attacks", strconv.Itoa(d.Rates.DetectedAttacks)},
		{"Missed Attacks", strconv.Itoa(d.Rates.MissedAttacks)},
		{"False Positives", strconv.Itoa(d.Rates.FalsePositives)},
		{"True Positive Rate", analytics.FormatPercent(d.Rates.TruePositiveRate)},
		{"False Positive Rate", analytics.FormatPercent(d.Rates.FalsePositiveRate)},
		{"False Negative Rate", analytics.FormatPercent(d.Rates.FalseNegativeRate)},
		{"Precision", analytics.FormatPercent(d.Rates.Precision)},
		{"ROC AUC (" + ROCScope + ")", fmt.Sprintf("%.3f", d.ROC.AUC)},
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for _, row := range rows {
		pdf.CellFormat(70, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	if d.Options.IncludeCharts {
		addSectionHeader(pdf, "Detection by Hour of Day")
		addTable(pdf, []string{"Hour", "Detected", "Missed", "False Pos.", "Tests"}, []float64{25, 30, 30, 30, 20}, hourlyRows(d))
		pdf.Ln(5)

		addSectionHeader(pdf, "ROC Curve ("+ROCScope+")")
		if d.ROC.Theoretical {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, "No test results were available; the curve shows a theoretical classifier.", "", "L", false)
		}
		addTable(pdf, []string{"Threshold", "FPR %", "TPR %"}, []float64{30, 30, 30}, rocRows(d))
		pdf.Ln(5)
	}

	if d.Options.IncludeRawData {
		pdf.AddPage()
		addSectionHeader(pdf, "Tests")
		rows := make([][]string, 0, len(d.Tests))
		for _, t := range d.Tests {
			rows = append(rows, []string{
				tr(t.ScenarioName), titleCase(t.Status), t.StartedAt.Format("2006-01-02 15:04"),
				strconv.Itoa(t.TotalAttacks), strconv.Itoa(t.DetectedAttacks),
				strconv.Itoa(t.MissedAttacks), strconv.Itoa(t.FalsePositives),
			})
		}
		addTable(pdf, []string{"Scenario", "Status", "Started", "Total", "Det.", "Missed", "FP"},
			[]float64{55, 22, 33, 18, 18, 18, 16}, rows)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF report: %w", err)
	}
	return nil
}

func addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func addTable(pdf *gofpdf.Fpdf, header []string, widths []float64, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, row := range rows {
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func hourlyRows(d Data) [][]string {
	rows := make([][]string, 0, len(d.Hourly))
	for _, b := range d.Hourly {
		rows = append(rows, []string{
			b.Label,
			fmt.Sprintf("%.1f", b.Detected),
			fmt.Sprintf("%.1f", b.Missed),
			fmt.Sprintf("%.1f", b.FalsePositive),
			strconv.Itoa(b.Samples),
		})
	}
	return rows
}

func rocRows(d Data) [][]string {
	rows := make([][]string, 0, len(d.ROC.Points))
	for _, p := range d.ROC.Points {
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", p.Threshold),
			fmt.Sprintf("%.1f", p.FPR),
			fmt.Sprintf("%.1f", p.TPR),
		})
	}
	return rows
}
