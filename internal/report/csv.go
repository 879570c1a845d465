package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"idslab-dashboard/internal/analytics"
)

// sanitizeCSV prefixes values a spreadsheet would evaluate as a formula
func sanitizeCSV(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func (e *Exporter) writeCSV(w io.Writer, d Data) error {
	cw := csv.NewWriter(w)

	write := func(fields ...string) {
		for i := range fields {
			fields[i] = sanitizeCSV(fields[i])
		}
		// Errors are sticky and surface from cw.Error below
		cw.Write(fields)
	}

	write("Report", d.Report.Name)
	write("Type", titleCase(d.Report.Type))
	write("Date Range", dateRangeLabel(d.Report.DateRange))
	write("Generated", d.GeneratedAt.Format(time.RFC3339))
	write("Author", e.author)
	write("Tests Included", strconv.Itoa(len(d.Tests)))
	write()

	write("Metric", "Value")
	write("Total Attacks", strconv.Itoa(d.Rates.TotalAttacks))
	write("Detected Attacks", strconv.Itoa(d.Rates.DetectedAttacks))
	write("Missed Attacks", strconv.Itoa(d.Rates.MissedAttacks))
	write("False Positives", strconv.Itoa(d.Rates.FalsePositives))
	write("True Positive Rate", analytics.FormatPercent(d.Rates.TruePositiveRate))
	write("False Positive Rate", analytics.FormatPercent(d.Rates.FalsePositiveRate))
	write("False Negative Rate", analytics.FormatPercent(d.Rates.FalseNegativeRate))
	write("Precision", analytics.FormatPercent(d.Rates.Precision))
	write("ROC AUC ("+ROCScope+")", fmt.Sprintf("%.3f", d.ROC.AUC))

	if d.Options.IncludeRawData {
		write()
		write("Test ID", "Scenario", "Status", "Started", "Total", "Detected", "Missed", "False Positives")
		for _, t := range d.Tests {
			write(t.ID, t.ScenarioName, t.Status, t.StartedAt.Format(time.RFC3339),
				strconv.Itoa(t.TotalAttacks), strconv.Itoa(t.DetectedAttacks),
				strconv.Itoa(t.MissedAttacks), strconv.Itoa(t.FalsePositives))
		}
	}

	if d.Options.IncludeCharts {
		write()
		write("Hour", "Detected", "Missed", "False Positives", "Samples")
		for _, b := range d.Hourly {
			write(b.Label, formatFloat(b.Detected), formatFloat(b.Missed),
				formatFloat(b.FalsePositive), strconv.Itoa(b.Samples))
		}

		write()
		write("Threshold", "FPR", "TPR")
		for _, p := range d.ROC.Points {
			write(formatFloat(p.Threshold), formatFloat(p.FPR), formatFloat(p.TPR))
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
