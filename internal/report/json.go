package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"idslab-dashboard/internal/models"
)

// jsonDocument is the JSON export layout
type jsonDocument struct {
	Report      models.Report         `json:"report"`
	Author      string                `json:"author"`
	GeneratedAt time.Time             `json:"generatedAt"`
	TestCount   int                   `json:"testCount"`
	Rates       models.Rates          `json:"rates"`
	AUC         float64               `json:"auc"`
	ROCScope    string                `json:"rocScope"`
	Tests       []models.Test         `json:"tests,omitempty"`
	Hourly      []models.HourlyBucket `json:"hourly,omitempty"`
	ROC         *models.ROCAnalysis   `json:"roc,omitempty"`
}

func (e *Exporter) writeJSON(w io.Writer, d Data) error {
	doc := jsonDocument{
		Report:      d.Report,
		Author:      e.author,
		GeneratedAt: d.GeneratedAt,
		TestCount:   len(d.Tests),
		Rates:       d.Rates,
		AUC:         d.ROC.AUC,
		ROCScope:    ROCScope,
	}
	if d.Options.IncludeRawData {
		doc.Tests = d.Tests
	}
	if d.Options.IncludeCharts {
		roc := d.ROC
		doc.Hourly = d.Hourly
		doc.ROC = &roc
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
