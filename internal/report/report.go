// Package report renders report records into downloadable PDF, CSV and JSON
// documents. A document carries the detection rates of the tests in the
// report's date range and, on request, per-test rows and chart series.
package report

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/models"
)

// Export formats
const (
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnsupportedFormat is returned for formats other than pdf, csv and json
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Options selects the optional document sections
type Options struct {
	IncludeCharts  bool
	IncludeRawData bool
}

// ROCScope labels the ROC figures in every export
const ROCScope = "all time"

// Data is everything a rendered document contains
type Data struct {
	Report      models.Report
	Tests       []models.Test
	Rates       models.Rates
	Hourly      []models.HourlyBucket
	ROC         models.ROCAnalysis
	Options     Options
	GeneratedAt time.Time
}

// NewData selects the tests inside the report's date range and computes
// their rates and hourly series. The ROC curve is passed in as computed
// from the latest analytics poll, so it covers every test regardless of the
// range; exports label it all-time. A date range that is not a day count
// covers every test.
func NewData(r models.Report, tests []models.Test, roc models.ROCAnalysis, loc *time.Location, now time.Time, opts Options) Data {
	days, err := analytics.ParseDateRange(r.DateRange)
	if err != nil {
		log.Debug().Err(err).Str("report", r.ID).Msg("Unrecognized report date range, including all tests")
		days = 0
	}

	inRange := analytics.FilterByDateRange(tests, days, now)
	return Data{
		Report:      r,
		Tests:       inRange,
		Rates:       analytics.ComputeRates(inRange),
		Hourly:      analytics.HourlyBuckets(inRange, loc),
		ROC:         roc,
		Options:     opts,
		GeneratedAt: now,
	}
}

// Exporter renders report documents
type Exporter struct {
	author string
	logger zerolog.Logger
}

// New creates an exporter that stamps documents with author
func New(author string) *Exporter {
	return &Exporter{
		author: author,
		logger: log.With().Str("component", "report").Logger(),
	}
}

// Export writes the document in the given format to w
func (e *Exporter) Export(w io.Writer, format string, d Data) error {
	e.logger.Debug().
		Str("report", d.Report.ID).
		Str("format", format).
		Int("tests", len(d.Tests)).
		Bool("charts", d.Options.IncludeCharts).
		Bool("raw", d.Options.IncludeRawData).
		Msg("Exporting report")

	switch format {
	case FormatPDF:
		return e.writePDF(w, d)
	case FormatCSV:
		return e.writeCSV(w, d)
	case FormatJSON:
		return e.writeJSON(w, d)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type of a format
func ContentType(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds a download file name from the report name and ID
func FileName(r models.Report, format string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(r.Name), "-"), "-")
	if base == "" {
		base = "report"
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s-%s.%s", base, id, format)
}

// titleCase capitalizes enum values such as report types for display
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func dateRangeLabel(r string) string {
	if days, err := analytics.ParseDateRange(r); err == nil && days > 0 {
		return fmt.Sprintf("Last %d days", days)
	}
	return "All time"
}
