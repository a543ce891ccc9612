// Package report rewrites the marker-delimited sections of the markdown
// report from the latest processing run. Content outside the markers is
// never touched, and nothing is written unless every section renders.
package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/processor"
)

// Section names and their marker pair in the document.
const (
	SectionTrending    = "github-trending"
	SectionWeather     = "weather-summary"
	SectionCrypto      = "crypto-prices"
	SectionLastUpdated = "last-updated"
)

// maxTrendingRows bounds the rendered repository table.
const maxTrendingRows = 5

// RenderError means a section could not be rendered into the document,
// usually because its marker pair is missing. The document is left
// unmodified when this is returned.
type RenderError struct {
	Section string
	Reason  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Section, e.Reason)
}

// Reporter reads the run manifest and its CSVs, computes aggregates, and
// splices freshly rendered tables into the report document.
type Reporter struct {
	manifestPath string
	reportPath   string
	log          *zerolog.Logger
}

func New(manifestPath, reportPath string, log *zerolog.Logger) *Reporter {
	return &Reporter{
		manifestPath: manifestPath,
		reportPath:   reportPath,
		log:          log,
	}
}

// Run performs the read-modify-write cycle over the report document. All
// sections are rendered and spliced in memory first; the file is written
// once, or not at all.
func (r *Reporter) Run() error {
	m, err := processor.ReadManifest(r.manifestPath)
	if err != nil {
		return err
	}

	doc, err := os.ReadFile(r.reportPath)
	if err != nil {
		return fmt.Errorf("report: read %s: %w", r.reportPath, err)
	}

	sections := []struct {
		name   string
		render func(*processor.Manifest) (string, error)
	}{
		{SectionTrending, r.renderTrending},
		{SectionWeather, r.renderWeather},
		{SectionCrypto, r.renderCrypto},
		{SectionLastUpdated, r.renderLastUpdated},
	}

	updated := doc
	for _, sec := range sections {
		body, err := sec.render(m)
		if err != nil {
			return err
		}
		updated, err = splice(updated, sec.name, body)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(r.reportPath, updated, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", r.reportPath, err)
	}

	r.log.Info().Str("report", r.reportPath).Str("run_id", m.RunID).
		Time("generated_at", m.GeneratedAt).Msg("report updated")
	return nil
}

func (r *Reporter) renderTrending(m *processor.Manifest) (string, error) {
	rows, err := loadTrending(m)
	if err != nil {
		return "", err
	}
	if len(rows) > maxTrendingRows {
		rows = rows[:maxTrendingRows]
	}
	return render(SectionTrending, struct{ Rows []trendingRow }{rows})
}

func (r *Reporter) renderWeather(m *processor.Manifest) (string, error) {
	view, err := weatherView(m)
	if err != nil {
		return "", err
	}
	return render(SectionWeather, view)
}

func (r *Reporter) renderCrypto(m *processor.Manifest) (string, error) {
	rows, err := loadCrypto(m)
	if err != nil {
		return "", err
	}
	return render(SectionCrypto, struct{ Rows []cryptoRow }{rows})
}

func (r *Reporter) renderLastUpdated(m *processor.Manifest) (string, error) {
	view := struct {
		GeneratedAt string
		RunID       string
	}{
		GeneratedAt: m.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		RunID:       m.RunID,
	}
	return render(SectionLastUpdated, view)
}

// splice replaces the bytes between the section's begin and end markers with
// body, using explicit offsets. Missing markers yield a RenderError.
func splice(doc []byte, section, body string) ([]byte, error) {
	begin := []byte(fmt.Sprintf("<!-- datapulse:begin %s -->", section))
	end := []byte(fmt.Sprintf("<!-- datapulse:end %s -->", section))

	i := bytes.Index(doc, begin)
	if i < 0 {
		return nil, &RenderError{Section: section, Reason: "begin marker not found"}
	}
	contentStart := i + len(begin)

	j := bytes.Index(doc[contentStart:], end)
	if j < 0 {
		return nil, &RenderError{Section: section, Reason: "end marker not found"}
	}
	contentEnd := contentStart + j

	var out bytes.Buffer
	out.Grow(len(doc) + len(body))
	out.Write(doc[:contentStart])
	out.WriteString("\n")
	out.WriteString(body)
	out.WriteString("\n")
	out.Write(doc[contentEnd:])
	return out.Bytes(), nil
}
