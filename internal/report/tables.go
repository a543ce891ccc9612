package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/template"

	"github.com/avolosh/datapulse/internal/processor"
)

const trendingTpl = `| Repository | Stars | Language | Description |
|------------|-------|----------|-------------|
{{- if .Rows}}
{{- range .Rows}}
| [{{.Name}}]({{.URL}}) | {{.Stars}} | {{.Language}} | {{.Description}} |
{{- end}}
{{- else}}
| _no data for this run_ | - | - | - |
{{- end}}`

const weatherTpl = `| Metric | Value |
|--------|-------|
{{- if .HasData}}
| Cities tracked | {{.Count}} |
| Average temperature | {{.AvgC}}°C ({{.AvgF}}°F) |
| Coolest / warmest | {{.MinC}}°C / {{.MaxC}}°C |
| Average humidity | {{.AvgHumidity}}% |
{{- else}}
| _no data for this run_ | - |
{{- end}}`

const cryptoTpl = `| Coin | Price (USD) | 24h Change | Trend |
|------|-------------|------------|-------|
{{- if .Rows}}
{{- range .Rows}}
| {{.Coin}} | ${{.Price}} | {{.Change}}% | {{.Trend}} |
{{- end}}
{{- else}}
| _no data for this run_ | - | - | - |
{{- end}}`

const lastUpdatedTpl = `_Last updated: {{.GeneratedAt}} (run {{.RunID}})_`

var templates = map[string]*template.Template{
	SectionTrending:    template.Must(template.New(SectionTrending).Parse(trendingTpl)),
	SectionWeather:     template.Must(template.New(SectionWeather).Parse(weatherTpl)),
	SectionCrypto:      template.Must(template.New(SectionCrypto).Parse(cryptoTpl)),
	SectionLastUpdated: template.Must(template.New(SectionLastUpdated).Parse(lastUpdatedTpl)),
}

func render(section string, data any) (string, error) {
	tpl, ok := templates[section]
	if !ok {
		return "", &RenderError{Section: section, Reason: "no template registered"}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Section: section, Reason: err.Error()}
	}
	return buf.String(), nil
}

type trendingRow struct {
	Name        string
	Stars       int
	Language    string
	Description string
	URL         string
}

type cryptoRow struct {
	Coin   string
	Price  string
	Change string
	Trend  string
}

type weatherSummary struct {
	HasData     bool
	Count       int
	AvgC        string
	AvgF        string
	MinC        string
	MaxC        string
	AvgHumidity string
}

func loadTrending(m *processor.Manifest) ([]trendingRow, error) {
	out, ok := m.Sources["github"]
	if !ok {
		return nil, nil
	}
	records, err := readCSV(out.Path)
	if err != nil {
		return nil, err
	}

	rows := make([]trendingRow, 0, len(records))
	for _, rec := range records {
		stars, err := strconv.Atoi(rec["stars"])
		if err != nil {
			return nil, fmt.Errorf("report: bad stars value %q in %s", rec["stars"], out.Path)
		}
		rows = append(rows, trendingRow{
			Name:        rec["name"],
			Stars:       stars,
			Language:    rec["language"],
			Description: rec["description"],
			URL:         rec["url"],
		})
	}
	return rows, nil
}

func weatherView(m *processor.Manifest) (weatherSummary, error) {
	var out processor.SourceOutput
	found := false
	for _, name := range []string{"wttr", "openmeteo"} {
		if o, ok := m.Sources[name]; ok {
			out = o
			found = true
			break
		}
	}
	if !found {
		return weatherSummary{}, nil
	}

	records, err := readCSV(out.Path)
	if err != nil {
		return weatherSummary{}, err
	}
	if len(records) == 0 {
		return weatherSummary{}, nil
	}

	var sumC, sumF, sumHumidity float64
	minC, maxC := 0.0, 0.0
	for i, rec := range records {
		c, err := strconv.ParseFloat(rec["temperature_c"], 64)
		if err != nil {
			return weatherSummary{}, fmt.Errorf("report: bad temperature_c %q in %s", rec["temperature_c"], out.Path)
		}
		f, err := strconv.ParseFloat(rec["temperature_f"], 64)
		if err != nil {
			return weatherSummary{}, fmt.Errorf("report: bad temperature_f %q in %s", rec["temperature_f"], out.Path)
		}
		h, err := strconv.ParseFloat(rec["humidity"], 64)
		if err != nil {
			return weatherSummary{}, fmt.Errorf("report: bad humidity %q in %s", rec["humidity"], out.Path)
		}

		sumC += c
		sumF += f
		sumHumidity += h
		if i == 0 || c < minC {
			minC = c
		}
		if i == 0 || c > maxC {
			maxC = c
		}
	}

	n := float64(len(records))
	return weatherSummary{
		HasData:     true,
		Count:       len(records),
		AvgC:        strconv.FormatFloat(sumC/n, 'f', 1, 64),
		AvgF:        strconv.FormatFloat(sumF/n, 'f', 1, 64),
		MinC:        strconv.FormatFloat(minC, 'f', 1, 64),
		MaxC:        strconv.FormatFloat(maxC, 'f', 1, 64),
		AvgHumidity: strconv.FormatFloat(sumHumidity/n, 'f', 0, 64),
	}, nil
}

func loadCrypto(m *processor.Manifest) ([]cryptoRow, error) {
	out, ok := m.Sources["coingecko"]
	if !ok {
		return nil, nil
	}
	records, err := readCSV(out.Path)
	if err != nil {
		return nil, err
	}

	rows := make([]cryptoRow, 0, len(records))
	for _, rec := range records {
		change, err := strconv.ParseFloat(rec["change_24h_pct"], 64)
		if err != nil {
			return nil, fmt.Errorf("report: bad change_24h_pct %q in %s", rec["change_24h_pct"], out.Path)
		}
		rows = append(rows, cryptoRow{
			Coin:   rec["coin"],
			Price:  rec["price_usd"],
			Change: strconv.FormatFloat(change, 'f', 2, 64),
			Trend:  rec["trend"],
		})
	}
	return rows, nil
}

// readCSV loads a header-described CSV into one map per row.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("report: %s has no header row", path)
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
