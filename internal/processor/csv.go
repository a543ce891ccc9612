package processor

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// writeCSV creates the file (and any missing directories) and writes a
// header row followed by the data rows.
func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func trendingHeader() []string {
	return []string{"name", "stars", "language", "description", "url"}
}

func trendingRows(records []TrendingRepo) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.Stars),
			r.Language,
			r.Description,
			r.URL,
		})
	}
	return rows
}

func weatherHeader() []string {
	return []string{"city", "temperature_c", "temperature_f", "condition", "humidity", "wind_speed_kmph"}
}

func weatherRows(records []WeatherObservation) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.City,
			strconv.FormatFloat(r.TemperatureC, 'f', 1, 64),
			strconv.FormatFloat(r.TemperatureF, 'f', 1, 64),
			r.Condition,
			strconv.FormatFloat(r.Humidity, 'f', 0, 64),
			strconv.FormatFloat(r.WindSpeedKmph, 'f', 1, 64),
		})
	}
	return rows
}

func cryptoHeader() []string {
	return []string{"coin", "price_usd", "market_cap_usd", "change_24h_pct", "trend"}
}

func cryptoRows(records []CryptoQuote) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Coin,
			strconv.FormatFloat(r.PriceUSD, 'f', 2, 64),
			strconv.FormatFloat(r.MarketCapUSD, 'f', 2, 64),
			strconv.FormatFloat(r.Change24hPct, 'f', 2, 64),
			r.Trend,
		})
	}
	return rows
}
