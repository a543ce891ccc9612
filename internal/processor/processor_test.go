package processor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolosh/datapulse/internal/source"
	"github.com/avolosh/datapulse/internal/staging"
)

func newTestProcessor(t *testing.T) (*Processor, *staging.Store, string) {
	t.Helper()

	dir := t.TempDir()
	st, err := staging.NewStore(filepath.Join(dir, "raw"))
	if err != nil {
		t.Fatalf("staging store: %v", err)
	}

	log := zerolog.Nop()
	p := New(st,
		filepath.Join(dir, "processed"),
		filepath.Join(dir, "archive"),
		filepath.Join(dir, "processed", "manifest.json"),
		&log)
	p.now = func() time.Time { return time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC) }

	return p, st, dir
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func trendingFixture() []source.TrendingItem {
	return []source.TrendingItem{
		{Name: "freeCodeCamp/freeCodeCamp", Stars: 456249, Language: "TypeScript", Description: "Learn to code", URL: "https://github.com/freeCodeCamp/freeCodeCamp"},
		{Name: "codecrafters-io/build-your-own-x", Stars: 435818, Language: "Markdown", Description: "Build your own X", URL: "https://github.com/codecrafters-io/build-your-own-x"},
		{Name: "sindresorhus/awesome", Stars: 429292, Language: "N/A", Description: "Awesome lists", URL: "https://github.com/sindresorhus/awesome"},
		{Name: "public-apis/public-apis", Stars: 390947, Language: "Python", Description: "Public APIs", URL: "https://github.com/public-apis/public-apis"},
		{Name: "kamranahmedse/developer-roadmap", Stars: 380432, Language: "TypeScript", Description: "Roadmaps", URL: "https://github.com/kamranahmedse/developer-roadmap"},
	}
}

func TestTransformTrendingPreservesOrderAndValues(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	records, err := p.TransformTrending(mustMarshal(t, trendingFixture()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStars := []int{456249, 435818, 429292, 390947, 380432}
	if len(records) != len(wantStars) {
		t.Fatalf("records: got %d, want %d", len(records), len(wantStars))
	}
	for i, want := range wantStars {
		if records[i].Stars != want {
			t.Errorf("record %d stars: got %d, want %d", i, records[i].Stars, want)
		}
	}
}

func TestTransformTrendingDropsInvalid(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.TrendingItem{
		{Name: "good/repo", Stars: 100, URL: "https://github.com/good/repo"},
		{Name: "", Stars: 50, URL: "https://github.com/anon/repo"},       // missing name
		{Name: "bad/stars", Stars: -1, URL: "https://github.com/bad/s"},  // negative stars
		{Name: "bad/url", Stars: 10, URL: "not a url"},                   // invalid url
	}

	records, err := p.TransformTrending(mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "good/repo" {
		t.Errorf("expected only good/repo to survive, got %+v", records)
	}
}

func TestTransformTrendingDeduplicates(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.TrendingItem{
		{Name: "dup/repo", Stars: 100, URL: "https://github.com/dup/repo"},
		{Name: "dup/repo", Stars: 200, URL: "https://github.com/dup/repo"},
	}

	records, err := p.TransformTrending(mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	if records[0].Stars != 100 {
		t.Errorf("dedup should keep the first occurrence, got stars %d", records[0].Stars)
	}
}

func TestTransformWeatherCoercesAndConverts(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.WeatherItem{
		{City: "Vancouver", TemperatureC: "17", TemperatureF: "63", Condition: "Partly cloudy", Humidity: "72", WindSpeedKmph: "11"},
		// Celsius-only source: Fahrenheit must be derived.
		{City: "Toronto", TemperatureC: "20", Condition: "Clear", Humidity: "55", WindSpeedKmph: "9.5"},
	}

	records, err := p.TransformWeather("wttr", mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].TemperatureC != 17 || records[0].Humidity != 72 {
		t.Errorf("coercion: got %+v", records[0])
	}
	if records[1].TemperatureF != 68 {
		t.Errorf("derived fahrenheit: got %v, want 68", records[1].TemperatureF)
	}
}

func TestTransformWeatherEnforcesInvariants(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.WeatherItem{
		{City: "Vancouver", TemperatureC: "17", Humidity: "72", WindSpeedKmph: "11"},
		{City: "Hothouse", TemperatureC: "17", Humidity: "150", WindSpeedKmph: "11"},  // humidity out of range
		{City: "Cryostat", TemperatureC: "-120", Humidity: "50", WindSpeedKmph: "11"}, // impossible temperature
		{City: "Garbagetown", TemperatureC: "n/a", Humidity: "50", WindSpeedKmph: "11"},
	}

	records, err := p.TransformWeather("wttr", mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].City != "Vancouver" {
		t.Errorf("expected only Vancouver to survive, got %+v", records)
	}
	for _, r := range records {
		if r.Humidity < 0 || r.Humidity > 100 {
			t.Errorf("humidity invariant violated: %+v", r)
		}
	}
}

func TestTransformWeatherDeduplicatesByCity(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.WeatherItem{
		{City: "Vancouver", TemperatureC: "17", Humidity: "72", WindSpeedKmph: "11"},
		{City: "Vancouver", TemperatureC: "18", Humidity: "70", WindSpeedKmph: "12"},
	}

	records, err := p.TransformWeather("wttr", mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records: got %d, want 1", len(records))
	}
}

func TestTransformCryptoTrend(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	items := []source.CryptoItem{
		{Coin: "bitcoin", PriceUSD: 64250.10, MarketCapUSD: 1.25e12, Change24hPct: 2.35},
		{Coin: "ethereum", PriceUSD: 3125.44, MarketCapUSD: 3.75e11, Change24hPct: -1.2},
	}

	records, err := p.TransformCrypto(mustMarshal(t, items))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].Trend != "up" {
		t.Errorf("bitcoin trend: got %q, want up", records[0].Trend)
	}
	if records[1].Trend != "down" {
		t.Errorf("ethereum trend: got %q, want down", records[1].Trend)
	}
}

func TestTransformIdempotence(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	payload := mustMarshal(t, trendingFixture())

	first, err := p.TransformTrending(payload)
	if err != nil {
		t.Fatalf("first transform: %v", err)
	}
	second, err := p.TransformTrending(payload)
	if err != nil {
		t.Fatalf("second transform: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("reprocessing the same payload produced different records")
	}
}

func TestProcessorRun(t *testing.T) {
	p, st, dir := newTestProcessor(t)

	rec := staging.RawRecord{
		Source:      "github",
		CollectedAt: time.Date(2026, 8, 26, 5, 0, 0, 0, time.UTC),
		Data:        mustMarshal(t, trendingFixture()),
	}
	if _, err := st.Save(rec); err != nil {
		t.Fatalf("stage fixture: %v", err)
	}

	// wttr has nothing staged: it must be skipped, not fatal.
	m, err := p.Run([]string{"github", "wttr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.Sources) != 1 {
		t.Fatalf("manifest sources: got %d, want 1", len(m.Sources))
	}
	out, ok := m.Sources["github"]
	if !ok {
		t.Fatal("manifest missing github output")
	}
	if out.Records != 5 {
		t.Errorf("records: got %d, want 5", out.Records)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("processed csv missing: %v", err)
	}

	archive := filepath.Join(dir, "archive", "github_2026-08-26.csv")
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive copy missing: %v", err)
	}

	loaded, err := ReadManifest(filepath.Join(dir, "processed", "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if loaded.RunID != m.RunID {
		t.Errorf("manifest run id: got %q, want %q", loaded.RunID, m.RunID)
	}
}

func TestProcessorRunSkipsCorruptStagedFile(t *testing.T) {
	p, st, dir := newTestProcessor(t)

	weather := staging.RawRecord{
		Source:      "wttr",
		CollectedAt: time.Date(2026, 8, 26, 5, 0, 0, 0, time.UTC),
		Data: mustMarshal(t, []source.WeatherItem{
			{City: "Vancouver", TemperatureC: "17", TemperatureF: "63", Humidity: "72", WindSpeedKmph: "11"},
		}),
	}
	if _, err := st.Save(weather); err != nil {
		t.Fatalf("stage fixture: %v", err)
	}

	corrupt := filepath.Join(dir, "raw", "github_20260826_050000.json")
	if err := os.WriteFile(corrupt, []byte(`{"source": "github", "data": [`), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	// The corrupt github file must not take down the healthy wttr output.
	m, err := p.Run([]string{"github", "wttr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := m.Sources["github"]; ok {
		t.Error("corrupt source should have no manifest entry")
	}
	out, ok := m.Sources["wttr"]
	if !ok {
		t.Fatal("manifest missing wttr output")
	}
	if out.Records != 1 {
		t.Errorf("records: got %d, want 1", out.Records)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("processed csv missing: %v", err)
	}
}

func TestProcessorRunEmptyStaging(t *testing.T) {
	p, _, dir := newTestProcessor(t)

	m, err := p.Run([]string{"github", "wttr", "coingecko"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sources) != 0 {
		t.Errorf("expected empty manifest, got %d sources", len(m.Sources))
	}
	// The no-data state is still explicit: the manifest exists.
	if _, err := os.Stat(filepath.Join(dir, "processed", "manifest.json")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
}
