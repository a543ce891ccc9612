package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Weather source kinds selectable via WEATHER_SOURCE.
const (
	WeatherSourceWttr      = "wttr"
	WeatherSourceOpenMeteo = "openmeteo"
)

type AppConfig struct {
	// DataDir is the root for the raw/processed/archive subdirectories.
	DataDir string

	// ReportPath is the markdown document with the managed sections.
	ReportPath string

	// HTTPTimeout applies to every outbound source request.
	HTTPTimeout time.Duration

	// GitHub trending source.
	GitHubToken      string
	TrendingMinStars int
	TrendingLimit    int

	// Weather source selection and tracked cities.
	WeatherSource  string
	WeatherCities  []string
	GeocoderAPIKey string

	// Crypto quotes source. Empty disables the source.
	CryptoCoins []string

	// RunInterval controls the `schedule` command's full-pipeline cadence.
	RunInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; system env vars still apply.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.ReportPath = getenvDefault("REPORT_PATH", "REPORT.md")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.TrendingMinStars = getenvInt("TRENDING_MIN_STARS", 1000)
	cfg.TrendingLimit = getenvInt("TRENDING_LIMIT", 10)

	cfg.WeatherSource = getenvDefault("WEATHER_SOURCE", WeatherSourceWttr)
	if cfg.WeatherSource != WeatherSourceWttr && cfg.WeatherSource != WeatherSourceOpenMeteo {
		return nil, fmt.Errorf("invalid WEATHER_SOURCE %q: must be %q or %q",
			cfg.WeatherSource, WeatherSourceWttr, WeatherSourceOpenMeteo)
	}
	cfg.WeatherCities = splitList(getenvDefault("WEATHER_CITIES",
		"Vancouver,Toronto,Seattle,San Francisco,New York"))
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	if cfg.WeatherSource == WeatherSourceOpenMeteo && cfg.GeocoderAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_SOURCE=openmeteo requires GEOCODER_API_KEY")
	}

	cfg.CryptoCoins = splitList(getenvDefault("CRYPTO_COINS",
		"bitcoin,ethereum,cardano,solana,polkadot"))

	intervalStr := getenvDefault("RUN_INTERVAL", "24h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_INTERVAL: %w", err)
	}
	cfg.RunInterval = interval

	return cfg, nil
}

// RawDir, ProcessedDir and ArchiveDir are the three pipeline directories
// under DataDir.
func (c *AppConfig) RawDir() string       { return filepath.Join(c.DataDir, "raw") }
func (c *AppConfig) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }
func (c *AppConfig) ArchiveDir() string   { return filepath.Join(c.DataDir, "archive") }

// ManifestPath is the processor's run manifest location.
func (c *AppConfig) ManifestPath() string {
	return filepath.Join(c.ProcessedDir(), "manifest.json")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
