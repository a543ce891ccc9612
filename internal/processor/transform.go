package processor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/avolosh/datapulse/internal/source"
)

// TrendingRepo is the normalized repository record.
type TrendingRepo struct {
	Name        string `validate:"required"`
	Stars       int    `validate:"gte=0"`
	Language    string
	Description string
	URL         string `validate:"required,url"`
}

// WeatherObservation is the normalized per-city record. Invariants mirror
// what the upstream sources declare: humidity is a percentage, temperature
// stays within observed terrestrial bounds.
type WeatherObservation struct {
	City          string  `validate:"required"`
	TemperatureC  float64 `validate:"gte=-90,lte=60"`
	TemperatureF  float64
	Condition     string
	Humidity      float64 `validate:"gte=0,lte=100"`
	WindSpeedKmph float64 `validate:"gte=0"`
}

// CryptoQuote is the normalized per-coin record.
type CryptoQuote struct {
	Coin         string  `validate:"required"`
	PriceUSD     float64 `validate:"gte=0"`
	MarketCapUSD float64 `validate:"gte=0"`
	Change24hPct float64
	Trend        string
}

// ValidationError reports a record that violated a declared invariant. The
// record is dropped; the run continues.
type ValidationError struct {
	Source string
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s record %q: %s", e.Source, e.Key, e.Reason)
}

// TransformTrending decodes staged repository items, drops duplicates by
// full name, and validates each record. Input order is preserved.
func (p *Processor) TransformTrending(data json.RawMessage) ([]TrendingRepo, error) {
	var items []source.TrendingItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode staged github payload: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]TrendingRepo, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.Name]; dup {
			p.log.Debug().Str("source", "github").Str("repo", it.Name).Msg("duplicate dropped")
			continue
		}
		seen[it.Name] = struct{}{}

		rec := TrendingRepo{
			Name:        strings.TrimSpace(it.Name),
			Stars:       it.Stars,
			Language:    it.Language,
			Description: it.Description,
			URL:         it.URL,
		}
		if err := p.validate.Struct(rec); err != nil {
			p.dropInvalid("github", rec.Name, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// TransformWeather decodes staged observations, coerces the upstream string
// fields to numbers, derives Fahrenheit when the source reports Celsius
// only, drops duplicates by city, and validates each record.
func (p *Processor) TransformWeather(sourceName string, data json.RawMessage) ([]WeatherObservation, error) {
	var items []source.WeatherItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode staged %s payload: %w", sourceName, err)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]WeatherObservation, 0, len(items))
	for _, it := range items {
		city := strings.TrimSpace(it.City)
		if _, dup := seen[city]; dup {
			p.log.Debug().Str("source", sourceName).Str("city", city).Msg("duplicate dropped")
			continue
		}
		seen[city] = struct{}{}

		tempC, err := strconv.ParseFloat(it.TemperatureC, 64)
		if err != nil {
			p.dropInvalid(sourceName, city, fmt.Errorf("unparsable temperature_c %q", it.TemperatureC))
			continue
		}

		tempF := celsiusToFahrenheit(tempC)
		if it.TemperatureF != "" {
			tempF, err = strconv.ParseFloat(it.TemperatureF, 64)
			if err != nil {
				p.dropInvalid(sourceName, city, fmt.Errorf("unparsable temperature_f %q", it.TemperatureF))
				continue
			}
		}

		humidity, err := strconv.ParseFloat(it.Humidity, 64)
		if err != nil {
			p.dropInvalid(sourceName, city, fmt.Errorf("unparsable humidity %q", it.Humidity))
			continue
		}

		wind, err := strconv.ParseFloat(it.WindSpeedKmph, 64)
		if err != nil {
			p.dropInvalid(sourceName, city, fmt.Errorf("unparsable wind_speed_kmph %q", it.WindSpeedKmph))
			continue
		}

		rec := WeatherObservation{
			City:          city,
			TemperatureC:  tempC,
			TemperatureF:  tempF,
			Condition:     it.Condition,
			Humidity:      humidity,
			WindSpeedKmph: wind,
		}
		if err := p.validate.Struct(rec); err != nil {
			p.dropInvalid(sourceName, city, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// TransformCrypto decodes staged quotes, drops duplicates by coin id, tags
// each with an up/down trend, and validates.
func (p *Processor) TransformCrypto(data json.RawMessage) ([]CryptoQuote, error) {
	var items []source.CryptoItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode staged coingecko payload: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]CryptoQuote, 0, len(items))
	for _, it := range items {
		coin := strings.TrimSpace(it.Coin)
		if _, dup := seen[coin]; dup {
			continue
		}
		seen[coin] = struct{}{}

		trend := "down"
		if it.Change24hPct > 0 {
			trend = "up"
		}

		rec := CryptoQuote{
			Coin:         coin,
			PriceUSD:     it.PriceUSD,
			MarketCapUSD: it.MarketCapUSD,
			Change24hPct: it.Change24hPct,
			Trend:        trend,
		}
		if err := p.validate.Struct(rec); err != nil {
			p.dropInvalid("coingecko", coin, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Processor) dropInvalid(sourceName, key string, err error) {
	verr := &ValidationError{Source: sourceName, Key: key, Reason: err.Error()}
	p.log.Warn().Str("source", sourceName).Str("record", key).Err(verr).Msg("record dropped")
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
