package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// WeatherItem is the staged shape of one city observation. Values stay as
// the upstream strings; type coercion is the processor's job.
type WeatherItem struct {
	City          string `json:"city"`
	TemperatureC  string `json:"temperature_c"`
	TemperatureF  string `json:"temperature_f"`
	Condition     string `json:"condition"`
	Humidity      string `json:"humidity"`
	WindSpeedKmph string `json:"wind_speed_kmph"`
}

// WttrSource fetches current conditions from wttr.in, which needs no API key.
// One request per configured city; a failing city is skipped, not fatal.
type WttrSource struct {
	name    string
	baseURL string
	cities  []string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zerolog.Logger
}

func NewWttrSource(client *http.Client, cities []string, log *zerolog.Logger) *WttrSource {
	return &WttrSource{
		name:    "wttr",
		baseURL: "https://wttr.in",
		cities:  cities,
		client:  client,
		circuit: newBreaker("wttr"),
		log:     log,
	}
}

func (s *WttrSource) Name() string {
	return s.name
}

func (s *WttrSource) Fetch(ctx context.Context) (json.RawMessage, error) {
	items := make([]WeatherItem, 0, len(s.cities))
	var lastErr error

	for _, city := range s.cities {
		item, err := s.fetchCity(ctx, city)
		if err != nil {
			lastErr = err
			s.log.Warn().Str("source", s.name).Str("city", city).Err(err).
				Msg("city fetch failed, skipping")
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: no cities configured", ErrUnavailable)
	}

	return json.Marshal(items)
}

func (s *WttrSource) fetchCity(ctx context.Context, city string) (WeatherItem, error) {
	u := fmt.Sprintf("%s/%s?format=j1", s.baseURL, url.PathEscape(city))
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return WeatherItem{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := doRequest(ctx, s.client, s.circuit, req)
	if err != nil {
		return WeatherItem{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentCondition []struct {
			TempC         string `json:"temp_C"`
			TempF         string `json:"temp_F"`
			Humidity      string `json:"humidity"`
			WindspeedKmph string `json:"windspeedKmph"`
			WeatherDesc   []struct {
				Value string `json:"value"`
			} `json:"weatherDesc"`
		} `json:"current_condition"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WeatherItem{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(payload.CurrentCondition) == 0 {
		return WeatherItem{}, fmt.Errorf("%w: missing current_condition", ErrMalformedResponse)
	}

	current := payload.CurrentCondition[0]
	condition := ""
	if len(current.WeatherDesc) > 0 {
		condition = current.WeatherDesc[0].Value
	}

	return WeatherItem{
		City:          city,
		TemperatureC:  current.TempC,
		TemperatureF:  current.TempF,
		Condition:     condition,
		Humidity:      current.Humidity,
		WindSpeedKmph: current.WindspeedKmph,
	}, nil
}
