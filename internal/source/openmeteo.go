package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// OpenMeteoSource fetches current conditions from Open-Meteo. The API itself
// is keyless but addresses locations by coordinates, so city names are
// resolved through the Google geocoding API.
type OpenMeteoSource struct {
	name    string
	baseURL string
	cities  []string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *zerolog.Logger

	// geocode resolves a city name to coordinates. Overridable in tests.
	geocode func(city string) (lat, lon float64, err error)
}

func NewOpenMeteoSource(client *http.Client, cities []string, geocoderAPIKey string, log *zerolog.Logger) *OpenMeteoSource {
	geocoder.ApiKey = geocoderAPIKey

	return &OpenMeteoSource{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		cities:  cities,
		client:  client,
		circuit: newBreaker("openmeteo"),
		log:     log,
		geocode: func(city string) (float64, float64, error) {
			loc, err := geocoder.Geocoding(geocoder.Address{City: city})
			if err != nil {
				return 0, 0, err
			}
			return loc.Latitude, loc.Longitude, nil
		},
	}
}

func (s *OpenMeteoSource) Name() string {
	return s.name
}

func (s *OpenMeteoSource) Fetch(ctx context.Context) (json.RawMessage, error) {
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

func (s *OpenMeteoSource) fetchCity(ctx context.Context, city string) (WeatherItem, error) {
	lat, lon, err := s.geocode(city)
	if err != nil {
		return WeatherItem{}, fmt.Errorf("%w: geocoding %q: %v", ErrUnavailable, city, err)
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")

	req, err := http.NewRequest(http.MethodGet, s.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return WeatherItem{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := doRequest(ctx, s.client, s.circuit, req)
	if err != nil {
		return WeatherItem{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"` // km/h by default
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WeatherItem{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// Open-Meteo reports Celsius only; the processor derives Fahrenheit.
	return WeatherItem{
		City:          city,
		TemperatureC:  strconv.FormatFloat(payload.Current.Temperature, 'f', 1, 64),
		Condition:     conditionFromCode(payload.Current.WeatherCode),
		Humidity:      strconv.FormatFloat(payload.Current.Humidity, 'f', 0, 64),
		WindSpeedKmph: strconv.FormatFloat(payload.Current.WindSpeed, 'f', 1, 64),
	}, nil
}

// conditionFromCode maps Open-Meteo weather codes to a coarse description.
func conditionFromCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Cloudy"
	case code >= 45 && code <= 48:
		return "Fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
