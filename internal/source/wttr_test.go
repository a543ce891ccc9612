package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const wttrPayload = `{
  "current_condition": [
    {"temp_C": "17", "temp_F": "63", "humidity": "72", "windspeedKmph": "11",
     "weatherDesc": [{"value": "Partly cloudy"}]}
  ]
}`

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestWttrSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(wttrPayload))
	}))
	defer srv.Close()

	s := NewWttrSource(srv.Client(), []string{"Vancouver", "Toronto"}, testLogger())
	s.baseURL = srv.URL

	payload, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []WeatherItem
	if err := json.Unmarshal(payload, &items); err != nil {
		t.Fatalf("decode staged payload: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if items[0].City != "Vancouver" || items[0].TemperatureC != "17" {
		t.Errorf("first item: got %+v", items[0])
	}
	if items[0].Condition != "Partly cloudy" {
		t.Errorf("condition: got %q", items[0].Condition)
	}
	if items[0].Humidity != "72" {
		t.Errorf("humidity: got %q, want raw string %q", items[0].Humidity, "72")
	}
}

func TestWttrSourceSkipsFailingCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Toronto") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(wttrPayload))
	}))
	defer srv.Close()

	s := NewWttrSource(srv.Client(), []string{"Vancouver", "Toronto"}, testLogger())
	s.baseURL = srv.URL

	payload, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []WeatherItem
	if err := json.Unmarshal(payload, &items); err != nil {
		t.Fatalf("decode staged payload: %v", err)
	}
	if len(items) != 1 || items[0].City != "Vancouver" {
		t.Errorf("expected only Vancouver, got %+v", items)
	}
}

func TestWttrSourceAllCitiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewWttrSource(srv.Client(), []string{"Vancouver"}, testLogger())
	s.baseURL = srv.URL

	if _, err := s.Fetch(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestWttrSourceMissingCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_condition": []}`))
	}))
	defer srv.Close()

	s := NewWttrSource(srv.Client(), []string{"Vancouver"}, testLogger())
	s.baseURL = srv.URL

	if _, err := s.Fetch(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}
