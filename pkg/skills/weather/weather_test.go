package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLookupResolvesCityAndConditions(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Paris" {
			t.Errorf("geocode name=%q, want Paris", got)
		}
		w.Write([]byte(`{"results":[{"name":"Paris","latitude":48.85,"longitude":2.35}]}`))
	}))
	defer geo.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "48.85" {
			t.Errorf("latitude=%q, want 48.85", got)
		}
		w.Write([]byte(`{"current":{"temperature_2m":18.4,"relative_humidity_2m":62,"weather_code":2,"wind_speed_10m":11.5}}`))
	}))
	defer forecast.Close()

	c := NewClient(WithGeocodingURL(geo.URL), WithForecastURL(forecast.URL))
	cond, err := c.Lookup(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if cond.City != "Paris" || cond.Temperature != 18.4 {
		t.Fatalf("conditions=%+v", cond)
	}
	if cond.Description != "Partly cloudy" {
		t.Fatalf("description=%q, want Partly cloudy", cond.Description)
	}
	if cond.Humidity == nil || *cond.Humidity != 62 {
		t.Fatalf("humidity=%v, want 62", cond.Humidity)
	}
}

func TestLookupCityNotFound(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer geo.Close()

	c := NewClient(WithGeocodingURL(geo.URL))
	_, err := c.Lookup(context.Background(), "Atlantis")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("err=%v, want ErrCityNotFound", err)
	}

	if _, err := c.Lookup(context.Background(), "   "); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("blank city err=%v, want ErrCityNotFound", err)
	}
}

func TestFormatConditions(t *testing.T) {
	humidity := 62.0
	got := FormatConditions(&Conditions{
		City:        "Paris",
		Temperature: 18.4,
		WindSpeed:   11.5,
		Description: "Partly cloudy",
		Humidity:    &humidity,
	})
	want := "Here's the weather in Paris: It's currently 18.4°C with partly cloudy. The wind is blowing at 11.5 km/h. Humidity is at 62%."
	if got != want {
		t.Fatalf("formatted=%q, want %q", got, want)
	}
}

func TestFormatConditionsOmitsCalmWindAndMissingHumidity(t *testing.T) {
	got := FormatConditions(&Conditions{
		City:        "Oslo",
		Temperature: -3.0,
		WindSpeed:   0,
		Description: "Clear sky",
	})
	if strings.Contains(got, "wind is blowing") {
		t.Fatalf("formatted=%q, want no wind sentence for calm air", got)
	}
	if strings.Contains(got, "Humidity") {
		t.Fatalf("formatted=%q, want no humidity sentence", got)
	}
	if !strings.HasPrefix(got, "Here's the weather in Oslo: It's currently -3.0°C with clear sky.") {
		t.Fatalf("formatted=%q", got)
	}
}

func TestDescribeUnknownCode(t *testing.T) {
	if got := describeCode(42); got != "Unknown conditions" {
		t.Fatalf("describeCode(42)=%q", got)
	}
}
