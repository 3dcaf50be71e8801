// Package weather answers current-conditions questions through the
// Open-Meteo geocoding and forecast APIs. No key is required.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// ErrCityNotFound is returned when geocoding yields no match for the city.
var ErrCityNotFound = errors.New("weather: city not found")

type Client struct {
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithGeocodingURL(u string) Option {
	return func(c *Client) { c.geocodingURL = u }
}

func WithForecastURL(u string) Option {
	return func(c *Client) { c.forecastURL = u }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conditions describes current weather for a resolved city. Humidity is nil
// when the forecast endpoint omits it.
type Conditions struct {
	City        string
	Temperature float64
	WindSpeed   float64
	Description string
	Humidity    *float64
}

type coordinates struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Lookup geocodes the city and fetches its current conditions.
func (c *Client) Lookup(ctx context.Context, city string) (*Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityNotFound
	}
	coords, err := c.geocode(ctx, city)
	if err != nil {
		return nil, err
	}
	return c.current(ctx, coords)
}

func (c *Client) geocode(ctx context.Context, city string) (*coordinates, error) {
	u, err := url.Parse(c.geocodingURL)
	if err != nil {
		return nil, fmt.Errorf("weather: parse geocoding url: %w", err)
	}
	q := u.Query()
	q.Set("name", city)
	q.Set("count", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build geocoding request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: geocode: status %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode geocoding response: %w", err)
	}
	if len(body.Results) == 0 {
		return nil, ErrCityNotFound
	}
	r := body.Results[0]
	return &coordinates{Name: r.Name, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

func (c *Client) current(ctx context.Context, coords *coordinates) (*Conditions, error) {
	u, err := url.Parse(c.forecastURL)
	if err != nil {
		return nil, fmt.Errorf("weather: parse forecast url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", fmt.Sprintf("%g", coords.Latitude))
	q.Set("longitude", fmt.Sprintf("%g", coords.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build forecast request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: forecast: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: forecast: status %d", resp.StatusCode)
	}

	var body struct {
		Current struct {
			Temperature float64  `json:"temperature_2m"`
			Humidity    *float64 `json:"relative_humidity_2m"`
			WeatherCode int      `json:"weather_code"`
			WindSpeed   float64  `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode forecast response: %w", err)
	}

	return &Conditions{
		City:        coords.Name,
		Temperature: body.Current.Temperature,
		WindSpeed:   body.Current.WindSpeed,
		Description: describeCode(body.Current.WeatherCode),
		Humidity:    body.Current.Humidity,
	}, nil
}

// WMO interpretation codes used by Open-Meteo.
var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func describeCode(code int) string {
	if desc, ok := wmoDescriptions[code]; ok {
		return desc
	}
	return "Unknown conditions"
}

// FormatConditions renders conditions as a short spoken-style sentence.
func FormatConditions(cond *Conditions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's the weather in %s: It's currently %.1f°C with %s.",
		cond.City, cond.Temperature, strings.ToLower(cond.Description))
	if cond.WindSpeed > 0 {
		fmt.Fprintf(&b, " The wind is blowing at %.1f km/h.", cond.WindSpeed)
	}
	if cond.Humidity != nil {
		fmt.Fprintf(&b, " Humidity is at %g%%.", *cond.Humidity)
	}
	return b.String()
}
