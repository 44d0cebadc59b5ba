package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/headache-forecast/internal/common"
	"github.com/i474232898/headache-forecast/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider returns an OpenWeatherMap client using metric units and Japanese descriptions.
func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		lang:    "ja",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

// Name identifies the provider in readings and logs.
func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Description string `json:"description"`
}

func (p *OpenWeatherProvider) get(ctx context.Context, path string, loc weather.Location, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lang", p.lang)
		values.Set("q", loc.Query())

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openweather %s: %w", path, err)
	}
	return nil
}

// FetchCurrent returns the current conditions for loc.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	}

	if err := p.get(ctx, "weather", loc, &payload); err != nil {
		return weather.Reading{}, err
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	return weather.Reading{
		ProviderName: p.name,
		Timestamp:    ts,
		Condition:    firstDescription(payload.Weather),
		PressureHpa:  payload.Main.Pressure,
		TemperatureC: common.Round1(payload.Main.Temp),
		HumidityPct:  payload.Main.Humidity,
	}, nil
}

// FetchForecast returns the 3-hourly forecast entries for loc.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc weather.Location) ([]weather.ForecastSample, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				TempMin  float64 `json:"temp_min"`
				TempMax  float64 `json:"temp_max"`
				Pressure float64 `json:"pressure"`
			} `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
	}

	if err := p.get(ctx, "forecast", loc, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		samples = append(samples, weather.ForecastSample{
			Time:            time.Unix(item.Dt, 0).UTC(),
			Condition:       firstDescription(item.Weather),
			MaxTemperatureC: item.Main.TempMax,
			MinTemperatureC: item.Main.TempMin,
			PressureHpa:     item.Main.Pressure,
		})
	}
	return samples, nil
}

func firstDescription(items []owmCondition) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Description
}
