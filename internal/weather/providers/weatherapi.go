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

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIProvider returns a WeatherAPI.com client requesting Japanese condition text.
func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		lang:    "ja",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

// Name identifies the provider in readings and logs.
func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

func (p *WeatherAPIProvider) get(ctx context.Context, path string, loc weather.Location, extra url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("lang", p.lang)
		// WeatherAPI uses "q" for location; it accepts "city,country".
		values.Set("q", loc.Query())
		for k, v := range extra {
			values[k] = v
		}

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weatherapi %s: %w", path, err)
	}
	return nil
}

// FetchCurrent returns the latest observation for loc.
func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	var payload struct {
		Current struct {
			LastUpdatedEpoch int64               `json:"last_updated_epoch"`
			TempC            float64             `json:"temp_c"`
			Humidity         float64             `json:"humidity"`
			PressureMb       float64             `json:"pressure_mb"`
			Condition        weatherAPICondition `json:"condition"`
		} `json:"current"`
	}

	if err := p.get(ctx, "current.json", loc, nil, &payload); err != nil {
		return weather.Reading{}, err
	}

	ts := time.Now().UTC()
	if payload.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	// 1 mb == 1 hPa.
	return weather.Reading{
		ProviderName: p.name,
		Timestamp:    ts,
		Condition:    payload.Current.Condition.Text,
		PressureHpa:  payload.Current.PressureMb,
		TemperatureC: common.Round1(payload.Current.TempC),
		HumidityPct:  payload.Current.Humidity,
	}, nil
}

// FetchForecast returns hourly entries as samples. An hour has a single
// temperature, so it is both the sample's max and min.
//
// forecastday blocks follow the location's local calendar, so three of them
// are needed to cover the UTC today and tomorrow in every zone.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc weather.Location) ([]weather.ForecastSample, error) {
	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch  int64               `json:"time_epoch"`
					TempC      float64             `json:"temp_c"`
					PressureMb float64             `json:"pressure_mb"`
					Condition  weatherAPICondition `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	extra := url.Values{}
	extra.Set("days", "3")
	if err := p.get(ctx, "forecast.json", loc, extra, &payload); err != nil {
		return nil, err
	}

	var samples []weather.ForecastSample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			samples = append(samples, weather.ForecastSample{
				Time:            time.Unix(h.TimeEpoch, 0).UTC(),
				Condition:       h.Condition.Text,
				MaxTemperatureC: h.TempC,
				MinTemperatureC: h.TempC,
				PressureHpa:     h.PressureMb,
			})
		}
	}
	return samples, nil
}
