package weather

import (
	"context"
	"time"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, loc Location) (Reading, error)
	FetchForecast(ctx context.Context, loc Location) ([]ForecastSample, error)
}

// Store is the contract the in-memory store and the SQLite store must satisfy.
type Store interface {
	SaveReport(report Report) error
	GetLatest(loc Location) (Report, error)
	GetRange(loc Location, from, to time.Time) ([]Report, error)
}
