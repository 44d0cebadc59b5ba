package weather

import (
	"errors"
	"strings"
	"time"

	"github.com/i474232898/headache-forecast/internal/headache"
)

// ErrLocationNotFound is returned by providers that do not recognise a location.
var ErrLocationNotFound = errors.New("location not found")

// Location represents a place a user asks about.
// City must be provided; Country is an optional ISO code that narrows the search.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	city := strings.ToLower(strings.TrimSpace(l.City))
	country := strings.ToLower(strings.TrimSpace(l.Country))
	return city + ":" + country
}

// Query returns the "city[,country]" form accepted by the providers.
func (l Location) Query() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + "," + l.Country
}

// Reading is a point-in-time observation for a location.
type Reading struct {
	Condition    string  `json:"weatherMain"`
	PressureHpa  float64 `json:"pressure"`
	TemperatureC float64 `json:"temperature"`
	HumidityPct  float64 `json:"humidity"`

	Timestamp    time.Time `json:"timestamp"` // always UTC
	ProviderName string    `json:"provider,omitempty"`
}

// ForecastSample is one interval (typically three hours) of a multi-interval forecast.
type ForecastSample struct {
	Time            time.Time
	Condition       string
	MaxTemperatureC float64
	MinTemperatureC float64
	PressureHpa     float64
}

// DailySummary reduces the samples of one calendar day.
type DailySummary struct {
	Date                    string  `json:"date,omitempty"`
	RepresentativeCondition string  `json:"weather"`
	MaxTemperatureC         float64 `json:"maxTemp"`
	MinTemperatureC         float64 `json:"minTemp"`
	AveragePressureHpa      int     `json:"avgPressure"`
}

// DayForecast holds the summaries for today and tomorrow. Either may be nil
// when the forecast had no samples for that day.
type DayForecast struct {
	Today    *DailySummary `json:"today"`
	Tomorrow *DailySummary `json:"tomorrow"`
}

// Report is everything the service knows about a location at FetchedAt.
type Report struct {
	ID        string           `json:"id"`
	Location  Location         `json:"location"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Current   Reading          `json:"currentWeather"`
	Forecast  DayForecast      `json:"forecast"`
	Risk      headache.Verdict `json:"headacheRisk"`
}
