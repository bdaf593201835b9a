package weather

import (
	"time"
)

// Units selects the measurement system requested from the data source.
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsMetric   Units = "metric"
	UnitsStandard Units = "standard"
)

// TempSymbol returns the suffix shown next to temperatures.
func (u Units) TempSymbol() string {
	switch u {
	case UnitsMetric:
		return "°C"
	case UnitsStandard:
		return "K"
	default:
		return "°F"
	}
}

// Location identifies what the user asked for.
// Exactly one of City or Zip is set.
type Location struct {
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Key returns a canonical string key for logging.
func (l Location) Key() string {
	if l.Zip != "" {
		return l.Zip + ":" + l.Country
	}
	return l.City
}

// Current is the current-conditions block shown above the forecast.
type Current struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon,omitempty"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind"`
}

// Sample is one forecast data point from the 3-hour forecast feed.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temp"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// DaySummary is the aggregated view of one calendar day.
type DaySummary struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	MinTemp     float64 `json:"min_temp"`
	MaxTemp     float64 `json:"max_temp"`
	Description string  `json:"desc"`
	Icon        string  `json:"icon"`
}

// ForecastData is the decoded forecast feed.
type ForecastData struct {
	City string
	// UTCOffset is the city's offset from UTC in seconds as reported by the source.
	UTCOffset int
	Samples   []Sample
}

// Report is everything a single lookup produces.
type Report struct {
	Location Location     `json:"location"`
	Units    Units        `json:"units"`
	Current  *Current     `json:"current,omitempty"`
	Days     []DaySummary `json:"forecast"`
	Samples  []Sample     `json:"samples,omitempty"`
}

// Diagnosis is the raw outcome of a test call against the data source.
type Diagnosis struct {
	RequestParams map[string]string `json:"request_params_sanitized"`
	StatusCode    int               `json:"status_code"`
	OK            bool              `json:"ok"`
	Body          any               `json:"body_excerpt"`
}
