package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type AppConfig struct {
	// OpenWeatherAPIKey may be empty; lookups then report a configuration error.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout bounds each outbound call.
	HTTPTimeout time.Duration

	DefaultCountry string
	DefaultUnits   weather.Units

	// ForecastTimezone is the raw FORECAST_TIMEZONE value; DayZone is its parsed form.
	ForecastTimezone string
	DayZone          weather.DayZone

	// DiagLocation is used by /diag and the upstream probe.
	DiagLocation string

	// ProbeInterval controls the upstream probe (0 = disabled).
	ProbeInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %q", os.Getenv("HTTP_TIMEOUT"))
	}
	cfg.HTTPTimeout = timeout

	cfg.DefaultCountry = strings.ToUpper(getenvDefault("DEFAULT_COUNTRY", "US"))

	units, err := weather.ParseUnits(os.Getenv("DEFAULT_UNITS"), weather.UnitsImperial)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_UNITS: %w", err)
	}
	cfg.DefaultUnits = units

	cfg.ForecastTimezone = getenvDefault("FORECAST_TIMEZONE", "local")
	zone, err := weather.ParseDayZone(cfg.ForecastTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_TIMEZONE: %w", err)
	}
	cfg.DayZone = zone

	cfg.DiagLocation = getenvDefault("DIAG_LOCATION", "75040")

	// Probe interval: disabled unless set.
	probe, err := time.ParseDuration(getenvDefault("PROBE_INTERVAL", "0s"))
	if err != nil || probe < 0 {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL: %q", os.Getenv("PROBE_INTERVAL"))
	}
	cfg.ProbeInterval = probe

	cfg.Port = getenvDefault("PORT", "5000")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
