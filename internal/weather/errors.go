package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned before any network call when no key is configured.
	ErrMissingAPIKey = errors.New("openweather api key is not configured")

	// ErrEmptyLocation is returned for a blank location query.
	ErrEmptyLocation = errors.New("location is empty")

	// ErrDiagnosticsUnsupported is returned when the provider cannot run a test call.
	ErrDiagnosticsUnsupported = errors.New("provider does not support diagnostics")
)

// Stage names which upstream call failed.
type Stage string

const (
	StageCurrent  Stage = "current"
	StageForecast Stage = "forecast"
	StageDiag     Stage = "diag"
)

// UpstreamError means the data source answered, but not with usable data:
// a non-success status or a body that could not be decoded.
type UpstreamError struct {
	Stage      Stage
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Stage, e.StatusCode, e.Message)
}

// TransportError means the data source could not be reached at all.
type TransportError struct {
	Stage Stage
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Stage, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ValidationError reports structurally broken data from the source.
// Index is the sample position, or -1 for the current-conditions payload.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("current conditions: missing or invalid %s", e.Field)
	}
	return fmt.Sprintf("sample %d: missing or invalid %s", e.Index, e.Field)
}

// UserMessage converts a lookup error into the line shown on the page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		upErr  *UpstreamError
		trErr  *TransportError
		valErr *ValidationError
	)

	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "Server missing OPENWEATHER_API_KEY."
	case errors.Is(err, ErrEmptyLocation):
		return "Please enter a city name or zip code."
	case errors.As(err, &upErr):
		msg := upErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		if upErr.Stage == StageForecast {
			return fmt.Sprintf("Forecast error: %d, %s", upErr.StatusCode, msg)
		}
		return fmt.Sprintf("Error: %d, %s", upErr.StatusCode, msg)
	case errors.As(err, &trErr):
		return "Error: weather service unreachable"
	case errors.As(err, &valErr):
		return "Error: malformed forecast data"
	default:
		return "Error: " + err.Error()
	}
}
