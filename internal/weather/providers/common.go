package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// maxBodyBytes bounds how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// maxMessageBytes bounds error text copied from a non-JSON body.
const maxMessageBytes = 300

// HTTPClientConfig bundles the HTTP client and its instrumentation.
type HTTPClientConfig struct {
	Client  *http.Client
	Clock   clockwork.Clock
	Metrics *observability.Metrics
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// upstreamResponse is a fully read upstream response.
type upstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (r upstreamResponse) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// doRequest executes the request behind the circuit breaker (when cb is not nil).
// Only transport failures, 429 and 5xx count against the breaker; any response that
// arrived is returned to the caller regardless of status. Failures to get a response
// come back as *weather.TransportError.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	stage weather.Stage,
	buildRequest func() (*http.Request, error),
) (upstreamResponse, error) {
	if cfg.Client == nil {
		return upstreamResponse{}, &weather.TransportError{Stage: stage, Cause: errNoHTTPClient}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	req, err := buildRequest()
	if err != nil {
		return upstreamResponse{}, &weather.TransportError{Stage: stage, Cause: err}
	}
	req = req.WithContext(ctx)

	call := func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, readErr
		}

		r := upstreamResponse{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return r, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return r, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		return r, nil
	}

	start := clock.Now()
	var result interface{}
	if cb != nil {
		result, err = cb.Execute(call)
	} else {
		result, err = call()
	}
	elapsed := clock.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		cfg.Metrics.ObserveUpstream(string(stage), "circuit_open", elapsed)
		return upstreamResponse{}, &weather.TransportError{
			Stage: stage,
			Cause: fmt.Errorf("%w: %v", errCircuitOpen, err),
		}
	}

	if resp, ok := result.(upstreamResponse); ok {
		outcome := "success"
		if !resp.ok() {
			outcome = "upstream_error"
		}
		cfg.Metrics.ObserveUpstream(string(stage), outcome, elapsed)
		return resp, nil
	}

	cfg.Metrics.ObserveUpstream(string(stage), "transport_error", elapsed)
	if err == nil {
		err = fmt.Errorf("unexpected result type from circuit breaker")
	}
	return upstreamResponse{}, &weather.TransportError{Stage: stage, Cause: err}
}

// checkStatus converts a non-success response into *weather.UpstreamError.
func checkStatus(stage weather.Stage, resp upstreamResponse) error {
	if resp.ok() {
		return nil
	}
	return &weather.UpstreamError{
		Stage:      stage,
		StatusCode: resp.StatusCode,
		Message:    extractMessage(resp),
	}
}

// decodeJSON unmarshals a successful response, reporting garbage as an upstream error.
func decodeJSON(stage weather.Stage, resp upstreamResponse, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &weather.UpstreamError{
			Stage:      stage,
			StatusCode: resp.StatusCode,
			Message:    "malformed JSON response",
		}
	}
	return nil
}

// extractMessage pulls a human readable message out of an error body. JSON bodies
// use their "message" field; anything else is returned as trimmed text.
func extractMessage(resp upstreamResponse) string {
	if common.IsJSONContentType(resp.ContentType) {
		var payload struct {
			Message any `json:"message"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Message != nil {
			if s, ok := payload.Message.(string); ok {
				return s
			}
			return fmt.Sprint(payload.Message)
		}
		return ""
	}
	return common.Truncate(strings.TrimSpace(string(resp.Body)), maxMessageBytes)
}
