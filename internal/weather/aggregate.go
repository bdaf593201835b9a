package weather

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxForecastDays caps the number of daily summaries.
const MaxForecastDays = 5

const dateLayout = "2006-01-02"

// AggregateDaily groups samples by calendar date in zone and summarizes each day.
// Days come out in ascending order, at most MaxForecastDays of them. Temperatures are
// rounded to one decimal, half away from zero. Description and icon are the most
// frequent values of the day; ties go to the value seen first in samples.
// A nil zone means UTC.
func AggregateDaily(samples []Sample, zone *time.Location) ([]DaySummary, error) {
	if zone == nil {
		zone = time.UTC
	}

	buckets := make(map[string][]Sample)
	for i, s := range samples {
		if err := s.validate(i); err != nil {
			return nil, err
		}
		k := s.Timestamp.In(zone).Format(dateLayout)
		buckets[k] = append(buckets[k], s)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > MaxForecastDays {
		keys = keys[:MaxForecastDays]
	}

	days := make([]DaySummary, 0, len(keys))
	for _, k := range keys {
		days = append(days, summarizeDay(k, buckets[k]))
	}
	return days, nil
}

func summarizeDay(date string, samples []Sample) DaySummary {
	minT, maxT := samples[0].Temperature, samples[0].Temperature
	descs := make([]string, 0, len(samples))
	icons := make([]string, 0, len(samples))

	for _, s := range samples {
		minT = math.Min(minT, s.Temperature)
		maxT = math.Max(maxT, s.Temperature)
		descs = append(descs, s.Description)
		icons = append(icons, s.Icon)
	}

	return DaySummary{
		Date:        date,
		MinTemp:     RoundTenth(minT),
		MaxTemp:     RoundTenth(maxT),
		Description: Capitalize(modal(descs)),
		Icon:        modal(icons),
	}
}

// modal returns the most frequent value. Counting happens in a map, but the winner is
// picked by walking values in first-seen order so ties are reproducible.
func modal(values []string) string {
	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// RoundTenth rounds to one decimal place, half away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func (s Sample) validate(i int) error {
	switch {
	case s.Timestamp.IsZero():
		return &ValidationError{Index: i, Field: "timestamp"}
	case math.IsNaN(s.Temperature) || math.IsInf(s.Temperature, 0):
		return &ValidationError{Index: i, Field: "temperature"}
	case s.Description == "":
		return &ValidationError{Index: i, Field: "description"}
	case s.Icon == "":
		return &ValidationError{Index: i, Field: "icon"}
	}
	return nil
}
