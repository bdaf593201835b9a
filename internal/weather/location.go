package weather

import (
	"fmt"
	"strings"
	"time"
)

// ParseLocation turns free user input into a Location. Pure digits are a ZIP code in
// defaultCountry; "digits,CC" is a ZIP code in CC; anything else is a city query.
func ParseLocation(input, defaultCountry string) (Location, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return Location{}, ErrEmptyLocation
	}

	zip, country, hasComma := strings.Cut(in, ",")
	zip = strings.TrimSpace(zip)
	country = strings.TrimSpace(country)

	if isDigits(zip) {
		if !hasComma || country == "" {
			country = defaultCountry
		}
		return Location{Zip: zip, Country: strings.ToUpper(country)}, nil
	}
	return Location{City: in}, nil
}

// ParseUnits validates a units name; empty means def.
func ParseUnits(s string, def Units) (Units, error) {
	switch u := Units(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return def, nil
	case UnitsImperial, UnitsMetric, UnitsStandard:
		return u, nil
	default:
		return "", fmt.Errorf("unknown units %q", s)
	}
}

// DayZone picks the time zone used to split samples into calendar days.
// The argument is the city's UTC offset in seconds as reported by the data source.
type DayZone func(utcOffset int) *time.Location

// ParseDayZone understands "local" (server zone), "city" (the forecast city's offset)
// and IANA zone names.
func ParseDayZone(name string) (DayZone, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return func(int) *time.Location { return time.Local }, nil
	case "city":
		return func(off int) *time.Location { return time.FixedZone("city", off) }, nil
	}

	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("invalid forecast time zone %q: %w", name, err)
	}
	return func(int) *time.Location { return loc }, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
