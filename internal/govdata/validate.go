package govdata

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// postcodeRe matches a UK postcode with all whitespace removed.
var postcodeRe = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]?[0-9][A-Z]{2}$`)

var uprnRe = regexp.MustCompile(`^[0-9]{1,12}$`)

// NormalisePostcode validates a UK postcode and returns it as "OUTWARD INWARD".
func NormalisePostcode(raw string) (string, error) {
	compact := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if compact == "" {
		return "", domain.Invalid("postcode is required")
	}
	if !postcodeRe.MatchString(compact) {
		return "", domain.Invalid("postcode %q is not a valid UK postcode", raw)
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:], nil
}

func validateCoordinates(lat, lng *float64) error {
	if lat == nil || lng == nil {
		return domain.Invalid("latitude and longitude are required")
	}
	if *lat < -90 || *lat > 90 {
		return domain.Invalid("latitude must be between -90 and 90")
	}
	if *lng < -180 || *lng > 180 {
		return domain.Invalid("longitude must be between -180 and 180")
	}
	return nil
}

// coordKey rounds to 4 decimal places, roughly 11 metres, so nearby lookups
// share a cache entry.
func coordKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

func validateMonth(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return "", domain.Invalid("date must be in YYYY-MM format")
	}
	if month.After(now) {
		return "", domain.Invalid("date must not be in the future")
	}
	return month.Format("2006-01"), nil
}

func limitText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) > max {
		return "", domain.Invalid("%s must be at most %d characters", field, max)
	}
	return value, nil
}
