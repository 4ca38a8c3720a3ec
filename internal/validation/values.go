package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// sortedKeys makes map iteration deterministic so repeated validation of the
// same input yields identically ordered errors.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringValue narrows an any-typed form value to a trimmed string at the
// engine boundary. The bool result is false when the field is absent or empty.
func stringValue(formData map[string]any, field string) (string, bool) {
	raw, ok := formData[field]
	if !ok || raw == nil {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func isEmpty(formData map[string]any, field string) bool {
	_, ok := stringValue(formData, field)
	return !ok
}

func parseNumber(s string) (float64, bool) {
	// Accept both French decimal commas and plain floats.
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// monthsBetween returns the elapsed calendar months from a to b, rounded to
// the nearest month using the day of month as a half-month tiebreaker.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day()-15 {
		months--
	} else if b.Day() > a.Day()+15 {
		months++
	}
	return months
}
