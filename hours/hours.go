package hours

import (
	"fmt"
	"strings"
	"time"
)

// OutageLayout is the two digit year, 24 hour clock layout used on the outage page.
const OutageLayout = "06-01-02 15:04"

var stockholmLoc *time.Location

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

func init() {
	var err error
	stockholmLoc, err = time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(fmt.Sprintf("failed to load Stockholm location: %v", err))
	}
}

func Stockholm() *time.Location {
	return stockholmLoc
}

func LocationStockholm(t time.Time) time.Time {
	return t.In(stockholmLoc)
}

// ParseOutageTime parses a timestamp like "24-01-15 10:30" as Stockholm wall clock time.
func ParseOutageTime(str string) (time.Time, error) {
	t, err := time.ParseInLocation(OutageLayout, strings.TrimSpace(str), stockholmLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing outage time %q: %w", str, err)
	}
	return t, nil
}

// ParseIso parses an ISO-8601 timestamp and returns it in Stockholm time.
// Timestamps carrying an offset keep their instant, timestamps without one
// are read as Stockholm wall clock time.
func ParseIso(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		return t.In(stockholmLoc), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, str, stockholmLoc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing iso time %q: unsupported format", str)
}

// StartOfDay returns local midnight in Stockholm for the day containing t.
func StartOfDay(t time.Time) time.Time {
	t = t.In(stockholmLoc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, stockholmLoc)
}
