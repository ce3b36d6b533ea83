// Package present formats prices and outages for people. Nothing in here
// feeds back into fetching or extraction.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/icodeforyou/malar-go/types"
)

// Relative describes t relative to now, e.g. "3 hours ago" or "2 hours from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Duration describes the length of [start, end] in whole hours and minutes.
func Duration(start, end time.Time) string {
	d := end.Sub(start).Round(time.Minute)
	if d <= 0 {
		return "0m"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func Customers(n int) string {
	if n == 1 {
		return "1 customer"
	}
	return humanize.Comma(int64(n)) + " customers"
}

func Price(p types.PriceInterval) string {
	return fmt.Sprintf("%s öre/kWh (%s–%s)",
		humanize.Comma(p.Price),
		p.Start.Format("15:04"),
		p.End.Format("15:04"))
}

// Outage renders a single line summary of an outage.
func Outage(o types.OutageRecord, now time.Time) string {
	return fmt.Sprintf("%s in %s, %s, %s affected, started %s, expected to last %s",
		o.Service.DisplayName(),
		strings.Join(o.Locations, ", "),
		strings.ToLower(o.Status.DisplayName()),
		Customers(o.AffectedCustomers),
		Relative(o.Start, now),
		Duration(o.Start, o.End))
}
