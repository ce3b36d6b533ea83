package malarenergi

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
	"github.com/icodeforyou/malar-go/types/maybe"
)

// PricingInterval is one price quotation as it appears in the JSON feed.
type PricingInterval struct {
	Interval      string      `json:"interval"`
	StartDateTime string      `json:"startDateTime"`
	EndDateTime   string      `json:"endDateTime"`
	Price         json.Number `json:"price"`
}

// PricingPayload is the body returned by the spot price endpoint for one area.
// Only Current and Intervals are read by the mapper.
type PricingPayload struct {
	Version     string            `json:"version"`
	Area        string            `json:"area"`
	Unit        string            `json:"unit"`
	Currency    string            `json:"currency"`
	Average     float64           `json:"average"`
	Current     *PricingInterval  `json:"current"`
	TodayMin    *PricingInterval  `json:"todayMin"`
	TodayMax    *PricingInterval  `json:"todayMax"`
	HasTomorrow bool              `json:"hasTomorrow"`
	Intervals   []PricingInterval `json:"intervals"`
}

func DecodePricingPayload(r io.Reader) (*PricingPayload, error) {
	var p PricingPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode pricing payload: %w", err)
	}
	return &p, nil
}

// Window bounds RecentPrices. A None bound is unbounded on that side.
type Window struct {
	Start maybe.Maybe[time.Time]
	End   maybe.Maybe[time.Time]
}

func Unbounded() Window {
	return Window{}
}

func Between(start, end time.Time) Window {
	return Window{Start: maybe.Some(start), End: maybe.Some(end)}
}

func (w Window) Validate() error {
	start, hasStart := w.Start.Get()
	end, hasEnd := w.End.Get()
	if hasStart && hasEnd && start.After(end) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether p lies fully inside the window, both ends inclusive.
func (w Window) Contains(p types.PriceInterval) bool {
	if start, ok := w.Start.Get(); ok && p.Start.Before(start) {
		return false
	}
	if end, ok := w.End.Get(); ok && p.End.After(end) {
		return false
	}
	return true
}

// CurrentPrice maps the payload's current interval.
func CurrentPrice(p *PricingPayload) (types.PriceInterval, error) {
	if p == nil || p.Current == nil {
		return types.PriceInterval{}, fmt.Errorf("%w: missing key \"current\"", ErrStructure)
	}
	interval, err := p.Current.toPriceInterval()
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("current: %w", err)
	}
	return interval, nil
}

// RecentPrices maps every interval in the payload that lies within w,
// keeping payload order.
func RecentPrices(p *PricingPayload, w Window) ([]types.PriceInterval, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if p == nil || p.Intervals == nil {
		return nil, fmt.Errorf("%w: missing key \"intervals\"", ErrStructure)
	}

	prices := make([]types.PriceInterval, 0, len(p.Intervals))
	for i, raw := range p.Intervals {
		interval, err := raw.toPriceInterval()
		if err != nil {
			return nil, fmt.Errorf("intervals[%d]: %w", i, err)
		}
		if w.Contains(interval) {
			prices = append(prices, interval)
		}
	}

	return prices, nil
}

func (raw PricingInterval) toPriceInterval() (types.PriceInterval, error) {
	if raw.StartDateTime == "" {
		return types.PriceInterval{}, fmt.Errorf("%w: missing key \"startDateTime\"", ErrStructure)
	}
	if raw.EndDateTime == "" {
		return types.PriceInterval{}, fmt.Errorf("%w: missing key \"endDateTime\"", ErrStructure)
	}
	if raw.Price == "" {
		return types.PriceInterval{}, fmt.Errorf("%w: missing key \"price\"", ErrStructure)
	}

	start, err := hours.ParseIso(raw.StartDateTime)
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("%w: %w", ErrValue, err)
	}
	end, err := hours.ParseIso(raw.EndDateTime)
	if err != nil {
		return types.PriceInterval{}, fmt.Errorf("%w: %w", ErrValue, err)
	}
	if end.Before(start) {
		return types.PriceInterval{}, fmt.Errorf("%w: interval ends %s before it starts %s",
			ErrValue, raw.EndDateTime, raw.StartDateTime)
	}

	price, err := parsePrice(raw.Price)
	if err != nil {
		return types.PriceInterval{}, err
	}

	return types.PriceInterval{Start: start, End: end, Price: price}, nil
}

// parsePrice takes an integer verbatim and truncates a fractional number toward zero.
func parsePrice(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: price %q is not a number", ErrValue, n.String())
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= -math.MinInt64 {
		return 0, fmt.Errorf("%w: price %q is out of range", ErrValue, n.String())
	}
	return int64(t), nil
}
