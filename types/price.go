package types

import (
	"context"
	"time"
)

type PriceInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price int64     `json:"price"` // Price in öre per kWh
}

// Contains reports whether the instant t falls within [Start, End).
func (p PriceInterval) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

type PriceProvider interface {
	Name() string
	GetPriceIntervals(ctx context.Context) ([]PriceInterval, error)
}
