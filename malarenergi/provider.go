package malarenergi

import (
	"context"

	"github.com/icodeforyou/malar-go/types"
)

// Provider exposes one sector of the Mälarenergi feed as a types.PriceProvider.
type Provider struct {
	client *Client
	sector types.Sector
}

var _ types.PriceProvider = Provider{}

func NewProvider(client *Client, sector types.Sector) Provider {
	return Provider{client: client, sector: sector}
}

func (p Provider) Name() string {
	return "malarenergi"
}

func (p Provider) GetPriceIntervals(ctx context.Context) ([]types.PriceInterval, error) {
	return p.client.FetchRecentPrices(ctx, p.sector, Unbounded(), nil)
}
