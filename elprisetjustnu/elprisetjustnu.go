package elprisetjustnu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
	"github.com/shopspring/decimal"
)

const BaseURL = "https://www.elprisetjustnu.se/api/v1/prices"

type rawPrice struct {
	SEKPerKWh float64   `json:"SEK_per_kWh"`
	EURPerKWh float64   `json:"EUR_per_kWh"`
	EXR       float64   `json:"EXR"`
	TimeStart time.Time `json:"time_start"`
	TimeEnd   time.Time `json:"time_end"`
}

type ElPrisetJustNu struct {
	sector  types.Sector
	baseURL string
	client  *http.Client
	now     func() time.Time
}

var _ types.PriceProvider = ElPrisetJustNu{}

func New(sector types.Sector, client *http.Client) ElPrisetJustNu {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return ElPrisetJustNu{sector: sector, baseURL: BaseURL, client: client, now: time.Now}
}

// WithBaseURL returns a copy requesting prices from baseURL, used in tests.
func (e ElPrisetJustNu) WithBaseURL(baseURL string, now func() time.Time) ElPrisetJustNu {
	e.baseURL = baseURL
	e.now = now
	return e
}

func (e ElPrisetJustNu) Name() string {
	return "elprisetjustnu"
}

// GetPriceIntervals returns today's and, once published, tomorrow's prices.
func (e ElPrisetJustNu) GetPriceIntervals(ctx context.Context) ([]types.PriceInterval, error) {
	t := hours.StartOfDay(e.now())
	today, err := e.getPriceIntervals(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for today: %w", err)
	}

	tomorrow, err := e.getPriceIntervals(ctx, t.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for tomorrow: %w", err)
	}

	return append(today, tomorrow...), nil
}

func (e ElPrisetJustNu) getPriceIntervals(ctx context.Context, day time.Time) ([]types.PriceInterval, error) {
	url := fmt.Sprintf("%s/%d/%02d-%02d_%s.json",
		e.baseURL, day.Year(), int(day.Month()), day.Day(), e.sector)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	// Tomorrow's prices are published in the afternoon, until then the file does not exist.
	if resp.StatusCode == http.StatusNotFound {
		return []types.PriceInterval{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var rawPrices []rawPrice
	if err := json.NewDecoder(resp.Body).Decode(&rawPrices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	prices := make([]types.PriceInterval, 0, len(rawPrices))
	for _, raw := range rawPrices {
		prices = append(prices, types.PriceInterval{
			Start: hours.LocationStockholm(raw.TimeStart),
			End:   hours.LocationStockholm(raw.TimeEnd),
			Price: toOre(raw.SEKPerKWh),
		})
	}

	return prices, nil
}

// toOre converts SEK/kWh to whole öre/kWh, rounding half away from zero.
func toOre(sekPerKWh float64) int64 {
	return decimal.NewFromFloat(sekPerKWh).Shift(2).Round(0).IntPart()
}
