package nordpool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
	"github.com/shopspring/decimal"
)

const BaseURL = "https://dataportal-api.nordpoolgroup.com"

type nordpoolData struct {
	DeliveryDateCET  string            `json:"deliveryDateCET"`
	Version          int               `json:"version"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Market           string            `json:"market"`
	Currency         string            `json:"currency"`
	MultiAreaEntries []multiAreaEntry  `json:"multiAreaEntries"`
	AreaStates       []json.RawMessage `json:"areaStates"`
}

type multiAreaEntry struct {
	DeliveryStart time.Time          `json:"deliveryStart"`
	DeliveryEnd   time.Time          `json:"deliveryEnd"`
	EntryPerArea  map[string]float64 `json:"entryPerArea"`
}

type Nordpool struct {
	sector  types.Sector
	baseURL string
	client  *http.Client
	now     func() time.Time
}

var _ types.PriceProvider = Nordpool{}

func New(sector types.Sector, client *http.Client) Nordpool {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return Nordpool{sector: sector, baseURL: BaseURL, client: client, now: time.Now}
}

// WithBaseURL returns a copy requesting prices from baseURL, used in tests.
func (n Nordpool) WithBaseURL(baseURL string, now func() time.Time) Nordpool {
	n.baseURL = baseURL
	n.now = now
	return n
}

func (n Nordpool) Name() string {
	return "nordpool"
}

func (n Nordpool) GetPriceIntervals(ctx context.Context) ([]types.PriceInterval, error) {
	t := hours.StartOfDay(n.now())
	today, err := n.getPriceIntervals(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices from nordpool for today: %w", err)
	}

	tomorrow, err := n.getPriceIntervals(ctx, t.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices from nordpool for tomorrow: %w", err)
	}

	return append(today, tomorrow...), nil
}

func (n Nordpool) getPriceIntervals(ctx context.Context, date time.Time) ([]types.PriceInterval, error) {
	area := n.sector.String()
	url := fmt.Sprintf("%s/api/DayAheadPrices?date=%s&market=DayAhead&deliveryArea=%s&currency=SEK",
		n.baseURL,
		date.Format("2006-01-02"),
		area)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	// 204 until the day ahead auction is published
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return []types.PriceInterval{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data nordpoolData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	prices := make([]types.PriceInterval, 0, len(data.MultiAreaEntries))
	for _, entry := range data.MultiAreaEntries {
		start := hours.LocationStockholm(entry.DeliveryStart)
		if slices.ContainsFunc(prices, func(p types.PriceInterval) bool { return p.Start.Equal(start) }) {
			continue
		}
		price, ok := entry.EntryPerArea[area]
		if ok {
			prices = append(prices, types.PriceInterval{
				Start: start,
				End:   hours.LocationStockholm(entry.DeliveryEnd),
				Price: normalizePrice(price),
			})
		}
	}

	return prices, nil
}

// normalizePrice converts SEK/MWh to whole öre/kWh.
func normalizePrice(sekPerMWh float64) int64 {
	return decimal.NewFromFloat(sekPerMWh).Div(decimal.NewFromInt(10)).Round(0).IntPart()
}
