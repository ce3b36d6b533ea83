package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/present"
	"github.com/icodeforyou/malar-go/types/maybe"
)

// Run executes the price command.
func (c *PriceCmd) Run(deps *Dependencies) error {
	cache, err := readPricingPayload(c.File)
	if err != nil {
		return err
	}

	price, err := deps.Client.FetchCurrentPrice(deps.Ctx, c.Sector, cache)
	if err != nil {
		return fmt.Errorf("current price for %s: %w", c.Sector, err)
	}

	if c.JSON {
		return writeJSON(deps, price)
	}
	fmt.Fprintf(deps.Stdout, "%s: %s\n", c.Sector, present.Price(price))
	return nil
}

// Run executes the prices command.
func (c *PricesCmd) Run(deps *Dependencies) error {
	window, err := parseWindow(c.From, c.To)
	if err != nil {
		return err
	}

	cache, err := readPricingPayload(c.File)
	if err != nil {
		return err
	}

	prices, err := deps.Client.FetchRecentPrices(deps.Ctx, c.Sector, window, cache)
	if err != nil {
		return fmt.Errorf("prices for %s: %w", c.Sector, err)
	}

	if c.JSON {
		return writeJSON(deps, prices)
	}
	if len(prices) == 0 {
		fmt.Fprintf(deps.Stdout, "No prices for %s in the given window.\n", c.Sector)
		return nil
	}
	fmt.Fprintf(deps.Stdout, "%s, %s\n", c.Sector, prices[0].Start.Format("2006-01-02"))
	for _, p := range prices {
		fmt.Fprintf(deps.Stdout, "  %s\n", present.Price(p))
	}
	return nil
}

func parseWindow(from, to string) (malarenergi.Window, error) {
	w := malarenergi.Unbounded()
	if from != "" {
		t, err := hours.ParseIso(from)
		if err != nil {
			return w, fmt.Errorf("invalid --from: %w", err)
		}
		w.Start = maybe.Some(t)
	}
	if to != "" {
		t, err := hours.ParseIso(to)
		if err != nil {
			return w, fmt.Errorf("invalid --to: %w", err)
		}
		w.End = maybe.Some(t)
	}
	return w, nil
}

// readPricingPayload returns nil when no file is given so the client fetches.
func readPricingPayload(path string) (*malarenergi.PricingPayload, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pricing payload: %w", err)
	}
	defer f.Close()
	return malarenergi.DecodePricingPayload(f)
}

func writeJSON(deps *Dependencies, v any) error {
	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
