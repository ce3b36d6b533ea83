// Package malarenergi fetches spot prices and ongoing outages from Mälarenergi.
//
// The outage page is HTML meant for people, not machines. Extraction relies on
// element ids, class names and the order of the metadata fields, so a layout
// change on the site surfaces as ErrStructure or ErrValue instead of partial
// or misassigned records.
package malarenergi

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/icodeforyou/malar-go/types"
)

const (
	DefaultPricingBaseURL = "https://bff.malarenergi.se/spotpriser/api/v1/prices/area"
	DefaultOutageURL      = "https://www.malarenergi.se/avbrott/"
)

type Client struct {
	getter         Getter
	logger         *slog.Logger
	pricingBaseURL string
	outageURL      string
}

type Option func(*Client)

// WithHTTPClient uses client for all requests instead of the default one.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.getter = NewHTTPGetter(client)
	}
}

// WithGetter replaces the transport entirely.
func WithGetter(g Getter) Option {
	return func(c *Client) {
		c.getter = g
	}
}

func WithPricingBaseURL(u string) Option {
	return func(c *Client) {
		c.pricingBaseURL = strings.TrimRight(u, "/")
	}
}

func WithOutageURL(u string) Option {
	return func(c *Client) {
		c.outageURL = u
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		logger:         slog.Default().With("module", "malarenergi"),
		pricingBaseURL: DefaultPricingBaseURL,
		outageURL:      DefaultOutageURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.getter == nil {
		c.getter = NewHTTPGetter(nil)
	}
	return c
}

// FetchPricingPayload downloads the raw pricing payload for sector. The result
// can be passed as cache to FetchCurrentPrice and FetchRecentPrices.
func (c *Client) FetchPricingPayload(ctx context.Context, sector types.Sector) (*PricingPayload, error) {
	if !sector.Valid() {
		return nil, fmt.Errorf("invalid sector %d", int(sector))
	}

	u := fmt.Sprintf("%s/%s", c.pricingBaseURL, url.PathEscape(sector.String()))
	c.logger.Debug("fetching pricing payload", slog.String("url", u))

	body, err := c.getter.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", sector, err)
	}

	return DecodePricingPayload(bytes.NewReader(body))
}

// FetchCurrentPrice returns the interval the payload marks as current. A
// non-nil cache is used as is and no request is made.
func (c *Client) FetchCurrentPrice(ctx context.Context, sector types.Sector, cache *PricingPayload) (types.PriceInterval, error) {
	payload, err := c.pricingPayload(ctx, sector, cache)
	if err != nil {
		return types.PriceInterval{}, err
	}
	return CurrentPrice(payload)
}

// FetchRecentPrices returns the payload's intervals that lie within w. A
// non-nil cache is used as is and no request is made.
func (c *Client) FetchRecentPrices(ctx context.Context, sector types.Sector, w Window, cache *PricingPayload) ([]types.PriceInterval, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	payload, err := c.pricingPayload(ctx, sector, cache)
	if err != nil {
		return nil, err
	}
	return RecentPrices(payload, w)
}

func (c *Client) pricingPayload(ctx context.Context, sector types.Sector, cache *PricingPayload) (*PricingPayload, error) {
	if cache != nil {
		return cache, nil
	}
	return c.FetchPricingPayload(ctx, sector)
}

// FetchOutagePage downloads and parses the outage page. The result can be
// passed as cache to FetchCurrentOutages.
func (c *Client) FetchOutagePage(ctx context.Context) (*goquery.Document, error) {
	c.logger.Debug("fetching outage page", slog.String("url", c.outageURL))

	body, err := c.getter.Get(ctx, c.outageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outage page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse outage page: %w", err)
	}
	return doc, nil
}

// FetchCurrentOutages returns the ongoing outages. A non-nil cache is used
// instead of fetching the page and is not modified.
func (c *Client) FetchCurrentOutages(ctx context.Context, cache *goquery.Document) ([]types.OutageRecord, error) {
	doc := cache
	if doc == nil {
		var err error
		if doc, err = c.FetchOutagePage(ctx); err != nil {
			return nil, err
		}
	}

	sanitized, err := Sanitize(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize outage page: %w", err)
	}

	records, err := ExtractOutages(sanitized)
	if err != nil {
		return nil, fmt.Errorf("failed to extract outages: %w", err)
	}

	c.logger.Debug("extracted outages", slog.Int("count", len(records)))
	return records, nil
}
