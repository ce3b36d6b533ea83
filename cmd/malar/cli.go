package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/types"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Client *malarenergi.Client
	Now    func() time.Time
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	PricingURL string        `name:"pricing-url" help:"Base URL of the pricing feed" default:"${pricing_url}"`
	OutageURL  string        `name:"outage-url" help:"URL of the outage page" default:"${outage_url}"`
	Timeout    time.Duration `help:"Timeout for each request" default:"10s"`
	Verbose    bool          `short:"v" help:"Log requests to stderr"`

	Price   PriceCmd   `cmd:"" help:"Show the current spot price for a sector"`
	Prices  PricesCmd  `cmd:"" help:"List the spot prices published for a sector"`
	Outages OutagesCmd `cmd:"" help:"List ongoing outages"`
}

// PriceCmd is the "price" subcommand.
type PriceCmd struct {
	Sector types.Sector `arg:"" optional:"" default:"SE3" help:"Bidding area, SE1 to SE4"`
	File   string       `short:"f" type:"existingfile" help:"Read the pricing payload from a file instead of fetching it"`
	JSON   bool         `name:"json" help:"Print JSON"`
}

// PricesCmd is the "prices" subcommand.
type PricesCmd struct {
	Sector types.Sector `arg:"" optional:"" default:"SE3" help:"Bidding area, SE1 to SE4"`
	From   string       `help:"Only intervals starting at or after this ISO-8601 time"`
	To     string       `help:"Only intervals ending at or before this ISO-8601 time"`
	File   string       `short:"f" type:"existingfile" help:"Read the pricing payload from a file instead of fetching it"`
	JSON   bool         `name:"json" help:"Print JSON"`
}

// OutagesCmd is the "outages" subcommand.
type OutagesCmd struct {
	File string `short:"f" type:"existingfile" help:"Read the outage page from a file instead of fetching it"`
	JSON bool   `name:"json" help:"Print JSON"`
}
