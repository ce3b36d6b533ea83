package main

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/icodeforyou/malar-go/present"
)

// Run executes the outages command.
func (c *OutagesCmd) Run(deps *Dependencies) error {
	var cache *goquery.Document
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("open outage page: %w", err)
		}
		defer f.Close()
		cache, err = goquery.NewDocumentFromReader(f)
		if err != nil {
			return fmt.Errorf("parse outage page: %w", err)
		}
	}

	outages, err := deps.Client.FetchCurrentOutages(deps.Ctx, cache)
	if err != nil {
		return fmt.Errorf("outages: %w", err)
	}

	if c.JSON {
		return writeJSON(deps, outages)
	}
	if len(outages) == 0 {
		fmt.Fprintln(deps.Stdout, "No ongoing outages.")
		return nil
	}
	now := deps.Now()
	for _, o := range outages {
		fmt.Fprintf(deps.Stdout, "- %s\n", present.Outage(o, now))
	}
	return nil
}
