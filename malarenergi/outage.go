package malarenergi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
)

const (
	ongoingSectionSelector = "#pagaende"
	itemSelector           = ".outageinfo__list-item"
	metadataSelector       = ".outageinfo__list-item--bottom-inner-wrapper"
	locationsSelector      = ".outageinfo__list-item--header1"
	serviceSelector        = ".outageinfo__list-item--header2"
	locationSeparator      = ", "
)

// The metadata block lists its values as <dd> elements in this order.
const (
	ddStatus = iota
	ddStart
	ddCustomers
	ddEnd
	ddCount
)

// ExtractOutages reads every outage in the ongoing section, in document
// order. doc is not modified. A single malformed entry fails the whole
// extraction, the error names the entry's index.
func ExtractOutages(doc *goquery.Document) ([]types.OutageRecord, error) {
	section := doc.Find(ongoingSectionSelector).First()
	if section.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s section", ErrStructure, ongoingSectionSelector)
	}

	items := section.Find(itemSelector)
	records := make([]types.OutageRecord, 0, items.Length())

	var err error
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		var rec types.OutageRecord
		rec, err = extractOutage(item)
		if err != nil {
			err = fmt.Errorf("outage %d: %w", i, err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func extractOutage(item *goquery.Selection) (types.OutageRecord, error) {
	metadata := item.Find(metadataSelector).First()
	if metadata.Length() == 0 {
		return types.OutageRecord{}, fmt.Errorf("%w: missing %s", ErrStructure, metadataSelector)
	}

	fields := metadata.Find("dd").Map(func(_ int, dd *goquery.Selection) string {
		return strings.TrimSpace(dd.Text())
	})
	if len(fields) != ddCount {
		return types.OutageRecord{}, fmt.Errorf("%w: expected %d metadata fields, found %d",
			ErrStructure, ddCount, len(fields))
	}

	locations, err := parseLocations(item)
	if err != nil {
		return types.OutageRecord{}, err
	}

	serviceLabel, err := headerText(item, serviceSelector)
	if err != nil {
		return types.OutageRecord{}, err
	}
	service, ok := types.LookupService(serviceLabel)
	if !ok {
		return types.OutageRecord{}, fmt.Errorf("%w %q", ErrUnknownService, serviceLabel)
	}

	status, ok := types.LookupStatus(fields[ddStatus])
	if !ok {
		return types.OutageRecord{}, fmt.Errorf("%w %q", ErrUnknownStatus, fields[ddStatus])
	}

	start, err := hours.ParseOutageTime(fields[ddStart])
	if err != nil {
		return types.OutageRecord{}, fmt.Errorf("%w: start: %w", ErrValue, err)
	}
	end, err := hours.ParseOutageTime(fields[ddEnd])
	if err != nil {
		return types.OutageRecord{}, fmt.Errorf("%w: end: %w", ErrValue, err)
	}
	if end.Before(start) {
		return types.OutageRecord{}, fmt.Errorf("%w: ends %q before it starts %q",
			ErrValue, fields[ddEnd], fields[ddStart])
	}

	customers, err := strconv.ParseUint(fields[ddCustomers], 10, 31)
	if err != nil {
		return types.OutageRecord{}, fmt.Errorf("%w: affected customers %q is not a non-negative integer",
			ErrValue, fields[ddCustomers])
	}

	return types.OutageRecord{
		Locations:         locations,
		Service:           service,
		Start:             start,
		End:               end,
		Status:            status,
		AffectedCustomers: int(customers),
	}, nil
}

func parseLocations(item *goquery.Selection) ([]string, error) {
	text, err := headerText(item, locationsSelector)
	if err != nil {
		return nil, err
	}

	locations := strings.Split(text, locationSeparator)
	for i, l := range locations {
		locations[i] = strings.TrimSpace(l)
		if locations[i] == "" {
			return nil, fmt.Errorf("%w: empty location in %q", ErrValue, text)
		}
	}
	return locations, nil
}

func headerText(item *goquery.Selection, selector string) (string, error) {
	header := item.Find(selector).First()
	if header.Length() == 0 {
		return "", fmt.Errorf("%w: missing %s", ErrStructure, selector)
	}
	return strings.TrimSpace(header.Text()), nil
}
