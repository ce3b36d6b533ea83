package malarenergi_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outageItem struct {
	locations string
	service   string
	status    string
	start     string
	customers string
	end       string
}

var solnaItem = outageItem{
	locations: "Solna, Sundbyberg",
	service:   "Vatten",
	status:    "Felsökning pågår",
	start:     "24-01-15 10:30",
	customers: "120",
	end:       "24-01-15 14:00",
}

func (o outageItem) html() string {
	return fmt.Sprintf(`
<li class="outageinfo__list-item">
  <h3 class="outageinfo__list-item--header1">%s</h3>
  <p class="outageinfo__list-item--header2">%s</p>
  <div class="outageinfo__list-item--bottom-inner-wrapper">
    <dl>
      <dt>Status</dt><dd>%s</dd>
      <dt>Start</dt><dd>%s</dd>
      <dt>Antal kunder</dt><dd>%s</dd>
      <dt>Beräknat klart</dt><dd>%s</dd>
    </dl>
  </div>
</li>`, o.locations, o.service, o.status, o.start, o.customers, o.end)
}

func outagePage(items ...outageItem) string {
	var b strings.Builder
	b.WriteString(`<html><body><section id="pagaende"><ul>`)
	for _, item := range items {
		b.WriteString(item.html())
	}
	b.WriteString(`</ul></section></body></html>`)
	return b.String()
}

func stockholm(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, hours.Stockholm())
}

func TestExtractOutages(t *testing.T) {
	t.Parallel()

	t.Run("extracts the ongoing section of the real page layout", func(t *testing.T) {
		t.Parallel()

		sanitized, err := malarenergi.Sanitize(loadDocument(t, "testdata/avbrott.html"))
		require.NoError(t, err)

		records, err := malarenergi.ExtractOutages(sanitized)
		require.NoError(t, err)
		require.Len(t, records, 2, "planned outages outside #pagaende are ignored")

		assert.Equal(t, []string{"Solna", "Sundbyberg"}, records[0].Locations)
		assert.Equal(t, types.Water, records[0].Service)
		assert.Equal(t, types.UnderInvestigation, records[0].Status)
		assert.True(t, stockholm(2024, time.January, 15, 10, 30).Equal(records[0].Start))
		assert.True(t, stockholm(2024, time.January, 15, 14, 0).Equal(records[0].End))
		assert.Equal(t, 120, records[0].AffectedCustomers)

		assert.Equal(t, []string{"Västerås"}, records[1].Locations)
		assert.Equal(t, types.DistrictHeating, records[1].Service)
		assert.Equal(t, types.UnderService, records[1].Status)
		assert.True(t, stockholm(2024, time.July, 1, 8, 0).Equal(records[1].Start))
		assert.True(t, stockholm(2024, time.July, 1, 16, 0).Equal(records[1].End))
		assert.Equal(t, 3, records[1].AffectedCustomers)
	})

	t.Run("maps field values verbatim", func(t *testing.T) {
		t.Parallel()

		records, err := malarenergi.ExtractOutages(parseDocument(t, outagePage(solnaItem)))
		require.NoError(t, err)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, []string{"Solna", "Sundbyberg"}, rec.Locations)
		assert.Equal(t, types.Water, rec.Service)
		assert.Equal(t, types.UnderInvestigation, rec.Status)
		assert.Equal(t, 120, rec.AffectedCustomers)
		assert.Equal(t, "2024-01-15T10:30:00+01:00", rec.Start.Format(time.RFC3339))
		assert.Equal(t, "2024-01-15T14:00:00+01:00", rec.End.Format(time.RFC3339))
		assert.Equal(t, "Europe/Stockholm", rec.Start.Location().String())
	})

	t.Run("yields one record per unit in document order", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{0, 1, 5, 25} {
			items := make([]outageItem, n)
			for i := range items {
				items[i] = solnaItem
				items[i].customers = fmt.Sprint(i)
			}

			records, err := malarenergi.ExtractOutages(parseDocument(t, outagePage(items...)))
			require.NoError(t, err)
			require.NotNil(t, records)
			require.Len(t, records, n)
			for i, rec := range records {
				assert.Equal(t, i, rec.AffectedCustomers)
			}
		}
	})

	t.Run("does not modify the document", func(t *testing.T) {
		t.Parallel()

		doc := parseDocument(t, outagePage(solnaItem, solnaItem))
		before := render(t, doc)

		_, err := malarenergi.ExtractOutages(doc)
		require.NoError(t, err)
		assert.Equal(t, before, render(t, doc))

		again, err := malarenergi.ExtractOutages(doc)
		require.NoError(t, err)
		assert.Len(t, again, 2)
	})

	t.Run("fails without the ongoing section", func(t *testing.T) {
		t.Parallel()

		_, err := malarenergi.ExtractOutages(parseDocument(t, `<html><body><section id="planerade"></section></body></html>`))
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})
}

func TestExtractOutagesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(o *outageItem)
		wantErr error
	}{
		{
			name:    "unknown service",
			mutate:  func(o *outageItem) { o.service = "El" },
			wantErr: malarenergi.ErrUnknownService,
		},
		{
			name:    "unknown status",
			mutate:  func(o *outageItem) { o.status = "Reparation pågår" },
			wantErr: malarenergi.ErrUnknownStatus,
		},
		{
			name:    "unparsable start",
			mutate:  func(o *outageItem) { o.start = "15 januari 10:30" },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "unparsable end",
			mutate:  func(o *outageItem) { o.end = "Okänt" },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "end before start",
			mutate:  func(o *outageItem) { o.end = "24-01-15 09:00" },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "non numeric customer count",
			mutate:  func(o *outageItem) { o.customers = "ca 100" },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "negative customer count",
			mutate:  func(o *outageItem) { o.customers = "-1" },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "empty locations",
			mutate:  func(o *outageItem) { o.locations = " " },
			wantErr: malarenergi.ErrValue,
		},
		{
			name:    "empty location between separators",
			mutate:  func(o *outageItem) { o.locations = "Solna, , Sundbyberg" },
			wantErr: malarenergi.ErrValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bad := solnaItem
			tt.mutate(&bad)

			records, err := malarenergi.ExtractOutages(parseDocument(t, outagePage(solnaItem, bad)))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "outage 1")
			assert.Nil(t, records, "a failing unit fails the whole batch")
		})
	}

	t.Run("unknown service is a value error", func(t *testing.T) {
		t.Parallel()

		bad := solnaItem
		bad.service = "Elnät"
		_, err := malarenergi.ExtractOutages(parseDocument(t, outagePage(bad)))
		require.ErrorIs(t, err, malarenergi.ErrValue)
		assert.NotErrorIs(t, err, malarenergi.ErrStructure)
		assert.Contains(t, err.Error(), `"Elnät"`)
	})

	t.Run("wrong number of metadata fields", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(outagePage(solnaItem), "<dt>Start</dt><dd>24-01-15 10:30</dd>", "", 1)
		_, err := malarenergi.ExtractOutages(parseDocument(t, page))
		require.ErrorIs(t, err, malarenergi.ErrStructure)

		page = strings.Replace(outagePage(solnaItem), "</dl>", "<dt>Extra</dt><dd>x</dd></dl>", 1)
		_, err = malarenergi.ExtractOutages(parseDocument(t, page))
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})

	t.Run("missing metadata block", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(outagePage(solnaItem), "outageinfo__list-item--bottom-inner-wrapper", "other", 1)
		_, err := malarenergi.ExtractOutages(parseDocument(t, page))
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(outagePage(solnaItem), "outageinfo__list-item--header2", "other", 1)
		_, err := malarenergi.ExtractOutages(parseDocument(t, page))
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})
}
