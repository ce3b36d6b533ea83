package malarenergi_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/types"
	"github.com/icodeforyou/malar-go/types/maybe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPayload(t *testing.T) *malarenergi.PricingPayload {
	t.Helper()
	f, err := os.Open("testdata/pricing.json")
	require.NoError(t, err)
	defer f.Close()

	p, err := malarenergi.DecodePricingPayload(f)
	require.NoError(t, err)
	return p
}

func decode(t *testing.T, s string) *malarenergi.PricingPayload {
	t.Helper()
	p, err := malarenergi.DecodePricingPayload(strings.NewReader(s))
	require.NoError(t, err)
	return p
}

func TestCurrentPrice(t *testing.T) {
	t.Parallel()

	t.Run("round-trips the current interval in Stockholm time", func(t *testing.T) {
		t.Parallel()

		current, err := malarenergi.CurrentPrice(loadPayload(t))
		require.NoError(t, err)

		assert.Equal(t, "2024-01-15T10:00:00+01:00", current.Start.Format(time.RFC3339))
		assert.Equal(t, "2024-01-15T10:15:00+01:00", current.End.Format(time.RFC3339))
		assert.Equal(t, int64(83), current.Price)
		assert.Equal(t, "Europe/Stockholm", current.Start.Location().String())
		assert.Equal(t, "Europe/Stockholm", current.End.Location().String())
	})

	t.Run("converts a UTC timestamp to Stockholm", func(t *testing.T) {
		t.Parallel()

		p := decode(t, `{"current": {"startDateTime": "2024-07-01T10:00:00Z", "endDateTime": "2024-07-01T11:00:00Z", "price": 12}}`)
		current, err := malarenergi.CurrentPrice(p)
		require.NoError(t, err)
		assert.Equal(t, "2024-07-01T12:00:00+02:00", current.Start.Format(time.RFC3339))
	})

	t.Run("truncates a fractional price", func(t *testing.T) {
		t.Parallel()

		p := decode(t, `{"current": {"startDateTime": "2024-01-15T10:00:00", "endDateTime": "2024-01-15T11:00:00", "price": 12.9}}`)
		current, err := malarenergi.CurrentPrice(p)
		require.NoError(t, err)
		assert.Equal(t, int64(12), current.Price)
	})

	t.Run("fails on a price outside int64", func(t *testing.T) {
		t.Parallel()

		for _, price := range []string{"1e19", "-1e19", "9.3e18", "-9.3e18"} {
			p := decode(t, `{"current": {"startDateTime": "2024-01-15T10:00:00", "endDateTime": "2024-01-15T11:00:00", "price": `+price+`}}`)
			_, err := malarenergi.CurrentPrice(p)
			require.ErrorIs(t, err, malarenergi.ErrValue, price)
		}

		p := decode(t, `{"current": {"startDateTime": "2024-01-15T10:00:00", "endDateTime": "2024-01-15T11:00:00", "price": -12.9}}`)
		current, err := malarenergi.CurrentPrice(p)
		require.NoError(t, err)
		assert.Equal(t, int64(-12), current.Price)
	})

	t.Run("fails on missing keys", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{
			`{}`,
			`{"current": null}`,
			`{"current": {"endDateTime": "2024-01-15T11:00:00", "price": 1}}`,
			`{"current": {"startDateTime": "2024-01-15T10:00:00", "price": 1}}`,
			`{"current": {"startDateTime": "2024-01-15T10:00:00", "endDateTime": "2024-01-15T11:00:00"}}`,
		} {
			_, err := malarenergi.CurrentPrice(decode(t, body))
			require.ErrorIs(t, err, malarenergi.ErrStructure, body)
		}

		_, err := malarenergi.CurrentPrice(nil)
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})

	t.Run("fails on malformed timestamp", func(t *testing.T) {
		t.Parallel()

		p := decode(t, `{"current": {"startDateTime": "15/01/2024", "endDateTime": "2024-01-15T11:00:00", "price": 1}}`)
		_, err := malarenergi.CurrentPrice(p)
		require.ErrorIs(t, err, malarenergi.ErrValue)
	})
}

func TestRecentPrices(t *testing.T) {
	t.Parallel()

	at := func(hour, min int) time.Time {
		return stockholm(2024, time.January, 15, hour, min)
	}

	t.Run("unbounded window returns every interval in payload order", func(t *testing.T) {
		t.Parallel()

		prices, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Unbounded())
		require.NoError(t, err)
		require.Len(t, prices, 4)

		assert.Equal(t, []int64{79, 83, -2, 90}, []int64{prices[0].Price, prices[1].Price, prices[2].Price, prices[3].Price})
		for i := 1; i < len(prices); i++ {
			assert.True(t, prices[i-1].End.Equal(prices[i].Start))
		}
	})

	t.Run("window is inclusive on both ends", func(t *testing.T) {
		t.Parallel()

		prices, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Between(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.Equal(t, int64(83), prices[0].Price)
		assert.Equal(t, int64(-2), prices[1].Price)
	})

	t.Run("intervals only partially inside are excluded", func(t *testing.T) {
		t.Parallel()

		prices, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Between(at(10, 5), at(10, 40)))
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, int64(-2), prices[0].Price)
	})

	t.Run("compares instants regardless of zone", func(t *testing.T) {
		t.Parallel()

		// 09:00Z-09:30Z is 10:00-10:30 in Stockholm.
		start := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
		end := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

		prices, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Between(start, end))
		require.NoError(t, err)
		assert.Len(t, prices, 2)
	})

	t.Run("half open windows", func(t *testing.T) {
		t.Parallel()

		from := malarenergi.Window{Start: maybe.Some(at(10, 15))}
		prices, err := malarenergi.RecentPrices(loadPayload(t), from)
		require.NoError(t, err)
		assert.Len(t, prices, 2)

		until := malarenergi.Window{End: maybe.Some(at(10, 0))}
		prices, err = malarenergi.RecentPrices(loadPayload(t), until)
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, int64(79), prices[0].Price)
	})

	t.Run("rejects a window that starts after it ends", func(t *testing.T) {
		t.Parallel()

		_, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Between(at(11, 0), at(10, 0)))
		require.ErrorIs(t, err, malarenergi.ErrInvalidWindow)
	})

	t.Run("empty window between equal bounds", func(t *testing.T) {
		t.Parallel()

		prices, err := malarenergi.RecentPrices(loadPayload(t), malarenergi.Between(at(10, 0), at(10, 0)))
		require.NoError(t, err)
		assert.Empty(t, prices)
	})

	t.Run("fails on missing intervals key", func(t *testing.T) {
		t.Parallel()

		_, err := malarenergi.RecentPrices(decode(t, `{"current": null}`), malarenergi.Unbounded())
		require.ErrorIs(t, err, malarenergi.ErrStructure)
	})

	t.Run("empty intervals list is not an error", func(t *testing.T) {
		t.Parallel()

		prices, err := malarenergi.RecentPrices(decode(t, `{"intervals": []}`), malarenergi.Unbounded())
		require.NoError(t, err)
		assert.Equal(t, []types.PriceInterval{}, prices)
	})

	t.Run("one malformed interval fails the call", func(t *testing.T) {
		t.Parallel()

		p := decode(t, `{"intervals": [
			{"startDateTime": "2024-01-15T10:00:00", "endDateTime": "2024-01-15T11:00:00", "price": 1},
			{"startDateTime": "2024-01-15T11:00:00", "endDateTime": "soon", "price": 2}
		]}`)
		prices, err := malarenergi.RecentPrices(p, malarenergi.Unbounded())
		require.ErrorIs(t, err, malarenergi.ErrValue)
		assert.Contains(t, err.Error(), "intervals[1]")
		assert.Nil(t, prices)
	})
}
