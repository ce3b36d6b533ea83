package www

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/icodeforyou/malar-go/config"
	"github.com/icodeforyou/malar-go/database"
	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	intervals []types.PriceInterval
	from, to  time.Time
	current   *types.PriceInterval
	outages   []types.OutageRecord
	updatedAt time.Time
	logs      []database.LogEntryRow
	err       error
}

func (f *fakeStore) GetPriceIntervals(_ context.Context, _ types.Sector, from, to time.Time) ([]types.PriceInterval, error) {
	f.from, f.to = from, to
	return f.intervals, f.err
}

func (f *fakeStore) GetPriceIntervalAt(context.Context, types.Sector, time.Time) (types.PriceInterval, bool, error) {
	if f.current == nil {
		return types.PriceInterval{}, false, f.err
	}
	return *f.current, true, f.err
}

func (f *fakeStore) GetLatestOutages(context.Context) ([]types.OutageRecord, time.Time, error) {
	return f.outages, f.updatedAt, f.err
}

func (f *fakeStore) GetOutagesBetween(_ context.Context, from, to time.Time) ([]types.OutageRecord, error) {
	f.from, f.to = from, to
	return f.outages, f.err
}

func (f *fakeStore) GetLogEntries(_ context.Context, q database.LogQuery, _, _ int) ([]database.LogEntryRow, error) {
	var entries []database.LogEntryRow
	for _, e := range f.logs {
		if e.Level >= int(q.MinLevel) && (q.Module == "" || e.Module == q.Module) {
			entries = append(entries, e)
		}
	}
	return entries, f.err
}

func (f *fakeStore) LogModules(context.Context) ([]string, error) {
	seen := map[string]bool{}
	modules := []string{}
	for _, e := range f.logs {
		if e.Module != "" && !seen[e.Module] {
			seen[e.Module] = true
			modules = append(modules, e.Module)
		}
	}
	return modules, f.err
}

type fakeLive struct {
	price types.PriceInterval
	err   error
}

func (f fakeLive) FetchCurrentPrice(_ context.Context, _ types.Sector, cache *malarenergi.PricingPayload) (types.PriceInterval, error) {
	if cache != nil {
		panic("handler never supplies a cached payload")
	}
	return f.price, f.err
}

var start = time.Date(2024, time.January, 15, 10, 0, 0, 0, hours.Stockholm())

func newTestServer(store *fakeStore, live CurrentPriceFetcher) *Server {
	return NewServer(store, live, config.AppConfigApi{AllowedOrigins: []string{"http://localhost:3000"}})
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPricesHandler(t *testing.T) {
	t.Parallel()

	store := &fakeStore{intervals: []types.PriceInterval{
		{Start: start, End: start.Add(15 * time.Minute), Price: 83},
		{Start: start.Add(15 * time.Minute), End: start.Add(30 * time.Minute), Price: -2},
	}}
	s := newTestServer(store, fakeLive{})

	rec := get(t, s, "/api/prices/se3?from=2024-01-15T00:00&to=2024-01-15T23:59:59%2B01:00")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"sector": "SE3",
		"from": "2024-01-15T00:00:00+01:00",
		"to": "2024-01-15T23:59:59+01:00",
		"unit": "öre/kWh",
		"intervals": [
			{"start": "2024-01-15T10:00:00+01:00", "end": "2024-01-15T10:15:00+01:00", "price": 83},
			{"start": "2024-01-15T10:15:00+01:00", "end": "2024-01-15T10:30:00+01:00", "price": -2}
		]
	}`, rec.Body.String())
	assert.True(t, store.from.Equal(time.Date(2024, time.January, 15, 0, 0, 0, 0, hours.Stockholm())))

	t.Run("Defaults", func(t *testing.T) {
		store := &fakeStore{}
		rec := get(t, newTestServer(store, fakeLive{}), "/api/prices/SE1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"intervals":[]`)
		assert.InDelta(t, float64(48*time.Hour), float64(store.to.Sub(store.from)), float64(time.Hour+time.Second),
			"today and tomorrow")
	})

	t.Run("BadRequests", func(t *testing.T) {
		for _, target := range []string{
			"/api/prices/SE5",
			"/api/prices/SE3?from=yesterday",
			"/api/prices/SE3?from=2024-01-16T00:00&to=2024-01-15T00:00",
		} {
			rec := get(t, s, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
			assert.Contains(t, rec.Body.String(), `"status":"ERROR"`, target)
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		rec := get(t, newTestServer(&fakeStore{err: errors.New("locked")}, fakeLive{}), "/api/prices/SE3")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCurrentPriceHandler(t *testing.T) {
	t.Parallel()

	live := types.PriceInterval{Start: start, End: start.Add(15 * time.Minute), Price: 83}
	stored := types.PriceInterval{Start: start, End: start.Add(time.Hour), Price: 80}

	rec := get(t, newTestServer(&fakeStore{current: &stored}, fakeLive{price: live}), "/api/prices/SE3/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"sector": "SE3",
		"start": "2024-01-15T10:00:00+01:00",
		"end": "2024-01-15T10:15:00+01:00",
		"price": 83,
		"unit": "öre/kWh",
		"source": "malarenergi"
	}`, rec.Body.String())

	down := fakeLive{err: &malarenergi.TransportError{URL: "https://example.com", StatusCode: 503}}

	rec = get(t, newTestServer(&fakeStore{current: &stored}, down), "/api/prices/SE3/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"database"`)
	assert.Contains(t, rec.Body.String(), `"price":80`)

	rec = get(t, newTestServer(&fakeStore{}, down), "/api/prices/SE3/current")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestOutagesHandler(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(&fakeStore{}, fakeLive{}), "/api/outages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updatedAt": null, "outages": []}`, rec.Body.String())

	store := &fakeStore{
		updatedAt: start,
		outages: []types.OutageRecord{{
			Locations:         []string{"Västerås"},
			Service:           types.DistrictHeating,
			Start:             start,
			End:               start.Add(8 * time.Hour),
			Status:            types.UnderService,
			AffectedCustomers: 3,
		}},
	}
	rec = get(t, newTestServer(store, fakeLive{}), "/api/outages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"updatedAt": "2024-01-15T10:00:00+01:00",
		"outages": [{
			"locations": ["Västerås"],
			"service": "DISTRICT_HEATING",
			"start": "2024-01-15T10:00:00+01:00",
			"end": "2024-01-15T18:00:00+01:00",
			"status": "UNDER_SERVICE",
			"affectedCustomers": 3
		}]
	}`, rec.Body.String())
}

func TestOutageHistoryHandler(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	rec := get(t, newTestServer(store, fakeLive{}), "/api/outages/history?from=2024-01-01T00:00&to=2024-01-31T00:00")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outages":[]`)
	assert.True(t, store.from.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, hours.Stockholm())))
	assert.True(t, store.to.Equal(time.Date(2024, time.January, 31, 0, 0, 0, 0, hours.Stockholm())))

	rec = get(t, newTestServer(store, fakeLive{}), "/api/outages/history?from=2024-02-01T00:00&to=2024-01-01T00:00")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, newTestServer(&fakeStore{err: errors.New("locked")}, fakeLive{}), "/api/outages/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	store := &fakeStore{logs: []database.LogEntryRow{
		{Timestamp: start, Level: int(slog.LevelError), Module: "task", Message: "outage task error", Attrs: `[{"error":"layout changed"}]`},
		{Timestamp: start, Level: int(slog.LevelWarn), Module: "www", Message: "live current price failed"},
		{Timestamp: start, Level: int(slog.LevelInfo), Module: "task", Message: "energy prices updated"},
	}}
	s := newTestServer(store, fakeLive{})

	rec := get(t, s, "/api/log?level=warn&pageSize=1000")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp logResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 25, resp.PageSize)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "ERROR", resp.Entries[0].Level)
	assert.Equal(t, "task", resp.Entries[0].Module)

	rec = get(t, s, "/api/log?level=warn&module=task")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "outage task error", resp.Entries[0].Message)

	rec = get(t, s, "/api/log/modules")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["task", "www"]`, rec.Body.String())
}

func TestCors(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeStore{}, fakeLive{})
	req := httptest.NewRequest(http.MethodGet, "/api/outages", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebsocketOutages(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(&fakeStore{}, fakeLive{})
	go s.hub.Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	outage := types.OutageRecord{
		Locations:         []string{"Solna"},
		Service:           types.Water,
		Start:             start,
		End:               start.Add(time.Hour),
		Status:            types.UnderInvestigation,
		AffectedCustomers: 12,
	}
	s.BroadcastOutages([]types.OutageRecord{outage}, start)

	read := func(conn *ws.Conn) outagesResponse {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var resp outagesResponse
		require.NoError(t, json.Unmarshal(msg, &resp))
		return resp
	}

	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	replayed := read(conn)
	require.Len(t, replayed.Outages, 1, "late clients get the last snapshot")
	assert.Equal(t, types.Water, replayed.Outages[0].Service)

	s.BroadcastOutages(nil, start.Add(10*time.Minute))
	next := read(conn)
	assert.Empty(t, next.Outages)
	require.NotNil(t, next.UpdatedAt)
	assert.True(t, next.UpdatedAt.Equal(start.Add(10*time.Minute)))

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := ws.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
