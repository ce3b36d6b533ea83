package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	main "github.com/icodeforyou/malar-go/cmd/malar"
	"github.com/icodeforyou/malar-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pricingFixture = "../../malarenergi/testdata/pricing.json"
	outageFixture  = "../../malarenergi/testdata/avbrott.html"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := main.Run(context.Background(), args, stdout, stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "--help")
	require.NoError(t, err)
	for _, cmd := range []string{"price", "prices", "outages"} {
		assert.Contains(t, stdout, cmd, "Help should mention %s command", cmd)
	}
	assert.Contains(t, stdout, "Usage:")

	_, _, err = run(t)
	require.Error(t, err)
}

func TestRun_PriceFromFile(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "price", "se3", "--file", pricingFixture)
	require.NoError(t, err)
	assert.Equal(t, "SE3: 83 öre/kWh (10:00–10:15)\n", stdout)
}

func TestRun_PricesFromFile(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "prices", "--file", pricingFixture,
		"--from", "2024-01-15T10:00", "--to", "2024-01-15T10:30")
	require.NoError(t, err)
	assert.Equal(t, "SE3, 2024-01-15\n  83 öre/kWh (10:00–10:15)\n  -2 öre/kWh (10:15–10:30)\n", stdout)

	stdout, _, err = run(t, "prices", "--file", pricingFixture, "--json")
	require.NoError(t, err)
	var prices []types.PriceInterval
	require.NoError(t, json.Unmarshal([]byte(stdout), &prices))
	assert.Len(t, prices, 4)

	_, _, err = run(t, "prices", "--file", pricingFixture,
		"--from", "2024-01-15T11:00", "--to", "2024-01-15T10:00")
	require.Error(t, err)
}

func TestRun_OutagesFromFile(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "outages", "--file", outageFixture, "--json")
	require.NoError(t, err)

	var outages []types.OutageRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &outages))
	require.Len(t, outages, 2)
	assert.Equal(t, []string{"Solna", "Sundbyberg"}, outages[0].Locations)
	assert.Equal(t, types.DistrictHeating, outages[1].Service)

	stdout, _, err = run(t, "outages", "--file", outageFixture)
	require.NoError(t, err)
	assert.Contains(t, stdout, "- Water in Solna, Sundbyberg, under investigation, 120 customers affected")
	assert.Contains(t, stdout, "- District heating in Västerås, under service, 3 customers affected")
}

func TestRun_OutagesFetched(t *testing.T) {
	t.Parallel()

	page, err := os.ReadFile(outageFixture)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	stdout, _, err := run(t, "--outage-url", srv.URL, "outages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Västerås")
}

func TestRun_PriceTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/SE4", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := run(t, "--pricing-url", srv.URL, "price", "SE4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current price for SE4")
}
