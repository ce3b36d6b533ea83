package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/types"
)

type PriceStore interface {
	GetPriceIntervals(ctx context.Context, sector types.Sector, from, to time.Time) ([]types.PriceInterval, error)
	GetPriceIntervalAt(ctx context.Context, sector types.Sector, t time.Time) (types.PriceInterval, bool, error)
}

type CurrentPriceFetcher interface {
	FetchCurrentPrice(ctx context.Context, sector types.Sector, cache *malarenergi.PricingPayload) (types.PriceInterval, error)
}

type priceResponse struct {
	Sector types.Sector `json:"sector"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Price  int64        `json:"price"`
	Unit   string       `json:"unit"`
	Source string       `json:"source,omitempty"`
}

type pricesResponse struct {
	Sector    types.Sector    `json:"sector"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Unit      string          `json:"unit"`
	Intervals []priceInterval `json:"intervals"`
}

type priceInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price int64     `json:"price"`
}

const priceUnit = "öre/kWh"

func sectorParam(w http.ResponseWriter, r *http.Request) (types.Sector, bool) {
	sector, err := types.ParseSector(chi.URLParam(r, "sector"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return sector, true
}

// NewPricesHandler serves stored intervals starting within [from, to]. The
// default range is today and tomorrow.
func NewPricesHandler(logger *slog.Logger, db PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(slog.String("request_id", middleware.GetReqID(r.Context())))

		sector, ok := sectorParam(w, r)
		if !ok {
			return
		}

		today := hours.StartOfDay(time.Now())
		from, err := timeOrDefault(r.URL, "from", today)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		to, err := timeOrDefault(r.URL, "to", today.AddDate(0, 0, 2).Add(-time.Second))
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		if from.After(to) {
			renderError(w, r, http.StatusBadRequest, "from is after to")
			return
		}

		intervals, err := db.GetPriceIntervals(r.Context(), sector, from, to)
		if err != nil {
			log.Error("handling prices request", slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read prices")
			return
		}

		resp := pricesResponse{
			Sector:    sector,
			From:      from,
			To:        to,
			Unit:      priceUnit,
			Intervals: make([]priceInterval, 0, len(intervals)),
		}
		for _, p := range intervals {
			resp.Intervals = append(resp.Intervals, priceInterval{Start: p.Start, End: p.End, Price: p.Price})
		}

		render.JSON(w, r, resp)
	}
}

// NewCurrentPriceHandler asks Mälarenergi for the current price and falls back
// to the stored interval covering now.
func NewCurrentPriceHandler(logger *slog.Logger, live CurrentPriceFetcher, db PriceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(slog.String("request_id", middleware.GetReqID(r.Context())))

		sector, ok := sectorParam(w, r)
		if !ok {
			return
		}

		price, err := live.FetchCurrentPrice(r.Context(), sector, nil)
		if err == nil {
			render.JSON(w, r, newPriceResponse(sector, price, "malarenergi"))
			return
		}
		log.Warn("live current price failed, using stored price", slog.String("sector", sector.String()), slog.Any("error", err))

		price, ok, err = db.GetPriceIntervalAt(r.Context(), sector, time.Now())
		if err != nil {
			log.Error("handling current price request", slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read prices")
			return
		}
		if !ok {
			renderError(w, r, http.StatusBadGateway, "no current price available")
			return
		}

		render.JSON(w, r, newPriceResponse(sector, price, "database"))
	}
}

func newPriceResponse(sector types.Sector, p types.PriceInterval, source string) priceResponse {
	return priceResponse{
		Sector: sector,
		Start:  p.Start,
		End:    p.End,
		Price:  p.Price,
		Unit:   priceUnit,
		Source: source,
	}
}
