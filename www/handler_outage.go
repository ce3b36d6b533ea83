package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/icodeforyou/malar-go/hours"
	"github.com/icodeforyou/malar-go/types"
)

type OutageStore interface {
	GetLatestOutages(ctx context.Context) ([]types.OutageRecord, time.Time, error)
	GetOutagesBetween(ctx context.Context, from, to time.Time) ([]types.OutageRecord, error)
}

type outageHistoryResponse struct {
	From    time.Time            `json:"from"`
	To      time.Time            `json:"to"`
	Outages []types.OutageRecord `json:"outages"`
}

type outagesResponse struct {
	UpdatedAt *time.Time           `json:"updatedAt"`
	Outages   []types.OutageRecord `json:"outages"`
}

func newOutagesResponse(outages []types.OutageRecord, updatedAt time.Time) outagesResponse {
	resp := outagesResponse{Outages: outages}
	if resp.Outages == nil {
		resp.Outages = []types.OutageRecord{}
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// NewOutagesHandler serves the most recent stored outage snapshot.
func NewOutagesHandler(logger *slog.Logger, db OutageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outages, updatedAt, err := db.GetLatestOutages(r.Context())
		if err != nil {
			logger.Error("handling outages request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read outages")
			return
		}

		render.JSON(w, r, newOutagesResponse(outages, updatedAt))
	}
}

// NewOutageHistoryHandler lists every stored outage that started within
// [from, to], the last seven days by default.
func NewOutageHistoryHandler(logger *slog.Logger, db OutageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().In(hours.Stockholm())
		from, err := timeOrDefault(r.URL, "from", hours.StartOfDay(now).AddDate(0, 0, -7))
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		to, err := timeOrDefault(r.URL, "to", now)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		if from.After(to) {
			renderError(w, r, http.StatusBadRequest, "from is after to")
			return
		}

		outages, err := db.GetOutagesBetween(r.Context(), from, to)
		if err != nil {
			logger.Error("handling outage history request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "failed to read outages")
			return
		}
		if outages == nil {
			outages = []types.OutageRecord{}
		}

		render.JSON(w, r, outageHistoryResponse{From: from, To: to, Outages: outages})
	}
}
