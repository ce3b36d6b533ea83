package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/icodeforyou/malar-go/present"
	"github.com/icodeforyou/malar-go/types"
)

type OutageFetcher interface {
	FetchCurrentOutages(ctx context.Context, cache *goquery.Document) ([]types.OutageRecord, error)
}

type OutageStore interface {
	SaveOutages(ctx context.Context, outages []types.OutageRecord, now time.Time) ([]types.OutageRecord, error)
}

type OutagePublisher interface {
	PublishOutages(outages []types.OutageRecord, updatedAt time.Time) error
}

// OnOutages is called with every successfully scraped snapshot.
type OnOutages func(outages []types.OutageRecord, updatedAt time.Time)

func NewOutageTask(logger *slog.Logger, fetcher OutageFetcher, db OutageStore, pub OutagePublisher, onOutages OnOutages) func() {
	return func() {
		logger.Debug("running outage task...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		outages, err := fetcher.FetchCurrentOutages(ctx, nil)
		if err != nil {
			logger.Error("outage task error, fetching outages", slog.Any("error", err))
			return
		}

		now := time.Now()
		added, err := db.SaveOutages(ctx, outages, now)
		if err != nil {
			logger.Error("outage task error, saving outages", slog.Any("error", err))
			return
		}

		for _, o := range added {
			logger.Info("new outage", slog.String("summary", present.Outage(o, now)))
		}

		if pub != nil {
			if err := pub.PublishOutages(outages, now); err != nil {
				logger.Error("outage task error, publishing outages", slog.Any("error", err))
			}
		}

		if onOutages != nil {
			onOutages(outages, now)
		}

		logger.Info("outage task done", slog.Int("noOfOutages", len(outages)), slog.Int("noOfNewOutages", len(added)))
	}
}
