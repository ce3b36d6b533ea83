package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/malar-go/types"
)

// SectorProviders are the price providers for one sector in order of
// preference.
type SectorProviders struct {
	Sector    types.Sector
	Providers []types.PriceProvider
}

type PriceStore interface {
	SavePriceIntervals(ctx context.Context, sector types.Sector, source string, intervals []types.PriceInterval) error
	GetPriceIntervalAt(ctx context.Context, sector types.Sector, t time.Time) (types.PriceInterval, bool, error)
}

type PricePublisher interface {
	PublishPrice(sector types.Sector, price types.PriceInterval) error
}

func NewEnergyPriceTask(logger *slog.Logger, db PriceStore, sectors []SectorProviders, pub PricePublisher) func() {
	if len(sectors) == 0 {
		panic("no sectors to fetch energy prices for")
	}
	for _, s := range sectors {
		if len(s.Providers) == 0 {
			panic("no energy price providers for " + s.Sector.String())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if needImmediateEnergyPriceUpdate(ctx, db, sectors) {
		logger.Info("need an immediate update of energy prices")
		runEnergyPriceTask(logger, db, sectors, pub)
	} else {
		logger.Debug("no need for immediate update of energy prices")
	}

	return func() { runEnergyPriceTask(logger, db, sectors, pub) }
}

func runEnergyPriceTask(logger *slog.Logger, db PriceStore, sectors []SectorProviders, pub PricePublisher) {
	logger.Debug("running energy price task...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, s := range sectors {
		sectorLogger := logger.With(slog.String("sector", s.Sector.String()))

		var prices []types.PriceInterval
		var source string
		for _, provider := range s.Providers {
			p, err := provider.GetPriceIntervals(ctx)
			if err != nil {
				sectorLogger.Error("energy price task error, fetching energy prices",
					slog.String("provider", provider.Name()), slog.Any("error", err))
				continue
			}
			if len(p) == 0 {
				sectorLogger.Warn("energy price provider returned no prices", slog.String("provider", provider.Name()))
				continue
			}
			prices, source = p, provider.Name()
			break
		}

		if len(prices) == 0 {
			sectorLogger.Error("energy price task error, no prices fetched")
			continue
		}

		if err := db.SavePriceIntervals(ctx, s.Sector, source, prices); err != nil {
			sectorLogger.Error("energy price task error", slog.Any("error", err))
			continue
		}

		sectorLogger.Info("energy prices updated",
			slog.String("provider", source),
			slog.Int("noOfIntervalsUpdated", len(prices)))

		publishCurrentPrice(ctx, sectorLogger, db, s.Sector, pub)
	}

	logger.Info("energy price task done")
}

func publishCurrentPrice(ctx context.Context, logger *slog.Logger, db PriceStore, sector types.Sector, pub PricePublisher) {
	if pub == nil {
		return
	}
	current, ok, err := db.GetPriceIntervalAt(ctx, sector, time.Now())
	if err != nil {
		logger.Error("energy price task error, reading current price", slog.Any("error", err))
		return
	}
	if !ok {
		logger.Warn("no current price stored, nothing to publish")
		return
	}
	if err := pub.PublishPrice(sector, current); err != nil {
		logger.Error("energy price task error, publishing current price", slog.Any("error", err))
	}
}

func needImmediateEnergyPriceUpdate(ctx context.Context, db PriceStore, sectors []SectorProviders) bool {
	next := time.Now().Add(time.Hour)
	for _, s := range sectors {
		if _, ok, err := db.GetPriceIntervalAt(ctx, s.Sector, next); err != nil || !ok {
			return true
		}
	}
	return false
}
