package task

import (
	"context"
	"log/slog"

	"github.com/icodeforyou/malar-go/config"
	"github.com/icodeforyou/malar-go/database"
	"github.com/robfig/cron/v3"
)

// Publisher is satisfied by *publish.Publisher. Leave it nil to skip MQTT.
type Publisher interface {
	PricePublisher
	OutagePublisher
}

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	EnergyPriceTask func()
	OutageTask      func()
	MaintenanceTask func()
}

func NewTasks(
	db *database.Database,
	sectors []SectorProviders,
	outages OutageFetcher,
	pub Publisher,
	onOutages OnOutages,
	cnfg *config.AppConfig,
) *Tasks {
	logger := slog.Default().With("module", "tasks")

	// A nil Publisher must stay a nil interface for each task.
	var pricePub PricePublisher
	var outagePub OutagePublisher
	if pub != nil {
		pricePub, outagePub = pub, pub
	}

	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		EnergyPriceTask: NewEnergyPriceTask(logger.With(slog.String("task", "energy_price")), db, sectors, pricePub),
		OutageTask:      NewOutageTask(logger.With(slog.String("task", "outage")), outages, db, outagePub, onOutages),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	_, err := t.cron.AddFunc(t.cnfg.EnergyPrice.RunAt, t.EnergyPriceTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc(t.cnfg.Outage.RunAt, t.OutageTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()

	// Scrape once at startup instead of waiting for the first tick.
	go t.OutageTask()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
