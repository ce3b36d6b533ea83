package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/icodeforyou/malar-go/config"
	"github.com/icodeforyou/malar-go/database"
	"github.com/icodeforyou/malar-go/elprisetjustnu"
	"github.com/icodeforyou/malar-go/logging"
	"github.com/icodeforyou/malar-go/malarenergi"
	"github.com/icodeforyou/malar-go/nordpool"
	"github.com/icodeforyou/malar-go/publish"
	"github.com/icodeforyou/malar-go/task"
	"github.com/icodeforyou/malar-go/types"
	"github.com/icodeforyou/malar-go/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	var consoleLevel, dbLevel slog.LevelVar

	cnfg, err := config.Watch(*configPath, func(c *config.AppConfig) {
		consoleLevel.Set(c.Logging.GetConsoleLevel())
		dbLevel.Set(c.Logging.GetDbLevel())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	consoleLevel.Set(cnfg.Logging.GetConsoleLevel())
	dbLevel.Set(cnfg.Logging.GetDbLevel())

	sectors, err := cnfg.Malar.GetSectors()
	if err != nil {
		panic(fmt.Sprintf("invalid sectors in config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      &consoleLevel,
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("malar is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, &dbLevel, cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	httpClient := &http.Client{Timeout: cnfg.Malar.GetHttpTimeout()}
	clientOpts := []malarenergi.Option{
		malarenergi.WithHTTPClient(httpClient),
		malarenergi.WithLogger(logger.With("module", "malarenergi")),
	}
	if cnfg.Malar.PricingBaseURL != nil {
		clientOpts = append(clientOpts, malarenergi.WithPricingBaseURL(*cnfg.Malar.PricingBaseURL))
	}
	if cnfg.Malar.OutageURL != nil {
		clientOpts = append(clientOpts, malarenergi.WithOutageURL(*cnfg.Malar.OutageURL))
	}
	client := malarenergi.New(clientOpts...)

	sectorProviders := make([]task.SectorProviders, 0, len(sectors))
	for _, sector := range sectors {
		providers := []types.PriceProvider{
			malarenergi.NewProvider(client, sector), // Primary provider
		}
		if cnfg.EnergyPrice.Fallback {
			providers = append(providers,
				elprisetjustnu.New(sector, httpClient),
				nordpool.New(sector, httpClient))
		}
		sectorProviders = append(sectorProviders, task.SectorProviders{Sector: sector, Providers: providers})
	}

	var pub task.Publisher
	if cnfg.Mqtt.Enabled && !isDevMode() {
		p := publish.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.Port,
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.GetTopicPrefix())
		if err := p.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connection error: %v", err))
		}
		defer p.Disconnect()
		pub = p
	} else {
		logger.Info("mqtt publishing disabled")
	}

	server := www.NewServer(db, client, cnfg.Api)

	tasks := task.NewTasks(db, sectorProviders, client, pub, server.BroadcastOutages, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
