package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/quantfabric/strata/internal/advisor"
	"github.com/quantfabric/strata/internal/config"
	"github.com/quantfabric/strata/internal/dbg"
	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/exchange/ws"
	"github.com/quantfabric/strata/pkg/journal"
	"github.com/quantfabric/strata/pkg/middleware"
	"github.com/quantfabric/strata/pkg/strategy"
)

var configPath = flag.String("config", "strata.yaml", "path to the configuration file")

func main() {
	flag.Parse()

	logger := dbg.NewProdLogger()
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("error loading configuration", zap.Error(err))
	}
	logger = dbg.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ledger, err := journal.Open(cfg.Journal.SQLitePath)
	if err != nil {
		logger.Fatal("error opening journal", zap.Error(err))
	}
	defer func() {
		_ = ledger.Close()
	}()

	router := bus.NewRouter(cfg.Router.Capacity)

	gateway, err := ws.Dial(cfg.Gateway.URL, router, logger)
	if err != nil {
		logger.Fatal("error connecting to order gateway", zap.Error(err))
	}
	defer gateway.Close()

	emaCross := advisor.NewEmaCross(logger, cfg.Strategy.Symbol,
		cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod, cfg.Strategy.Quantity)

	engine := strategy.NewEngine(emaCross, cfg.Strategy.Label,
		strategy.WithExecClient(gateway),
		strategy.WithRouter(router))
	defer engine.Close()

	barType := common.BarType{
		Symbol:     cfg.Strategy.Symbol,
		Step:       cfg.Strategy.BarStep,
		Resolution: common.ResolutionMinute,
		QuoteType:  common.QuoteTypeLast,
	}
	emaCross.Bind(engine, barType)

	monitor := middleware.NewMonitor(middleware.MonitorAll)
	telemetry := middleware.NewTelemetry(logger)

	journalOrderEvents := func(next bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
		return func(ctx context.Context, ev common.OrderEvent) {
			if err := ledger.SaveOrderEvent(ctx, ev); err != nil {
				logger.Warn("unable to journal order event", zap.Error(err))
			}
			next(ctx, ev)
		}
	}

	router.OnBar = middleware.Chain(
		telemetry.WithBar, monitor.WithBar,
	)(engine.HandleBar)
	router.OnOrderUpdate = middleware.Chain(
		telemetry.WithOrderUpdate, monitor.WithOrderUpdate, journalOrderEvents,
	)(engine.HandleOrderUpdate)
	router.OnTime = middleware.Chain(
		telemetry.WithTime, monitor.WithTime,
	)(engine.HandleTime)

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("error starting strategy", zap.Error(err))
	}

	logger.Info("live session starting",
		zap.String("strategy", engine.ID().String()),
		zap.String("gateway", cfg.Gateway.URL))

	done := router.Exec(ctx)
	defer router.Statistics().Print()
	defer telemetry.PrintStatistics()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("error during event dispatch", zap.Error(err))
	}

	if err := engine.Stop(context.Background()); err != nil {
		logger.Error("error stopping strategy", zap.Error(err))
	}

	logger.Info("done")
}
