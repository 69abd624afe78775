package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quantfabric/strata/internal/advisor"
	"github.com/quantfabric/strata/internal/config"
	"github.com/quantfabric/strata/internal/dbg"
	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/exchange/paper"
	"github.com/quantfabric/strata/pkg/journal"
	"github.com/quantfabric/strata/pkg/middleware"
	"github.com/quantfabric/strata/pkg/strategy"
)

var (
	configPath = flag.String("config", "strata.yaml", "path to the configuration file")
	from       = flag.String("from", "2020-01-01", "replay start date (YYYY-MM-DD)")
	to         = flag.String("to", "2030-01-01", "replay end date (YYYY-MM-DD)")
)

var errReplayComplete = errors.New("replay complete")

func main() {
	flag.Parse()

	logger := dbg.NewDevLogger()
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("error loading configuration", zap.Error(err))
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	logger = dbg.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	fromTime, err := time.Parse(time.DateOnly, *from)
	if err != nil {
		logger.Fatal("invalid -from date", zap.Error(err))
	}
	toTime, err := time.Parse(time.DateOnly, *to)
	if err != nil {
		logger.Fatal("invalid -to date", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ledger, err := journal.Open(cfg.Journal.SQLitePath)
	if err != nil {
		logger.Fatal("error opening journal", zap.Error(err))
	}
	defer func() {
		_ = ledger.Close()
	}()

	// Create
	monitor := middleware.NewMonitor(middleware.MonitorOrderUpdates | middleware.MonitorTimeEvents)
	telemetry := middleware.NewTelemetry(logger)

	router := bus.NewRouter(cfg.Router.Capacity)

	venue := paper.NewVenue(func(ev common.OrderEvent) {
		if err := router.Post(bus.OrderUpdateEvent, ev); err != nil {
			logger.Warn("unable to post order event", zap.Error(err))
		}
	})

	emaCross := advisor.NewEmaCross(logger, cfg.Strategy.Symbol,
		cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod, cfg.Strategy.Quantity)

	engine := strategy.NewEngine(emaCross, cfg.Strategy.Label,
		strategy.WithExecClient(venue),
		strategy.WithRouter(router))
	defer engine.Close()

	barType := common.BarType{
		Symbol:     cfg.Strategy.Symbol,
		Step:       cfg.Strategy.BarStep,
		Resolution: common.ResolutionMinute,
		QuoteType:  common.QuoteTypeLast,
	}
	emaCross.Bind(engine, barType)

	journalOrderEvents := func(next bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
		return func(ctx context.Context, ev common.OrderEvent) {
			if err := ledger.SaveOrderEvent(ctx, ev); err != nil {
				logger.Warn("unable to journal order event", zap.Error(err))
			}
			next(ctx, ev)
		}
	}
	journalTimeEvents := func(next bus.TimeEventHandler) bus.TimeEventHandler {
		return func(ctx context.Context, te common.TimeEvent) {
			if err := ledger.SaveTimeEvent(ctx, te); err != nil {
				logger.Warn("unable to journal time event", zap.Error(err))
			}
			next(ctx, te)
		}
	}

	// Initialize
	router.OnBar = middleware.Chain(
		telemetry.WithBar, monitor.WithBar,
	)(engine.HandleBar)
	router.OnOrderUpdate = middleware.Chain(
		telemetry.WithOrderUpdate, monitor.WithOrderUpdate, journalOrderEvents,
	)(engine.HandleOrderUpdate)
	router.OnTime = middleware.Chain(
		telemetry.WithTime, monitor.WithTime, journalTimeEvents,
	)(engine.HandleTime)

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("error starting strategy", zap.Error(err))
	}

	logger.Info("replay starting",
		zap.String("strategy", engine.ID().String()),
		zap.String("symbol", cfg.Strategy.Symbol),
		zap.Time("from", fromTime),
		zap.Time("to", toTime))

	barCh := make(chan common.BarUpdate)
	emit := func(bar common.Bar) error {
		select {
		case barCh <- common.BarUpdate{BarType: barType, Bar: bar}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	go func() {
		defer close(barCh)
		var err error
		if cfg.Data.BinaryPath != "" {
			err = replayBinary(ctx, cfg.Data.BinaryPath, fromTime, toTime, emit)
		} else {
			err = replayDuckDB(ctx, cfg.Data.DuckDBPath, cfg.Strategy.Symbol, fromTime, toTime, emit)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("error during bar replay", zap.Error(err))
		}
	}()

	// The idle callback only runs when the queue is drained, so the post
	// below cannot hit capacity.
	feed := func() error {
		select {
		case update, ok := <-barCh:
			if !ok {
				return errReplayComplete
			}
			return router.Post(bus.BarEvent, update)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := router.ExecLoop(ctx, feed)
	defer router.Statistics().Print()
	defer telemetry.PrintStatistics()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errReplayComplete) {
		logger.Error("error during event dispatch", zap.Error(err))
	}

	if err := engine.Stop(context.Background()); err != nil {
		logger.Error("error stopping strategy", zap.Error(err))
	}

	for id, order := range engine.Orders() {
		positionId, _ := engine.PositionIdFor(id)
		if err := ledger.SaveOrder(context.Background(), *order, positionId); err != nil {
			logger.Warn("unable to journal order", zap.String("order_id", id), zap.Error(err))
		}
	}
	for _, position := range engine.Positions() {
		if err := ledger.SavePosition(context.Background(), *position); err != nil {
			logger.Warn("unable to journal position", zap.String("position_id", position.Id), zap.Error(err))
		}
	}

	logger.Info("done")
}
