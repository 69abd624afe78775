package advisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/indicators"
	"github.com/quantfabric/strata/pkg/strategy"
)

// EmaCross is a demo strategy, not meant for production. It goes long when
// the fast average crosses above the slow one and flat on the opposite
// cross, one position at a time.
type EmaCross struct {
	logger *zap.Logger
	engine *strategy.Engine

	symbol   string
	quantity int64

	fast  *indicators.Ema
	slow  *indicators.Ema
	tr    *indicators.TrueRange
	above bool
	ready bool

	posOpen    bool
	orderSeq   int
	positionId string
}

func NewEmaCross(logger *zap.Logger, symbol string, fastPeriod, slowPeriod int, quantity int64) *EmaCross {
	return &EmaCross{
		logger:   logger,
		symbol:   symbol,
		quantity: quantity,
		fast:     indicators.NewEma(fastPeriod),
		slow:     indicators.NewEma(slowPeriod),
		tr:       indicators.NewTrueRange(slowPeriod),
	}
}

// Bind registers the advisor's indicators on the engine's bar stream and
// retains the engine for order entry. Must be called before the engine
// starts.
func (a *EmaCross) Bind(e *strategy.Engine, barType common.BarType) {
	a.engine = e
	e.RegisterIndicator(barType, "ema_fast", strategy.NewCloseUpdater(a.fast.Update), a.fast)
	e.RegisterIndicator(barType, "ema_slow", strategy.NewCloseUpdater(a.slow.Update), a.slow)
	e.RegisterIndicator(barType, "true_range", strategy.NewOHLCUpdater(a.tr.Update), a.tr)
}

func (a *EmaCross) OnStart(ctx context.Context) {
	a.logger.Info("advisor started", zap.String("symbol", a.symbol))
}

func (a *EmaCross) OnStop(ctx context.Context) {
	a.logger.Info("advisor stopped",
		zap.String("symbol", a.symbol),
		zap.Int("orders_submitted", a.orderSeq))
}

func (a *EmaCross) OnReset(ctx context.Context) {
	a.above = false
	a.ready = false
	a.posOpen = false
	a.positionId = ""
	a.logger.Info("advisor reset", zap.String("symbol", a.symbol))
}

func (a *EmaCross) OnBar(ctx context.Context, barType common.BarType, bar common.Bar) {
	if !a.fast.IsReady() || !a.slow.IsReady() {
		return
	}

	above := a.fast.Value().Gt(a.slow.Value())
	if !a.ready {
		// First fully-seeded bar only establishes which side we are on.
		a.above = above
		a.ready = true
		return
	}
	if above == a.above {
		return
	}
	a.above = above

	if above && !a.posOpen {
		a.enter(ctx, common.OrderSideBuy, bar)
	} else if !above && a.posOpen {
		a.enter(ctx, common.OrderSideSell, bar)
	}
}

func (a *EmaCross) OnEvent(ctx context.Context, event common.Event) {
	switch ev := event.(type) {
	case common.OrderFilled:
		a.logger.Info("order filled",
			zap.String("order_id", ev.OrderId),
			zap.Int64("quantity", ev.FilledQuantity),
			zap.String("avg_price", ev.AveragePrice.String()))
	case common.OrderRejected:
		a.logger.Warn("order rejected",
			zap.String("order_id", ev.OrderId),
			zap.String("reason", ev.Reason))
		a.posOpen = false
	case common.TimeEvent:
		a.logger.Debug("time event", zap.String("label", ev.Label))
	}
}

func (a *EmaCross) enter(ctx context.Context, side common.OrderSide, bar common.Bar) {
	a.orderSeq++
	order := common.Order{
		Id:       fmt.Sprintf("%s-%d", a.symbol, a.orderSeq),
		Symbol:   a.symbol,
		Side:     side,
		Type:     common.OrderTypeMarket,
		Quantity: a.quantity,
		Price:    bar.Close,
	}

	if side == common.OrderSideBuy {
		a.positionId = fmt.Sprintf("P-%s-%d", a.symbol, a.orderSeq)
	}

	if err := a.engine.SubmitOrder(ctx, order, a.positionId); err != nil {
		a.logger.Error("order submission failed",
			zap.String("order_id", order.Id), zap.Error(err))
		return
	}
	a.posOpen = side == common.OrderSideBuy
	a.logger.Info("order submitted",
		zap.String("order_id", order.Id),
		zap.String("side", side.String()),
		zap.String("position_id", a.positionId))
}
