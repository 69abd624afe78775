package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
)

type Telemetry struct {
	logger *zap.Logger

	barEventCounter         int64
	orderUpdateEventCounter int64
	timeEventCounter        int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, update common.BarUpdate) {
		t.barEventCounter++
		handler(ctx, update)
	}
}

func (t *Telemetry) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) {
		t.orderUpdateEventCounter++
		handler(ctx, ev)
	}
}

func (t *Telemetry) WithTime(handler bus.TimeEventHandler) bus.TimeEventHandler {
	return func(ctx context.Context, te common.TimeEvent) {
		t.timeEventCounter++
		handler(ctx, te)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("telemetry statistics",
		zap.Int64("bar_events", t.barEventCounter),
		zap.Int64("order_update_events", t.orderUpdateEventCounter),
		zap.Int64("time_events", t.timeEventCounter))
}
