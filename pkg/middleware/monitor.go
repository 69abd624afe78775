package middleware

import (
	"context"
	"log/slog"

	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
)

type MonitorFlags uint8

const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorBars
	MonitorOrderUpdates
	MonitorTimeEvents
)

type Monitor struct {
	flags MonitorFlags
}

func NewMonitor(flags MonitorFlags) *Monitor {
	return &Monitor{
		flags: flags,
	}
}

func (m *Monitor) WithBar(handler bus.BarEventHandler) bus.BarEventHandler {
	return func(ctx context.Context, update common.BarUpdate) {
		if m.flags&MonitorBars != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "bar_type", update.BarType.String(), "bar", update.Bar)
		}
		handler(ctx, update)
	}
}

func (m *Monitor) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) {
		if m.flags&MonitorOrderUpdates != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "order_id", ev.OrderID(), "order_event", ev)
		}
		handler(ctx, ev)
	}
}

func (m *Monitor) WithTime(handler bus.TimeEventHandler) bus.TimeEventHandler {
	return func(ctx context.Context, te common.TimeEvent) {
		if m.flags&MonitorTimeEvents != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "label", te.Label, "time_event", te)
		}
		handler(ctx, te)
	}
}
