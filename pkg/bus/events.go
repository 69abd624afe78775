package bus

import (
	"context"

	"github.com/quantfabric/strata/pkg/common"
)

type EventId uint8

const (
	BarEvent EventId = iota
	OrderUpdateEvent
	TimeEvent
)

func (id EventId) String() string {
	switch id {
	case BarEvent:
		return "bar"
	case OrderUpdateEvent:
		return "order_update"
	case TimeEvent:
		return "time"
	default:
		return "unknown"
	}
}

type EventHandler[T any] = func(context.Context, T)

type BarEventHandler EventHandler[common.BarUpdate]
type OrderUpdateEventHandler EventHandler[common.OrderEvent]
type TimeEventHandler EventHandler[common.TimeEvent]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
