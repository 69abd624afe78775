// Package paper provides a deterministic in-process venue that acknowledges
// every request immediately. It is the execution gateway used by tests and
// replay runs.
package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Deliver hands a generated order event to the strategy's intake. Wire it
// to the router's post or straight to the engine in single-threaded tests.
type Deliver func(common.OrderEvent)

type Venue struct {
	deliver Deliver
	now     func() time.Time

	lastOrder   common.Order
	hasLast     bool
	submitCount uint64
}

func NewVenue(deliver Deliver) *Venue {
	return &Venue{
		deliver: deliver,
		now:     time.Now,
	}
}

// SubmitOrder walks the order through Submitted, Accepted and Working.
func (v *Venue) SubmitOrder(_ context.Context, order common.Order, _ string) error {
	v.lastOrder = order
	v.hasLast = true
	v.submitCount++

	meta := func() common.OrderEventMeta {
		return common.OrderEventMeta{
			EventMeta: common.NewEventMeta(v.now()),
			Symbol:    order.Symbol,
			OrderId:   order.Id,
		}
	}

	v.deliver(common.OrderSubmitted{OrderEventMeta: meta()})
	v.deliver(common.OrderAccepted{OrderEventMeta: meta()})
	v.deliver(common.OrderWorking{OrderEventMeta: meta()})
	return nil
}

func (v *Venue) CancelOrder(_ context.Context, order common.Order) error {
	v.deliver(common.OrderCancelled{OrderEventMeta: common.OrderEventMeta{
		EventMeta: common.NewEventMeta(v.now()),
		Symbol:    order.Symbol,
		OrderId:   order.Id,
	}})
	return nil
}

func (v *Venue) ModifyOrder(_ context.Context, order common.Order, newPrice fixed.Point) error {
	v.deliver(common.OrderModified{
		OrderEventMeta: common.OrderEventMeta{
			EventMeta: common.NewEventMeta(v.now()),
			Symbol:    order.Symbol,
			OrderId:   order.Id,
		},
		ModifiedPrice: newPrice,
	})
	return nil
}

// FillLastOrder fills the most recently submitted order in full at its
// limit price, or at zero for market orders.
func (v *Venue) FillLastOrder() error {
	if !v.hasLast {
		return fmt.Errorf("no order submitted")
	}

	order := v.lastOrder
	v.deliver(common.OrderFilled{
		OrderEventMeta: common.OrderEventMeta{
			EventMeta: common.NewEventMeta(v.now()),
			Symbol:    order.Symbol,
			OrderId:   order.Id,
		},
		FilledQuantity: order.Quantity,
		AveragePrice:   order.Price,
	})
	return nil
}

// Reject delivers a rejection for the order. A rejection is an ordinary
// event, not an error.
func (v *Venue) Reject(order common.Order, reason string) {
	v.deliver(common.OrderRejected{
		OrderEventMeta: common.OrderEventMeta{
			EventMeta: common.NewEventMeta(v.now()),
			Symbol:    order.Symbol,
			OrderId:   order.Id,
		},
		Reason: reason,
	})
}

// SubmitCount reports how many orders the venue has seen.
func (v *Venue) SubmitCount() uint64 { return v.submitCount }
