package common

import (
	"time"

	"github.com/quantfabric/strata/pkg/utility"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Event is anything deliverable to a strategy's OnEvent hook. Order events
// and time events share one channel and are distinguished by type.
type Event interface {
	EventID() utility.TraceID
	Occurred() time.Time
}

// OrderEvent is a lifecycle event for a single tracked order.
type OrderEvent interface {
	Event
	OrderID() string
}

type EventMeta struct {
	EventId   utility.TraceID `json:"eid"`
	TimeStamp time.Time       `json:"ts"`
}

func NewEventMeta(ts time.Time) EventMeta {
	return EventMeta{EventId: utility.CreateTraceID(), TimeStamp: ts}
}

func (m EventMeta) EventID() utility.TraceID { return m.EventId }
func (m EventMeta) Occurred() time.Time      { return m.TimeStamp }

type OrderEventMeta struct {
	EventMeta
	Symbol  string `json:"symbol"`
	OrderId string `json:"order_id"`
}

func (m OrderEventMeta) OrderID() string { return m.OrderId }

type OrderSubmitted struct {
	OrderEventMeta
}

type OrderAccepted struct {
	OrderEventMeta
}

type OrderRejected struct {
	OrderEventMeta
	Reason string `json:"reason,omitempty"`
}

type OrderWorking struct {
	OrderEventMeta
}

type OrderExpired struct {
	OrderEventMeta
}

// OrderModified carries the price the venue accepted for the amended order.
type OrderModified struct {
	OrderEventMeta
	ModifiedPrice fixed.Point `json:"modified_price"`
}

type OrderCancelled struct {
	OrderEventMeta
}

// OrderCancelReject signals a refused cancel/modify request. It is
// informational only and never changes order status.
type OrderCancelReject struct {
	OrderEventMeta
	Response string `json:"response,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type OrderFilled struct {
	OrderEventMeta
	FilledQuantity int64       `json:"filled_quantity"`
	AveragePrice   fixed.Point `json:"average_price"`
}

// TimeEvent is produced by the strategy clock. Lower priority fires first
// among events due at the same time.
type TimeEvent struct {
	EventMeta
	Label    string    `json:"label"`
	DueTime  time.Time `json:"due_time"`
	Priority int       `json:"priority"`
}
