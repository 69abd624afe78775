package common

import (
	"go.uber.org/zap/zapcore"

	"github.com/quantfabric/strata/pkg/utility/fixed"
)

type OrderSide int
type OrderType int
type OrderStatus int
type MarketPosition int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
)

const (
	OrderStatusInitialized OrderStatus = iota
	OrderStatusSubmitted
	OrderStatusAccepted
	OrderStatusRejected
	OrderStatusWorking
	OrderStatusCancelled
	OrderStatusExpired
	OrderStatusFilled
)

const (
	MarketPositionFlat MarketPosition = iota
	MarketPositionLong
	MarketPositionShort
)

func (s OrderSide) String() string {
	if s == OrderSideBuy {
		return "BUY"
	}
	return "SELL"
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStopMarket:
		return "STOP_MARKET"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInitialized:
		return "INITIALIZED"
	case OrderStatusSubmitted:
		return "SUBMITTED"
	case OrderStatusAccepted:
		return "ACCEPTED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusWorking:
		return "WORKING"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusExpired:
		return "EXPIRED"
	case OrderStatusFilled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further lifecycle events are expected.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCancelled, OrderStatusExpired, OrderStatusFilled:
		return true
	default:
		return false
	}
}

func (m MarketPosition) String() string {
	switch m {
	case MarketPositionFlat:
		return "FLAT"
	case MarketPositionLong:
		return "LONG"
	case MarketPositionShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Order ids are caller-assigned; the core never generates them. Once
// submitted the order is owned by the tracker and mutated only through
// lifecycle events.
type Order struct {
	Id       string      `json:"id"`
	Symbol   string      `json:"symbol"`
	Side     OrderSide   `json:"side"`
	Type     OrderType   `json:"type"`
	Quantity int64       `json:"quantity"`
	Price    fixed.Point `json:"price,omitempty"`
	Status   OrderStatus `json:"status"`
}

func (o Order) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", o.Id)
	enc.AddString("symbol", o.Symbol)
	enc.AddString("side", o.Side.String())
	enc.AddString("type", o.Type.String())
	enc.AddInt64("quantity", o.Quantity)
	enc.AddString("price", o.Price.String())
	enc.AddString("status", o.Status.String())
	return nil
}
