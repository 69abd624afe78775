package ws

import (
	"fmt"
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

const (
	frameSubmit = "submit"
	frameCancel = "cancel"
	frameModify = "modify"

	frameBar = "bar"
)

type orderPayload struct {
	Id       string `json:"id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price,omitempty"`
}

func newOrderPayload(order common.Order) *orderPayload {
	return &orderPayload{
		Id:       order.Id,
		Symbol:   order.Symbol,
		Side:     order.Side.String(),
		Type:     order.Type.String(),
		Quantity: order.Quantity,
		Price:    order.Price.String(),
	}
}

type requestFrame struct {
	Type       string        `json:"type"`
	Order      *orderPayload `json:"order,omitempty"`
	OrderId    string        `json:"order_id,omitempty"`
	PositionId string        `json:"position_id,omitempty"`
	Price      string        `json:"price,omitempty"`
}

type eventFrame struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	OrderId   string      `json:"order_id,omitempty"`
	Price     string      `json:"price,omitempty"`
	Quantity  int64       `json:"quantity,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Bar       *barPayload `json:"bar,omitempty"`
	TimeStamp time.Time   `json:"ts"`
}

type barPayload struct {
	Step       int    `json:"step"`
	Resolution string `json:"resolution"`
	QuoteType  string `json:"quote_type"`
	Open       string `json:"open"`
	High       string `json:"high"`
	Low        string `json:"low"`
	Close      string `json:"close"`
	Volume     int64  `json:"volume"`
}

var resolutions = map[string]common.Resolution{
	"SECOND": common.ResolutionSecond,
	"MINUTE": common.ResolutionMinute,
	"HOUR":   common.ResolutionHour,
	"DAY":    common.ResolutionDay,
}

var quoteTypes = map[string]common.QuoteType{
	"BID":  common.QuoteTypeBid,
	"ASK":  common.QuoteTypeAsk,
	"MID":  common.QuoteTypeMid,
	"LAST": common.QuoteTypeLast,
}

// toBarUpdate decodes a market-data frame into the bar stream shape the
// engine consumes.
func (f eventFrame) toBarUpdate() (common.BarUpdate, error) {
	if f.Bar == nil {
		return common.BarUpdate{}, fmt.Errorf("bar frame without bar payload")
	}
	resolution, ok := resolutions[f.Bar.Resolution]
	if !ok {
		return common.BarUpdate{}, fmt.Errorf("unsupported resolution %q", f.Bar.Resolution)
	}
	quoteType, ok := quoteTypes[f.Bar.QuoteType]
	if !ok {
		return common.BarUpdate{}, fmt.Errorf("unsupported quote type %q", f.Bar.QuoteType)
	}
	step := f.Bar.Step
	if step <= 0 {
		step = 1
	}

	prices := make([]fixed.Point, 4)
	for i, raw := range []string{f.Bar.Open, f.Bar.High, f.Bar.Low, f.Bar.Close} {
		parsed, err := fixed.FromString(raw)
		if err != nil {
			return common.BarUpdate{}, fmt.Errorf("invalid bar price %q: %w", raw, err)
		}
		prices[i] = parsed
	}

	return common.BarUpdate{
		BarType: common.BarType{
			Symbol:     f.Symbol,
			Step:       step,
			Resolution: resolution,
			QuoteType:  quoteType,
		},
		Bar: common.Bar{
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    f.Bar.Volume,
			TimeStamp: f.TimeStamp,
		},
	}, nil
}

func (f eventFrame) meta() common.OrderEventMeta {
	return common.OrderEventMeta{
		EventMeta: common.NewEventMeta(f.TimeStamp),
		Symbol:    f.Symbol,
		OrderId:   f.OrderId,
	}
}

func (f eventFrame) toEvent() (common.OrderEvent, error) {
	switch f.Type {
	case "order_submitted":
		return common.OrderSubmitted{OrderEventMeta: f.meta()}, nil
	case "order_accepted":
		return common.OrderAccepted{OrderEventMeta: f.meta()}, nil
	case "order_rejected":
		return common.OrderRejected{OrderEventMeta: f.meta(), Reason: f.Reason}, nil
	case "order_working":
		return common.OrderWorking{OrderEventMeta: f.meta()}, nil
	case "order_expired":
		return common.OrderExpired{OrderEventMeta: f.meta()}, nil
	case "order_modified":
		price, err := fixed.FromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid modified price %q: %w", f.Price, err)
		}
		return common.OrderModified{OrderEventMeta: f.meta(), ModifiedPrice: price}, nil
	case "order_cancelled":
		return common.OrderCancelled{OrderEventMeta: f.meta()}, nil
	case "order_cancel_reject":
		return common.OrderCancelReject{OrderEventMeta: f.meta(), Reason: f.Reason}, nil
	case "order_filled":
		price := fixed.Zero
		if f.Price != "" {
			parsed, err := fixed.FromString(f.Price)
			if err != nil {
				return nil, fmt.Errorf("invalid fill price %q: %w", f.Price, err)
			}
			price = parsed
		}
		return common.OrderFilled{OrderEventMeta: f.meta(), FilledQuantity: f.Quantity, AveragePrice: price}, nil
	default:
		return nil, fmt.Errorf("unsupported event frame type %q", f.Type)
	}
}
