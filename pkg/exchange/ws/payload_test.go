package ws

import (
	"testing"
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

func TestWs_EventFrameToEvent(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		frame eventFrame
		check func(t *testing.T, ev common.OrderEvent)
	}{
		{
			name:  "accepted",
			frame: eventFrame{Type: "order_accepted", Symbol: "EURUSD", OrderId: "O-1", TimeStamp: ts},
			check: func(t *testing.T, ev common.OrderEvent) {
				if _, ok := ev.(common.OrderAccepted); !ok {
					t.Errorf("Expected OrderAccepted, got %T", ev)
				}
			},
		},
		{
			name:  "rejected",
			frame: eventFrame{Type: "order_rejected", OrderId: "O-1", Reason: "margin", TimeStamp: ts},
			check: func(t *testing.T, ev common.OrderEvent) {
				rejected, ok := ev.(common.OrderRejected)
				if !ok {
					t.Fatalf("Expected OrderRejected, got %T", ev)
				}
				if rejected.Reason != "margin" {
					t.Errorf("Expected reason 'margin', got %s", rejected.Reason)
				}
			},
		},
		{
			name:  "modified",
			frame: eventFrame{Type: "order_modified", OrderId: "O-1", Price: "1.25", TimeStamp: ts},
			check: func(t *testing.T, ev common.OrderEvent) {
				modified, ok := ev.(common.OrderModified)
				if !ok {
					t.Fatalf("Expected OrderModified, got %T", ev)
				}
				if !modified.ModifiedPrice.Eq(fixed.MustFromString("1.25")) {
					t.Errorf("Expected price 1.25, got %s", modified.ModifiedPrice)
				}
			},
		},
		{
			name:  "filled",
			frame: eventFrame{Type: "order_filled", OrderId: "O-1", Price: "1.10", Quantity: 100, TimeStamp: ts},
			check: func(t *testing.T, ev common.OrderEvent) {
				filled, ok := ev.(common.OrderFilled)
				if !ok {
					t.Fatalf("Expected OrderFilled, got %T", ev)
				}
				if filled.FilledQuantity != 100 {
					t.Errorf("Expected quantity 100, got %d", filled.FilledQuantity)
				}
				if !filled.AveragePrice.Eq(fixed.MustFromString("1.10")) {
					t.Errorf("Expected price 1.10, got %s", filled.AveragePrice)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := tc.frame.toEvent()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ev.OrderID() != "O-1" {
				t.Errorf("Expected order id O-1, got %s", ev.OrderID())
			}
			if !ev.Occurred().Equal(ts) {
				t.Errorf("Expected timestamp %v, got %v", ts, ev.Occurred())
			}
			tc.check(t, ev)
		})
	}
}

func TestWs_EventFrameUnknownType(t *testing.T) {
	frame := eventFrame{Type: "heartbeat"}
	if _, err := frame.toEvent(); err == nil {
		t.Error("Expected error for unsupported frame type")
	}
}

func TestWs_EventFrameInvalidPrice(t *testing.T) {
	frame := eventFrame{Type: "order_modified", OrderId: "O-1", Price: "not-a-price"}
	if _, err := frame.toEvent(); err == nil {
		t.Error("Expected error for unparsable price")
	}
}

func TestWs_BarFrameToBarUpdate(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	frame := eventFrame{
		Type:   frameBar,
		Symbol: "EURUSD",
		Bar: &barPayload{
			Step:       1,
			Resolution: "MINUTE",
			QuoteType:  "LAST",
			Open:       "1.10",
			High:       "1.15",
			Low:        "1.05",
			Close:      "1.12",
			Volume:     2500,
		},
		TimeStamp: ts,
	}

	update, err := frame.toBarUpdate()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := common.BarType{
		Symbol:     "EURUSD",
		Step:       1,
		Resolution: common.ResolutionMinute,
		QuoteType:  common.QuoteTypeLast,
	}
	if update.BarType != want {
		t.Errorf("Expected bar type %v, got %v", want, update.BarType)
	}
	if !update.Bar.Close.Eq(fixed.MustFromString("1.12")) {
		t.Errorf("Expected close 1.12, got %s", update.Bar.Close)
	}
	if update.Bar.Volume != 2500 {
		t.Errorf("Expected volume 2500, got %d", update.Bar.Volume)
	}
	if !update.Bar.TimeStamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, update.Bar.TimeStamp)
	}
}

func TestWs_BarFrameInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		frame eventFrame
	}{
		{"missing payload", eventFrame{Type: frameBar, Symbol: "EURUSD"}},
		{"bad resolution", eventFrame{Type: frameBar, Bar: &barPayload{
			Resolution: "FORTNIGHT", QuoteType: "LAST",
			Open: "1", High: "1", Low: "1", Close: "1",
		}}},
		{"bad quote type", eventFrame{Type: frameBar, Bar: &barPayload{
			Resolution: "MINUTE", QuoteType: "GUESS",
			Open: "1", High: "1", Low: "1", Close: "1",
		}}},
		{"bad price", eventFrame{Type: frameBar, Bar: &barPayload{
			Resolution: "MINUTE", QuoteType: "LAST",
			Open: "1", High: "oops", Low: "1", Close: "1",
		}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.frame.toBarUpdate(); err == nil {
				t.Error("Expected error for malformed bar frame")
			}
		})
	}
}

func TestWs_RequestFramePayload(t *testing.T) {
	order := common.Order{
		Id:       "O-1",
		Symbol:   "EURUSD",
		Side:     common.OrderSideSell,
		Type:     common.OrderTypeLimit,
		Quantity: 50,
		Price:    fixed.MustFromString("1.0950"),
	}

	payload := newOrderPayload(order)
	if payload.Side != "SELL" {
		t.Errorf("Expected side SELL, got %s", payload.Side)
	}
	if payload.Type != "LIMIT" {
		t.Errorf("Expected type LIMIT, got %s", payload.Type)
	}
	if payload.Price != "1.0950" {
		t.Errorf("Expected price 1.0950, got %s", payload.Price)
	}
}
