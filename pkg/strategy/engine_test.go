package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/exchange/paper"
	"github.com/quantfabric/strata/pkg/indicators"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

type recordingHooks struct {
	mu sync.Mutex

	starts int
	stops  int
	resets int
	bars   []common.Bar
	events []common.Event

	eventCh chan common.Event

	onBar   func(ctx context.Context, barType common.BarType, bar common.Bar)
	onEvent func(ctx context.Context, event common.Event)
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{eventCh: make(chan common.Event, 16)}
}

func (h *recordingHooks) OnStart(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *recordingHooks) OnStop(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
}

func (h *recordingHooks) OnReset(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
}

func (h *recordingHooks) OnBar(ctx context.Context, barType common.BarType, bar common.Bar) {
	h.mu.Lock()
	h.bars = append(h.bars, bar)
	h.mu.Unlock()
	if h.onBar != nil {
		h.onBar(ctx, barType, bar)
	}
}

func (h *recordingHooks) OnEvent(ctx context.Context, event common.Event) {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	if h.onEvent != nil {
		h.onEvent(ctx, event)
	}
	h.eventCh <- event
}

func (h *recordingHooks) barCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bars)
}

func (h *recordingHooks) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func minuteBarType(symbol string) common.BarType {
	return common.BarType{
		Symbol:     symbol,
		Step:       1,
		Resolution: common.ResolutionMinute,
		QuoteType:  common.QuoteTypeLast,
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	ctx := context.Background()

	if engine.IsRunning() {
		t.Error("Expected new engine to be stopped")
	}
	if err := engine.Stop(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState stopping a stopped engine, got %v", err)
	}

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !engine.IsRunning() {
		t.Error("Expected engine to be running")
	}
	if err := engine.Start(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState starting twice, got %v", err)
	}
	if err := engine.Reset(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState resetting while running, got %v", err)
	}

	if err := engine.Stop(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := engine.Reset(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if hooks.starts != 1 || hooks.stops != 1 || hooks.resets != 1 {
		t.Errorf("Expected 1 start/stop/reset, got %d/%d/%d", hooks.starts, hooks.stops, hooks.resets)
	}
}

func TestEngine_UpdateBarsOrdering(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	barType := minuteBarType("EURUSD")

	ema := indicators.NewEma(3)
	engine.RegisterIndicator(barType, "ema", NewCloseUpdater(ema.Update), ema)

	bar := testBar("1.0", "1.5", "0.5", "1.2")
	hooks.onBar = func(_ context.Context, bt common.BarType, b common.Bar) {
		// Indicators and history must be current before user logic runs.
		if ema.Count() != 1 {
			t.Errorf("Expected indicator updated before OnBar, count %d", ema.Count())
		}
		last, ok := engine.LastBar(bt)
		if !ok || !last.Close.Eq(b.Close) {
			t.Error("Expected history appended before OnBar")
		}
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	engine.UpdateBars(context.Background(), barType, bar)

	if hooks.barCount() != 1 {
		t.Fatalf("Expected 1 OnBar call, got %d", hooks.barCount())
	}
}

func TestEngine_IndicatorsUpdateWhileStopped(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	barType := minuteBarType("EURUSD")

	ema := indicators.NewEma(3)
	engine.RegisterIndicator(barType, "ema", NewCloseUpdater(ema.Update), ema)

	engine.UpdateBars(context.Background(), barType, testBar("1.0", "1.0", "1.0", "1.0"))

	if ema.Count() != 1 {
		t.Errorf("Expected indicator updated while stopped, count %d", ema.Count())
	}
	if len(engine.Bars(barType)) != 1 {
		t.Errorf("Expected history retained while stopped, got %d", len(engine.Bars(barType)))
	}
	if hooks.barCount() != 0 {
		t.Errorf("Expected no OnBar while stopped, got %d", hooks.barCount())
	}
}

func TestEngine_DispatchFollowsRegistrationOrder(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	barType := minuteBarType("EURUSD")

	var order []string
	engine.RegisterIndicator(barType, "first", NewCloseUpdater(func(fixed.Point) {
		order = append(order, "first")
	}), nil)
	engine.RegisterIndicator(barType, "second", NewCloseUpdater(func(fixed.Point) {
		order = append(order, "second")
	}), nil)

	engine.UpdateBars(context.Background(), barType, testBar("1.0", "1.0", "1.0", "1.0"))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected registration order, got %v", order)
	}

	labels := engine.IndicatorLabels()
	if len(labels) != 2 || labels[0] != "first" || labels[1] != "second" {
		t.Errorf("Expected labels in registration order, got %v", labels)
	}
}

func TestEngine_ResetClearsComputationalState(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	barType := minuteBarType("EURUSD")
	ctx := context.Background()

	ema := indicators.NewEma(3)
	engine.RegisterIndicator(barType, "ema", NewCloseUpdater(ema.Update), ema)

	if err := engine.AddOrder(common.Order{Id: "O-1"}, "P1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	engine.UpdateBars(ctx, barType, testBar("1.0", "1.0", "1.0", "1.0"))

	if err := engine.Reset(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(engine.Bars(barType)) != 0 {
		t.Error("Expected bar history cleared on reset")
	}
	if ema.Count() != 0 {
		t.Error("Expected registered indicator reset")
	}
	if _, ok := engine.Order("O-1"); !ok {
		t.Error("Expected order tracking to survive reset")
	}
	if _, ok := engine.Position("P1"); !ok {
		t.Error("Expected position book to survive reset")
	}
	if hooks.resets != 1 {
		t.Errorf("Expected OnReset invoked once, got %d", hooks.resets)
	}
}

func TestEngine_PaperVenueRoundTrip(t *testing.T) {
	hooks := newRecordingHooks()

	var engine *Engine
	venue := paper.NewVenue(func(ev common.OrderEvent) {
		engine.HandleOrderUpdate(context.Background(), ev)
	})
	engine = NewEngine(hooks, "001", WithExecClient(venue))
	defer engine.Close()
	ctx := context.Background()

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	order := common.Order{
		Id:       "A-1",
		Symbol:   "EURUSD",
		Side:     common.OrderSideBuy,
		Type:     common.OrderTypeMarket,
		Quantity: 100,
		Price:    fixed.MustFromString("1.10"),
	}
	if err := engine.SubmitOrder(ctx, order, "P1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tracked, ok := engine.Order("A-1")
	if !ok {
		t.Fatal("Order not tracked")
	}
	if tracked.Status != common.OrderStatusWorking {
		t.Errorf("Expected WORKING after venue acknowledgement, got %s", tracked.Status)
	}
	if positionId, _ := engine.PositionIdFor("A-1"); positionId != "P1" {
		t.Errorf("Expected position P1, got %s", positionId)
	}
	position, ok := engine.Position("P1")
	if !ok || !position.Contains("A-1") {
		t.Error("Expected position P1 to contain A-1")
	}
	if hooks.eventCount() != 3 {
		t.Errorf("Expected 3 delivered events, got %d", hooks.eventCount())
	}

	if err := venue.FillLastOrder(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tracked.Status != common.OrderStatusFilled {
		t.Errorf("Expected FILLED, got %s", tracked.Status)
	}
}

func TestEngine_CancelOrderRoundTrip(t *testing.T) {
	hooks := newRecordingHooks()

	var engine *Engine
	venue := paper.NewVenue(func(ev common.OrderEvent) {
		engine.HandleOrderUpdate(context.Background(), ev)
	})
	engine = NewEngine(hooks, "001", WithExecClient(venue))
	defer engine.Close()
	ctx := context.Background()

	if err := engine.SubmitOrder(ctx, common.Order{Id: "O-1"}, "P1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := engine.CancelOrder(ctx, common.Order{Id: "O-1"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tracked, _ := engine.Order("O-1")
	if tracked.Status != common.OrderStatusCancelled {
		t.Errorf("Expected CANCELLED, got %s", tracked.Status)
	}
	if err := engine.CancelOrder(ctx, common.Order{Id: "O-1"}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState cancelling a terminal order, got %v", err)
	}
}

func TestEngine_EventsGatedWhileStopped(t *testing.T) {
	hooks := newRecordingHooks()

	var engine *Engine
	venue := paper.NewVenue(func(ev common.OrderEvent) {
		engine.HandleOrderUpdate(context.Background(), ev)
	})
	engine = NewEngine(hooks, "001", WithExecClient(venue))
	defer engine.Close()

	if err := engine.SubmitOrder(context.Background(), common.Order{Id: "O-1"}, "P1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// State machine advances, but OnEvent stays silent while stopped.
	tracked, _ := engine.Order("O-1")
	if tracked.Status != common.OrderStatusWorking {
		t.Errorf("Expected WORKING, got %s", tracked.Status)
	}
	if hooks.eventCount() != 0 {
		t.Errorf("Expected no OnEvent while stopped, got %d", hooks.eventCount())
	}
}

func TestEngine_TimeEventDelivery(t *testing.T) {
	hooks := newRecordingHooks()
	engine := NewEngine(hooks, "001")
	defer engine.Close()
	ctx := context.Background()

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := engine.SetAlert("session-close", time.Now().Add(10*time.Millisecond), DefaultPriority); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	select {
	case event := <-hooks.eventCh:
		te, ok := event.(common.TimeEvent)
		if !ok {
			t.Fatalf("Expected TimeEvent, got %T", event)
		}
		if te.Label != "session-close" {
			t.Errorf("Expected label 'session-close', got %s", te.Label)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for time event")
	}
}

func TestEngine_ConcurrentTimeEventOrderEntry(t *testing.T) {
	const alerts = 50

	hooks := newRecordingHooks()
	var engine *Engine
	var next atomic.Int64
	hooks.onEvent = func(context.Context, common.Event) {
		id := fmt.Sprintf("T-%d", next.Add(1))
		if err := engine.AddOrder(common.Order{Id: id}, "P-hook"); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	engine = NewEngine(hooks, "001")
	defer engine.Close()
	ctx := context.Background()

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	due := time.Now().Add(5 * time.Millisecond)
	for i := 0; i < alerts; i++ {
		if err := engine.SetAlert(fmt.Sprintf("alert-%d", i), due, DefaultPriority); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	// Order entry races the clock's deliveries on purpose.
	for i := 0; i < alerts; i++ {
		if err := engine.AddOrder(common.Order{Id: fmt.Sprintf("M-%d", i)}, "P-main"); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}

	for received := 0; received < alerts; {
		select {
		case <-hooks.eventCh:
			received++
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out after %d of %d time events", received, alerts)
		}
	}

	if got := len(engine.Orders()); got != 2*alerts {
		t.Errorf("Expected %d tracked orders, got %d", 2*alerts, got)
	}
}

func TestEngine_HookSubmitsDuringDelivery(t *testing.T) {
	hooks := newRecordingHooks()

	var engine *Engine
	venue := paper.NewVenue(func(ev common.OrderEvent) {
		engine.HandleOrderUpdate(context.Background(), ev)
	})

	submitted := false
	hooks.onEvent = func(ctx context.Context, event common.Event) {
		if _, ok := event.(common.OrderWorking); ok && !submitted {
			submitted = true
			if err := engine.SubmitOrder(ctx, common.Order{Id: "O-2"}, "P1"); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}
	}
	engine = NewEngine(hooks, "001", WithExecClient(venue))
	defer engine.Close()
	ctx := context.Background()

	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := engine.SubmitOrder(ctx, common.Order{Id: "O-1"}, "P1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The venue acknowledges synchronously, so the follow-up order's events
	// land mid-delivery and must still come through after the current step.
	for _, id := range []string{"O-1", "O-2"} {
		tracked, ok := engine.Order(id)
		if !ok {
			t.Fatalf("Order %s not tracked", id)
		}
		if tracked.Status != common.OrderStatusWorking {
			t.Errorf("Expected %s WORKING, got %s", id, tracked.Status)
		}
	}
	if hooks.eventCount() != 6 {
		t.Errorf("Expected 6 delivered events, got %d", hooks.eventCount())
	}
}

func TestEngine_SubmitWithoutExecClient(t *testing.T) {
	engine := NewEngine(newRecordingHooks(), "001")
	defer engine.Close()

	err := engine.SubmitOrder(context.Background(), common.Order{Id: "O-1"}, "P1")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}
