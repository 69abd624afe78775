package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantfabric/strata/pkg/bus"
	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/exchange"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Hooks is the user-strategy boundary. Implementations are synchronous and
// expected to return promptly, a hook that submits an order re-enters the
// tracker within the same processing step. Hook panics are not recovered.
type Hooks interface {
	OnStart(ctx context.Context)
	OnStop(ctx context.Context)
	OnReset(ctx context.Context)
	OnBar(ctx context.Context, barType common.BarType, bar common.Bar)
	OnEvent(ctx context.Context, event common.Event)
}

// Resettable restores a registered indicator handle to its fresh state when
// the engine resets.
type Resettable interface {
	Reset()
}

type Option func(*Engine)

// WithExecClient sets the execution gateway used for submit/cancel/modify.
func WithExecClient(exec exchange.ExecClient) Option {
	return func(e *Engine) {
		e.exec = exec
	}
}

// WithRouter makes the clock post time events through the router instead of
// delivering straight into the hook path. The owner wires router.OnTime back
// to HandleTime, keeping all mutation on the router's dispatch goroutine.
func WithRouter(router *bus.Router) Option {
	return func(e *Engine) {
		e.router = router
	}
}

// Engine owns all mutable strategy state. Every bar, order event and time
// event is processed as one serialized step: a step arriving while another
// is in flight, from the clock's dispatcher or any other goroutine, is
// queued and run by the goroutine already dispatching. Hooks therefore never
// execute concurrently, and a delivery produced inside a hook (a venue
// acknowledging a submit synchronously) runs right after the step that
// produced it instead of deadlocking.
type Engine struct {
	id      ID
	hooks   Hooks
	exec    exchange.ExecClient
	router  *bus.Router
	tracker *Tracker
	clock   *Clock

	running atomic.Bool

	bindings map[common.BarType][]*IndicatorUpdater
	handles  map[string]interface{}
	labels   []string

	barsMu sync.RWMutex
	bars   map[common.BarType][]common.Bar

	stepMu   sync.Mutex
	stepping bool
	backlog  []func()
}

func NewEngine(hooks Hooks, label string, options ...Option) *Engine {
	e := &Engine{
		id:       NewID(hooks, label),
		hooks:    hooks,
		bindings: make(map[common.BarType][]*IndicatorUpdater),
		handles:  make(map[string]interface{}),
		bars:     make(map[common.BarType][]common.Bar),
	}

	for _, option := range options {
		option(e)
	}

	e.tracker = NewTracker(e.exec)
	if e.router != nil {
		e.clock = NewClock(func(te common.TimeEvent) {
			if err := e.router.Post(bus.TimeEvent, te); err != nil {
				slog.Warn("unable to post time event", "error", err, "label", te.Label)
			}
		})
	} else {
		e.clock = NewClock(func(te common.TimeEvent) {
			e.step(func() { e.deliverEvent(context.Background(), te) })
		})
	}

	return e
}

// step runs fn as one serialized processing step. The first caller becomes
// the dispatcher and drains any steps queued behind it, later callers hand
// their step to the backlog and return. A step queued by the dispatching
// goroutine itself, a hook re-entering through a synchronous venue, lands on
// the backlog the same way and runs once the current step completes.
func (e *Engine) step(fn func()) {
	e.stepMu.Lock()
	if e.stepping {
		e.backlog = append(e.backlog, fn)
		e.stepMu.Unlock()
		return
	}
	e.stepping = true
	e.stepMu.Unlock()

	defer func() {
		e.stepMu.Lock()
		e.stepping = false
		e.backlog = nil
		e.stepMu.Unlock()
	}()

	for {
		fn()
		e.stepMu.Lock()
		if len(e.backlog) == 0 {
			e.stepMu.Unlock()
			return
		}
		fn = e.backlog[0]
		e.backlog = e.backlog[1:]
		e.stepMu.Unlock()
	}
}

func (e *Engine) ID() ID          { return e.id }
func (e *Engine) IsRunning() bool { return e.running.Load() }

// Close releases the clock's dispatcher goroutine.
func (e *Engine) Close() {
	e.clock.Close()
}

// Start transitions to RUNNING, invokes OnStart and opens the time-event
// delivery path.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s already running", ErrInvalidState, e.id)
	}
	e.step(func() { e.hooks.OnStart(ctx) })
	return nil
}

// Stop invokes OnStop and transitions to STOPPED. Pending timers stay
// scheduled but their events are no longer delivered to hooks.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.Load() {
		return fmt.Errorf("%w: %s not running", ErrInvalidState, e.id)
	}
	e.step(func() {
		e.hooks.OnStop(ctx)
		e.running.Store(false)
	})
	return nil
}

// Reset clears bar history and restores every registered indicator, then
// invokes OnReset. Order and position tracking survive, trade history is
// not computational state. Only valid while stopped.
func (e *Engine) Reset(ctx context.Context) error {
	if e.running.Load() {
		return fmt.Errorf("%w: cannot reset %s while running", ErrInvalidState, e.id)
	}

	e.step(func() {
		e.barsMu.Lock()
		e.bars = make(map[common.BarType][]common.Bar)
		e.barsMu.Unlock()
		for _, label := range e.labels {
			if resettable, ok := e.handles[label].(Resettable); ok {
				resettable.Reset()
			}
		}
		e.hooks.OnReset(ctx)
	})
	return nil
}

// RegisterIndicator binds an updater to a bar stream. Dispatch order per
// bar type equals registration order. The handle is retained for label
// lookup and reset. Registration is setup work, it must finish before the
// engine starts receiving bars.
func (e *Engine) RegisterIndicator(barType common.BarType, label string, updater *IndicatorUpdater, handle interface{}) {
	e.bindings[barType] = append(e.bindings[barType], updater)
	if _, ok := e.handles[label]; !ok {
		e.labels = append(e.labels, label)
	}
	e.handles[label] = handle
}

// UpdateBars drives every bound updater in registration order, appends the
// bar to history, then notifies OnBar, in that fixed order, so indicators
// are always current before user logic observes them. Indicator and history
// updates happen regardless of lifecycle state, the hook fires only while
// running.
func (e *Engine) UpdateBars(ctx context.Context, barType common.BarType, bar common.Bar) {
	e.step(func() {
		for _, updater := range e.bindings[barType] {
			updater.Update(bar)
		}
		e.barsMu.Lock()
		e.bars[barType] = append(e.bars[barType], bar)
		e.barsMu.Unlock()

		if e.running.Load() {
			e.hooks.OnBar(ctx, barType, bar)
		}
	})
}

// UpdateEvents applies the event to the tracked order, then hands the same
// event to OnEvent so user logic always observes post-mutation state. The
// state transition is synchronous so the caller gets the tracker's verdict,
// the hook delivery is a serialized step.
func (e *Engine) UpdateEvents(ctx context.Context, ev common.OrderEvent) error {
	if err := e.tracker.ApplyEvent(ev); err != nil {
		return err
	}
	e.step(func() { e.deliverEvent(ctx, ev) })
	return nil
}

func (e *Engine) deliverEvent(ctx context.Context, ev common.Event) {
	if e.running.Load() {
		e.hooks.OnEvent(ctx, ev)
	}
}

// HandleBar adapts UpdateBars to the router's handler shape.
func (e *Engine) HandleBar(ctx context.Context, update common.BarUpdate) {
	e.UpdateBars(ctx, update.BarType, update.Bar)
}

// HandleOrderUpdate adapts UpdateEvents to the router's handler shape. A
// protocol violation is logged rather than dropped silently.
func (e *Engine) HandleOrderUpdate(ctx context.Context, ev common.OrderEvent) {
	if err := e.UpdateEvents(ctx, ev); err != nil {
		slog.Error("order event rejected", "error", err, "order_id", ev.OrderID())
	}
}

// HandleTime adapts time-event delivery to the router's handler shape.
func (e *Engine) HandleTime(ctx context.Context, te common.TimeEvent) {
	e.step(func() { e.deliverEvent(ctx, te) })
}

// SubmitOrder registers the order under a position id and forwards it to
// the gateway.
func (e *Engine) SubmitOrder(ctx context.Context, order common.Order, positionId string) error {
	return e.tracker.Submit(ctx, order, positionId)
}

// AddOrder registers an already-working order without a gateway round trip.
func (e *Engine) AddOrder(order common.Order, positionId string) error {
	return e.tracker.AddOrder(order, positionId)
}

func (e *Engine) CancelOrder(ctx context.Context, order common.Order) error {
	return e.tracker.Cancel(ctx, order)
}

func (e *Engine) ModifyOrder(ctx context.Context, order common.Order, newPrice fixed.Point) error {
	return e.tracker.Modify(ctx, order, newPrice)
}

// SetAlert schedules a one-shot time event.
func (e *Engine) SetAlert(label string, due time.Time, priority int) error {
	return e.clock.SetAlert(label, due, priority)
}

// SetTimer schedules a timer, repeating when repeat is set.
func (e *Engine) SetTimer(label string, start time.Time, interval time.Duration, repeat bool, priority int) error {
	return e.clock.SetTimer(label, start, interval, repeat, priority)
}

func (e *Engine) CancelAlert(label string) { e.clock.CancelAlert(label) }
func (e *Engine) CancelTimer(label string) { e.clock.CancelTimer(label) }

func (e *Engine) Orders() map[string]*common.Order { return e.tracker.Orders() }

func (e *Engine) Order(id string) (*common.Order, bool) { return e.tracker.Order(id) }

func (e *Engine) Positions() map[string]*common.Position { return e.tracker.Positions() }

func (e *Engine) Position(id string) (*common.Position, bool) { return e.tracker.Position(id) }

func (e *Engine) PositionIdFor(orderId string) (string, bool) {
	return e.tracker.PositionIdFor(orderId)
}

func (e *Engine) RemovePosition(id string) { e.tracker.RemovePosition(id) }

// AllBars returns the retained history for every bar type.
func (e *Engine) AllBars() map[common.BarType][]common.Bar {
	e.barsMu.RLock()
	defer e.barsMu.RUnlock()
	out := make(map[common.BarType][]common.Bar, len(e.bars))
	for barType, history := range e.bars {
		out[barType] = history
	}
	return out
}

// Bars returns the retained history for one bar type, oldest first.
func (e *Engine) Bars(barType common.BarType) []common.Bar {
	e.barsMu.RLock()
	defer e.barsMu.RUnlock()
	return e.bars[barType]
}

// LastBar returns the most recent bar for the type, if any.
func (e *Engine) LastBar(barType common.BarType) (common.Bar, bool) {
	e.barsMu.RLock()
	defer e.barsMu.RUnlock()
	history := e.bars[barType]
	if len(history) == 0 {
		return common.Bar{}, false
	}
	return history[len(history)-1], true
}

// IndicatorLabels returns registered labels in registration order.
func (e *Engine) IndicatorLabels() []string { return e.labels }

// Indicator returns the handle registered under label.
func (e *Engine) Indicator(label string) (interface{}, bool) {
	handle, ok := e.handles[label]
	return handle, ok
}
