package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/exchange"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Tracker owns the order state machine, the order to position index and the
// position book. A mutex guards the maps so order entry stays safe from any
// goroutine, including hooks re-entering mid-dispatch. The lock is never
// held across a gateway call.
type Tracker struct {
	exec exchange.ExecClient

	mu     sync.Mutex
	orders map[string]*common.Order
	index  map[string]string
	book   map[string]*common.Position
}

func NewTracker(exec exchange.ExecClient) *Tracker {
	return &Tracker{
		exec:   exec,
		orders: make(map[string]*common.Order),
		index:  make(map[string]string),
		book:   make(map[string]*common.Position),
	}
}

// AddOrder registers an order under a position id without contacting the
// gateway. Re-registering an id is a hard error, never an overwrite.
func (t *Tracker) AddOrder(order common.Order, positionId string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.orders[order.Id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderId, order.Id)
	}

	tracked := order
	t.orders[order.Id] = &tracked
	t.index[order.Id] = positionId

	position, ok := t.book[positionId]
	if !ok {
		position = &common.Position{Id: positionId}
		t.book[positionId] = position
	}
	position.OrderIds = append(position.OrderIds, order.Id)
	return nil
}

// Submit registers the order with status INITIALIZED and forwards it to the
// gateway. The position association is recorded before any acknowledgement
// arrives, so an asynchronous Accepted/Working event always finds it.
func (t *Tracker) Submit(ctx context.Context, order common.Order, positionId string) error {
	if t.exec == nil {
		return fmt.Errorf("%w: no execution client registered", ErrInvalidState)
	}
	order.Status = common.OrderStatusInitialized
	if err := t.AddOrder(order, positionId); err != nil {
		return err
	}
	return t.exec.SubmitOrder(ctx, order, positionId)
}

// Cancel issues a cancel request for a tracked, non-terminal order.
func (t *Tracker) Cancel(ctx context.Context, order common.Order) error {
	snapshot, err := t.amendable(order.Id)
	if err != nil {
		return err
	}
	return t.exec.CancelOrder(ctx, snapshot)
}

// Modify issues a price amendment for a tracked, non-terminal order.
func (t *Tracker) Modify(ctx context.Context, order common.Order, newPrice fixed.Point) error {
	snapshot, err := t.amendable(order.Id)
	if err != nil {
		return err
	}
	return t.exec.ModifyOrder(ctx, snapshot, newPrice)
}

// amendable snapshots a tracked order that may still receive requests.
func (t *Tracker) amendable(id string) (common.Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracked, ok := t.orders[id]
	if !ok {
		return common.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if t.exec == nil {
		return common.Order{}, fmt.Errorf("%w: no execution client registered", ErrInvalidState)
	}
	if tracked.Status.IsTerminal() {
		return common.Order{}, fmt.Errorf("%w: order %s is %s", ErrInvalidState, id, tracked.Status)
	}
	return *tracked, nil
}

// ApplyEvent drives the state machine from a gateway event. The venue is
// authoritative, the reported lifecycle is recorded as-is. An event for an
// untracked id is a protocol violation.
func (t *Tracker) ApplyEvent(ev common.OrderEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	order, ok := t.orders[ev.OrderID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, ev.OrderID())
	}

	switch e := ev.(type) {
	case common.OrderSubmitted:
		order.Status = common.OrderStatusSubmitted
	case common.OrderAccepted:
		order.Status = common.OrderStatusAccepted
	case common.OrderRejected:
		order.Status = common.OrderStatusRejected
	case common.OrderWorking:
		order.Status = common.OrderStatusWorking
	case common.OrderExpired:
		order.Status = common.OrderStatusExpired
	case common.OrderModified:
		order.Price = e.ModifiedPrice
	case common.OrderCancelled:
		order.Status = common.OrderStatusCancelled
	case common.OrderFilled:
		order.Status = common.OrderStatusFilled
	case common.OrderCancelReject:
		// Informational only, the request was refused and status stands.
	default:
		return fmt.Errorf("unsupported order event %T for %s", ev, ev.OrderID())
	}
	return nil
}

func (t *Tracker) Order(id string) (*common.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	order, ok := t.orders[id]
	return order, ok
}

func (t *Tracker) Orders() map[string]*common.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*common.Order, len(t.orders))
	for id, order := range t.orders {
		out[id] = order
	}
	return out
}

func (t *Tracker) Position(id string) (*common.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	position, ok := t.book[id]
	return position, ok
}

func (t *Tracker) Positions() map[string]*common.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*common.Position, len(t.book))
	for id, position := range t.book {
		out[id] = position
	}
	return out
}

// PositionIdFor returns the position a tracked order belongs to.
func (t *Tracker) PositionIdFor(orderId string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	positionId, ok := t.index[orderId]
	return positionId, ok
}

// RemovePosition drops a position from the book. Flattening is a caller
// decision, the core never closes positions on its own.
func (t *Tracker) RemovePosition(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.book, id)
}

// OppositeSide maps BUY to SELL and back.
func OppositeSide(side common.OrderSide) common.OrderSide {
	if side == common.OrderSideBuy {
		return common.OrderSideSell
	}
	return common.OrderSideBuy
}

// FlattenSide returns the order side that closes the given exposure. A flat
// position has no well-defined flattening side.
func FlattenSide(position common.MarketPosition) (common.OrderSide, error) {
	switch position {
	case common.MarketPositionLong:
		return common.OrderSideSell, nil
	case common.MarketPositionShort:
		return common.OrderSideBuy, nil
	default:
		return 0, fmt.Errorf("%w: cannot flatten %s", ErrInvalidState, position)
	}
}
