package strategy

import (
	"container/heap"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quantfabric/strata/pkg/common"
)

// DefaultPriority orders same-due-time events by registration sequence.
// Any lower value fires ahead of it.
const DefaultPriority = math.MaxInt32

const idleWait = time.Hour

type scheduleEntry struct {
	label     string
	due       time.Time
	interval  time.Duration
	repeat    bool
	priority  int
	seq       uint64
	cancelled bool
}

type scheduleHeap []*scheduleEntry

func (h scheduleHeap) Len() int { return len(h) }

func (h scheduleHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x any) { *h = append(*h, x.(*scheduleEntry)) }

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// Clock schedules one-shot alerts and repeating timers. A single dispatcher
// goroutine sleeps until the earliest due entry and pops everything due in
// (due time, priority, registration) order, which keeps delivery order
// deterministic even when several entries share a due time. Fired events are
// handed to the post function and never touch strategy state directly.
type Clock struct {
	post func(common.TimeEvent)
	now  func() time.Time

	mu      sync.Mutex
	pending map[string]*scheduleEntry
	queue   scheduleHeap
	seq     uint64
	started bool
	closed  bool

	wake chan struct{}
	stop chan struct{}
}

func NewClock(post func(common.TimeEvent)) *Clock {
	return &Clock{
		post:    post,
		now:     time.Now,
		pending: make(map[string]*scheduleEntry),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// SetAlert schedules a single delivery at due. The label must not be
// pending.
func (c *Clock) SetAlert(label string, due time.Time, priority int) error {
	return c.schedule(label, due, 0, false, priority)
}

// SetTimer schedules delivery at start and, when repeat is set, every
// interval thereafter. Re-arming uses previous due plus interval, not now
// plus interval, so drift does not accumulate.
func (c *Clock) SetTimer(label string, start time.Time, interval time.Duration, repeat bool, priority int) error {
	if repeat && interval <= 0 {
		return fmt.Errorf("%w: repeating timer %q needs a positive interval", ErrInvalidState, label)
	}
	return c.schedule(label, start, interval, repeat, priority)
}

// CancelAlert removes a pending alert. Cancelling something already fired
// or never scheduled has no effect.
func (c *Clock) CancelAlert(label string) {
	c.cancel(label)
}

// CancelTimer removes a pending timer. No-op when absent.
func (c *Clock) CancelTimer(label string) {
	c.cancel(label)
}

// Pending reports whether the label is still scheduled.
func (c *Clock) Pending(label string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[label]
	return ok
}

// Close stops the dispatcher goroutine. Pending entries are discarded.
func (c *Clock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.started {
		close(c.stop)
	}
}

func (c *Clock) schedule(label string, due time.Time, interval time.Duration, repeat bool, priority int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: clock is closed", ErrInvalidState)
	}
	if _, ok := c.pending[label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}

	c.seq++
	entry := &scheduleEntry{
		label:    label,
		due:      due,
		interval: interval,
		repeat:   repeat,
		priority: priority,
		seq:      c.seq,
	}
	c.pending[label] = entry
	heap.Push(&c.queue, entry)

	if !c.started {
		c.started = true
		go c.run()
	}
	c.kick()
	return nil
}

func (c *Clock) cancel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pending[label]
	if !ok {
		return
	}
	entry.cancelled = true
	delete(c.pending, label)
}

func (c *Clock) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Clock) run() {
	for {
		c.mu.Lock()
		wait := idleWait
		for len(c.queue) > 0 && c.queue[0].cancelled {
			heap.Pop(&c.queue)
		}
		if len(c.queue) > 0 {
			wait = c.queue[0].due.Sub(c.now())
			if wait < 0 {
				wait = 0
			}
		}
		c.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-c.stop:
			timer.Stop()
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
			c.fire()
		}
	}
}

// fire pops every entry due by now, in heap order, and posts outside the
// lock so a handler may schedule or cancel without deadlocking.
func (c *Clock) fire() {
	now := c.now()

	c.mu.Lock()
	var fired []*scheduleEntry
	for len(c.queue) > 0 {
		next := c.queue[0]
		if next.cancelled {
			heap.Pop(&c.queue)
			continue
		}
		if next.due.After(now) {
			break
		}
		heap.Pop(&c.queue)
		fired = append(fired, next)

		if next.repeat {
			rearmed := *next
			rearmed.due = next.due.Add(next.interval)
			c.pending[next.label] = &rearmed
			heap.Push(&c.queue, &rearmed)
		} else {
			delete(c.pending, next.label)
		}
	}
	c.mu.Unlock()

	for _, entry := range fired {
		c.post(common.TimeEvent{
			EventMeta: common.NewEventMeta(entry.due),
			Label:     entry.label,
			DueTime:   entry.due,
			Priority:  entry.priority,
		})
	}
}
