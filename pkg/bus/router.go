package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quantfabric/strata/pkg/common"
)

type event struct {
	id   EventId
	data interface{}
}

// Router is the single serialization boundary for a strategy instance.
// Producers may post concurrently; dispatch happens on one goroutine, so
// handlers never observe concurrent mutation of strategy state.
type Router struct {
	events chan event

	OnBar         BarEventHandler
	OnOrderUpdate OrderUpdateEventHandler
	OnTime        TimeEventHandler

	startTime     time.Time
	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(eventCapacity int) *Router {
	return &Router{
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data interface{}) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return errors.New("event capacity reached")
	}
}

// Exec drains the event queue until ctx is cancelled. The returned channel
// yields the terminating error exactly once.
func (r *Router) Exec(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	r.startTime = time.Now()
	go func() {
		defer func() { r.runTime.Store(int64(time.Since(r.startTime))) }()
		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatchCount.Add(1)
				if err := r.dispatch(ctx, ev); err != nil {
					r.dispatchFails.Add(1)
					slog.Warn("dispatch failed", "error", err, "event_id", ev.id)
				}
			}
		}
	}()

	return done
}

// ExecLoop is Exec with an idle callback invoked whenever the queue is
// empty, used by replay feeds to interleave data production with dispatch.
func (r *Router) ExecLoop(ctx context.Context, doOnceCb func() error) <-chan error {
	done := make(chan error, 1)

	r.startTime = time.Now()
	go func() {
		defer func() { r.runTime.Store(int64(time.Since(r.startTime))) }()
		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatchCount.Add(1)
				if err := r.dispatch(ctx, ev); err != nil {
					r.dispatchFails.Add(1)
					slog.Warn("dispatch failed", "error", err, "event_id", ev.id)
				}
			default:
				if err := doOnceCb(); err != nil {
					done <- err
					return
				}
			}
		}
	}()

	return done
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case BarEvent:
		update, ok := ev.data.(common.BarUpdate)
		if !ok {
			return errors.New("invalid type assertion for bar event")
		}
		if r.OnBar != nil {
			r.OnBar(ctx, update)
		} else {
			slog.Debug("bar handler is nil")
		}
	case OrderUpdateEvent:
		orderEvent, ok := ev.data.(common.OrderEvent)
		if !ok {
			return errors.New("invalid type assertion for order update event")
		}
		if r.OnOrderUpdate != nil {
			r.OnOrderUpdate(ctx, orderEvent)
		} else {
			slog.Debug("order update handler is nil")
		}
	case TimeEvent:
		timeEvent, ok := ev.data.(common.TimeEvent)
		if !ok {
			return errors.New("invalid type assertion for time event")
		}
		if r.OnTime != nil {
			r.OnTime(ctx, timeEvent)
		} else {
			slog.Debug("time handler is nil")
		}
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
	return nil
}
