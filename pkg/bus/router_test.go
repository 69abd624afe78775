package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfabric/strata/pkg/common"
)

func TestBusRouter_Post(t *testing.T) {
	r := NewRouter(10)

	err := r.Post(BarEvent, common.BarUpdate{})
	if err != nil {
		t.Errorf("Post failed: %v", err)
	}

	if r.postCount.Load() != 1 {
		t.Errorf("Expected postCount=1, got %d", r.postCount.Load())
	}
}

func TestBusRouter_PostCapacityReached(t *testing.T) {
	r := NewRouter(1)

	err := r.Post(BarEvent, common.BarUpdate{})
	if err != nil {
		t.Errorf("First Post failed: %v", err)
	}

	err = r.Post(BarEvent, common.BarUpdate{})
	if err == nil {
		t.Error("Expected error when capacity reached")
	}

	if r.postFails.Load() != 1 {
		t.Errorf("Expected postFails=1, got %d", r.postFails.Load())
	}
}

func TestBusRouter_Exec(t *testing.T) {
	r := NewRouter(10)

	barHandled := make(chan struct{}, 1)
	r.OnBar = func(ctx context.Context, update common.BarUpdate) {
		barHandled <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := r.Exec(ctx)

	if err := r.Post(BarEvent, common.BarUpdate{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	select {
	case <-barHandled:
	case <-time.After(time.Second):
		t.Fatal("Bar handler not called")
	}
	cancel()

	err := <-errChan
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	if r.dispatchCount.Load() != 1 {
		t.Errorf("Expected dispatchCount=1, got %d", r.dispatchCount.Load())
	}
}

func TestBusRouter_ExecLoop(t *testing.T) {
	r := NewRouter(10)

	var orderEventHandled bool
	r.OnOrderUpdate = func(ctx context.Context, ev common.OrderEvent) {
		orderEventHandled = true
	}

	doOnceCount := 0
	doOnceCb := func() error {
		doOnceCount++
		if doOnceCount > 5 {
			return errors.New("done")
		}
		return nil
	}

	if err := r.Post(OrderUpdateEvent, common.OrderEvent(common.OrderAccepted{})); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	errChan := r.ExecLoop(context.Background(), doOnceCb)

	err := <-errChan
	if err == nil || err.Error() != "done" {
		t.Errorf("Expected 'done' error, got %v", err)
	}

	if !orderEventHandled {
		t.Error("Order update handler not called")
	}

	if doOnceCount <= 5 {
		t.Errorf("Expected doOnceCount>5, got %d", doOnceCount)
	}
}

func TestBusRouter_DispatchPreservesOrder(t *testing.T) {
	r := NewRouter(16)

	var labels []string
	r.OnTime = func(ctx context.Context, te common.TimeEvent) {
		labels = append(labels, te.Label)
	}

	for _, label := range []string{"a", "b", "c", "d"} {
		if err := r.Post(TimeEvent, common.TimeEvent{Label: label}); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}

	doOnce := func() error { return errors.New("drained") }
	<-r.ExecLoop(context.Background(), doOnce)

	want := []string{"a", "b", "c", "d"}
	if len(labels) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(labels))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("Event %d: expected %q, got %q", i, want[i], labels[i])
		}
	}
}

func TestBusRouter_InvalidPayload(t *testing.T) {
	r := NewRouter(10)

	r.OnBar = func(ctx context.Context, update common.BarUpdate) {
		t.Error("Handler called for invalid payload")
	}

	if err := r.Post(BarEvent, "not a bar"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	doOnce := func() error { return errors.New("drained") }
	<-r.ExecLoop(context.Background(), doOnce)

	if r.dispatchFails.Load() != 1 {
		t.Errorf("Expected dispatchFails=1, got %d", r.dispatchFails.Load())
	}
}
