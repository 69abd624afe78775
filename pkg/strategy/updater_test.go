package strategy

import (
	"testing"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/indicators"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

func testBar(open, high, low, close string) common.Bar {
	return common.Bar{
		Open:  fixed.MustFromString(open),
		High:  fixed.MustFromString(high),
		Low:   fixed.MustFromString(low),
		Close: fixed.MustFromString(close),
	}
}

func TestStrategy_CloseUpdaterFeedsCloseOnly(t *testing.T) {
	var got []fixed.Point
	updater := NewCloseUpdater(func(p fixed.Point) {
		got = append(got, p)
	})

	updater.Update(testBar("1.0", "1.5", "0.5", "1.2"))
	updater.Update(testBar("1.2", "1.4", "1.1", "1.3"))

	if len(got) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(got))
	}
	if !got[0].Eq(fixed.MustFromString("1.2")) {
		t.Errorf("Expected close 1.2, got %s", got[0])
	}
	if !got[1].Eq(fixed.MustFromString("1.3")) {
		t.Errorf("Expected close 1.3, got %s", got[1])
	}
}

func TestStrategy_OHLCUpdaterArgumentOrder(t *testing.T) {
	var gotOpen, gotHigh, gotLow, gotClose fixed.Point
	updater := NewOHLCUpdater(func(open, high, low, close fixed.Point) {
		gotOpen, gotHigh, gotLow, gotClose = open, high, low, close
	})

	updater.Update(testBar("1.0", "1.5", "0.5", "1.2"))

	if !gotOpen.Eq(fixed.MustFromString("1.0")) {
		t.Errorf("Expected open 1.0, got %s", gotOpen)
	}
	if !gotHigh.Eq(fixed.MustFromString("1.5")) {
		t.Errorf("Expected high 1.5, got %s", gotHigh)
	}
	if !gotLow.Eq(fixed.MustFromString("0.5")) {
		t.Errorf("Expected low 0.5, got %s", gotLow)
	}
	if !gotClose.Eq(fixed.MustFromString("1.2")) {
		t.Errorf("Expected close 1.2, got %s", gotClose)
	}
}

func TestStrategy_UpdaterDrivesEma(t *testing.T) {
	ema := indicators.NewEma(3)
	updater := NewCloseUpdater(ema.Update)

	updater.Update(testBar("1.0", "1.0", "1.0", "2.0"))

	if !ema.Value().Eq(fixed.MustFromString("2.0")) {
		t.Errorf("Expected seeded value 2.0, got %s", ema.Value())
	}
	if ema.Count() != 1 {
		t.Errorf("Expected count 1, got %d", ema.Count())
	}
}

func TestStrategy_NilUpdateFnPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil update function")
		}
	}()
	NewCloseUpdater(nil)
}

func TestStrategy_UpdaterPanicPropagates(t *testing.T) {
	updater := NewCloseUpdater(func(fixed.Point) {
		panic("broken indicator")
	})

	defer func() {
		if recover() == nil {
			t.Error("Expected indicator panic to propagate")
		}
	}()
	updater.Update(testBar("1.0", "1.0", "1.0", "1.0"))
}
