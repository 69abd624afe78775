package strategy

import (
	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

type updateMode int

const (
	updateClose updateMode = iota
	updateOHLC
)

// IndicatorUpdater adapts an indicator's native update signature to a
// uniform bar-driven one. The arity is fixed at construction, not
// introspected per call. A panicking update function propagates, a broken
// indicator must not be silently swallowed.
type IndicatorUpdater struct {
	mode    updateMode
	closeFn func(fixed.Point)
	ohlcFn  func(open, high, low, close fixed.Point)
}

// NewCloseUpdater wraps an indicator fed by close price only.
func NewCloseUpdater(fn func(fixed.Point)) *IndicatorUpdater {
	if fn == nil {
		panic("close update function is nil")
	}
	return &IndicatorUpdater{mode: updateClose, closeFn: fn}
}

// NewOHLCUpdater wraps an indicator fed by the full open, high, low, close
// sequence, in that fixed order.
func NewOHLCUpdater(fn func(open, high, low, close fixed.Point)) *IndicatorUpdater {
	if fn == nil {
		panic("ohlc update function is nil")
	}
	return &IndicatorUpdater{mode: updateOHLC, ohlcFn: fn}
}

func (u *IndicatorUpdater) Update(bar common.Bar) {
	switch u.mode {
	case updateClose:
		u.closeFn(bar.Close)
	case updateOHLC:
		u.ohlcFn(bar.Open, bar.High, bar.Low, bar.Close)
	}
}
