package indicators

import (
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// TrueRange smooths the bar true range over a window. It consumes the full
// open, high, low, close sequence.
type TrueRange struct {
	windowSize int

	count     int
	lastClose fixed.Point
	current   fixed.Point
}

func NewTrueRange(windowSize int) *TrueRange {
	if windowSize <= 0 {
		panic("window size must be positive")
	}
	return &TrueRange{
		windowSize: windowSize,
		lastClose:  fixed.Zero,
		current:    fixed.Zero,
	}
}

func (r *TrueRange) Update(open, high, low, close fixed.Point) {
	_ = open

	tr := high.Sub(low).Abs()
	if r.count > 0 {
		if hc := high.Sub(r.lastClose).Abs(); hc.Gt(tr) {
			tr = hc
		}
		if lc := low.Sub(r.lastClose).Abs(); lc.Gt(tr) {
			tr = lc
		}
	}

	if r.count == 0 {
		r.current = tr
	} else {
		r.current = r.current.MulInt(r.windowSize - 1).Add(tr).DivInt(r.windowSize)
	}

	r.lastClose = close
	r.count++
}

func (r *TrueRange) Value() fixed.Point {
	return r.current
}

func (r *TrueRange) Count() int {
	return r.count
}

func (r *TrueRange) IsReady() bool {
	return r.count >= r.windowSize
}

func (r *TrueRange) Reset() {
	r.count = 0
	r.lastClose = fixed.Zero
	r.current = fixed.Zero
}
