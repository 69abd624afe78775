package indicators

import (
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Ema is an exponential moving average fed by close prices. The first
// update seeds the value directly.
type Ema struct {
	period int
	alpha  fixed.Point

	count int
	value fixed.Point
}

func NewEma(period int) *Ema {
	if period <= 0 {
		panic("period must be positive")
	}
	return &Ema{
		period: period,
		alpha:  fixed.Two.DivInt(period + 1),
		value:  fixed.Zero,
	}
}

func (e *Ema) Update(price fixed.Point) {
	e.count++
	if e.count == 1 {
		e.value = price
		return
	}
	e.value = e.value.Add(price.Sub(e.value).Mul(e.alpha))
}

func (e *Ema) Value() fixed.Point {
	return e.value
}

func (e *Ema) Count() int {
	return e.count
}

func (e *Ema) IsReady() bool {
	return e.count >= e.period
}

func (e *Ema) Reset() {
	e.count = 0
	e.value = fixed.Zero
}
