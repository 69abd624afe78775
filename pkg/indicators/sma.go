package indicators

import (
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// Sma is a simple moving average over a fixed window of close prices.
type Sma struct {
	windowSize int

	window []fixed.Point
	head   int
	count  int
	sum    fixed.Point
}

func NewSma(windowSize int) *Sma {
	if windowSize <= 0 {
		panic("window size must be positive")
	}
	return &Sma{
		windowSize: windowSize,
		window:     make([]fixed.Point, windowSize),
		sum:        fixed.Zero,
	}
}

func (s *Sma) Update(price fixed.Point) {
	if s.count == s.windowSize {
		s.sum = s.sum.Sub(s.window[s.head])
	} else {
		s.count++
	}
	s.window[s.head] = price
	s.head = (s.head + 1) % s.windowSize
	s.sum = s.sum.Add(price)
}

func (s *Sma) Value() fixed.Point {
	if s.count == 0 {
		return fixed.Zero
	}
	return s.sum.DivInt(s.count)
}

func (s *Sma) Count() int {
	return s.count
}

func (s *Sma) IsReady() bool {
	return s.count == s.windowSize
}

func (s *Sma) Reset() {
	s.head = 0
	s.count = 0
	s.sum = fixed.Zero
	for i := range s.window {
		s.window[i] = fixed.Point{}
	}
}
