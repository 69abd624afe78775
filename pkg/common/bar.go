package common

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/quantfabric/strata/pkg/utility/fixed"
)

type Resolution int
type QuoteType int

const (
	ResolutionSecond Resolution = iota
	ResolutionMinute
	ResolutionHour
	ResolutionDay
)

const (
	QuoteTypeBid QuoteType = iota
	QuoteTypeAsk
	QuoteTypeMid
	QuoteTypeLast
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSecond:
		return "SECOND"
	case ResolutionMinute:
		return "MINUTE"
	case ResolutionHour:
		return "HOUR"
	case ResolutionDay:
		return "DAY"
	default:
		return "UNKNOWN"
	}
}

func (q QuoteType) String() string {
	switch q {
	case QuoteTypeBid:
		return "BID"
	case QuoteTypeAsk:
		return "ASK"
	case QuoteTypeMid:
		return "MID"
	case QuoteTypeLast:
		return "LAST"
	default:
		return "UNKNOWN"
	}
}

// BarType identifies a bar stream. It is comparable and used as a map key
// for indicator bindings and bar history.
type BarType struct {
	Symbol     string
	Step       int
	Resolution Resolution
	QuoteType  QuoteType
}

func (bt BarType) String() string {
	return fmt.Sprintf("%s-%d-%s[%s]", bt.Symbol, bt.Step, bt.Resolution, bt.QuoteType)
}

// Bar is immutable once constructed.
type Bar struct {
	Open      fixed.Point `json:"open"`
	High      fixed.Point `json:"high"`
	Low       fixed.Point `json:"low"`
	Close     fixed.Point `json:"close"`
	Volume    int64       `json:"volume"`
	TimeStamp time.Time   `json:"ts"`
}

func (b Bar) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("open", b.Open.String())
	enc.AddString("high", b.High.String())
	enc.AddString("low", b.Low.String())
	enc.AddString("close", b.Close.String())
	enc.AddInt64("volume", b.Volume)
	enc.AddTime("ts", b.TimeStamp)
	return nil
}

// BarUpdate is the bus payload pairing a bar with the stream it belongs to.
type BarUpdate struct {
	BarType BarType
	Bar     Bar
}
