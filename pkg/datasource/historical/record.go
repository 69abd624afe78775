package historical

import (
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// BarRecord is the fixed-size on-disk layout of one bar. Prices are scaled
// integers, the scale is shared by all four.
type BarRecord struct {
	TimeStamp int64 // Unix nanoseconds
	Open      int64
	High      int64
	Low       int64
	Close     int64
	Volume    int64
	Scale     int32
	_         int32 // padding, keeps the record 8-byte aligned
}

func (r BarRecord) Bar() common.Bar {
	scale := int(r.Scale)
	return common.Bar{
		Open:      fixed.FromInt64(r.Open, scale),
		High:      fixed.FromInt64(r.High, scale),
		Low:       fixed.FromInt64(r.Low, scale),
		Close:     fixed.FromInt64(r.Close, scale),
		Volume:    r.Volume,
		TimeStamp: time.Unix(0, r.TimeStamp).UTC(),
	}
}
