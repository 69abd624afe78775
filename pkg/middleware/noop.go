package middleware

import (
	"context"

	"github.com/quantfabric/strata/pkg/common"
)

//goland:noinspection ALL
var (
	NoopBarHdl         = func(context.Context, common.BarUpdate) {}
	NoopOrderUpdateHdl = func(context.Context, common.OrderEvent) {}
	NoopTimeHdl        = func(context.Context, common.TimeEvent) {}
)
