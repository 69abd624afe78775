package exchange

import (
	"context"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/utility/fixed"
)

// ExecClient is the outbound half of an execution gateway. Implementations
// acknowledge asynchronously by feeding order events back through the
// strategy's event intake.
type ExecClient interface {
	SubmitOrder(ctx context.Context, order common.Order, positionId string) error
	CancelOrder(ctx context.Context, order common.Order) error
	ModifyOrder(ctx context.Context, order common.Order, newPrice fixed.Point) error
}
