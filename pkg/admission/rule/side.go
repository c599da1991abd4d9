package rule

import (
	"fmt"

	"github.com/joripage/exposure-gate/pkg/admission/model"
)

type SideRule struct{}

func (SideRule) Check(order *model.OrderRequest) error {
	switch order.Side {
	case model.OrderSideBuy, model.OrderSideSell:
		return nil
	}
	return fmt.Errorf("%w: %q, must be BUY or SELL", ErrInvalidSide, order.Side)
}
