package rule

import (
	"fmt"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/shopspring/decimal"
)

type QuantityRule struct {
	max decimal.Decimal
}

func NewQuantityRule(maxQuantity int64) *QuantityRule {
	return &QuantityRule{max: decimal.NewFromInt(maxQuantity)}
}

func (r *QuantityRule) Check(order *model.OrderRequest) error {
	qty := order.Quantity
	if !model.InScale(qty) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidQuantity, model.CompactString(qty))
	}
	if !qty.IsInteger() || !qty.IsPositive() || qty.GreaterThan(r.max) {
		return fmt.Errorf("%w: %s, must be a whole number between 1 and %s", ErrInvalidQuantity, qty, r.max)
	}
	return nil
}
