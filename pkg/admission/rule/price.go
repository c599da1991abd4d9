package rule

import (
	"fmt"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/shopspring/decimal"
)

// PriceRule bounds the price to (0, ceil] and, when tick is positive, to whole
// multiples of tick. A 0.01 tick rejects sub-cent prices.
type PriceRule struct {
	ceil decimal.Decimal
	tick decimal.Decimal
}

func NewPriceRule(ceil, tick decimal.Decimal) *PriceRule {
	return &PriceRule{ceil: ceil, tick: tick}
}

func (r *PriceRule) Check(order *model.OrderRequest) error {
	price := order.Price
	if !model.InScale(price) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidPrice, model.CompactString(price))
	}
	if !price.IsPositive() || price.GreaterThan(r.ceil) {
		return fmt.Errorf("%w: %s, must be greater than 0 and at most %s", ErrInvalidPrice, price, r.ceil)
	}

	if r.tick.IsPositive() && !price.Mod(r.tick).IsZero() {
		return fmt.Errorf("%w: %s is not a multiple of tick size %s", ErrInvalidPrice, price, r.tick)
	}
	return nil
}
