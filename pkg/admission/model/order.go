package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// ParseSide accepts BUY/SELL in any case and the Portuguese Compra/Venda used by
// the web front end. Unknown input is returned as-is so validation can reject it.
func ParseSide(s string) OrderSide {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "COMPRA":
		return OrderSideBuy
	case "SELL", "VENDA":
		return OrderSideSell
	default:
		return OrderSide(s)
	}
}

// MaxExponent bounds the decimal exponent of inbound quantities and prices.
// Comparison and formatting cost grows with the exponent, so anything outside
// [-MaxExponent, MaxExponent] is rejected before it is touched.
const MaxExponent = 18

// InScale reports whether d can be compared and formatted cheaply.
func InScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -MaxExponent && exp <= MaxExponent
}

// CompactString formats d without expanding its exponent.
func CompactString(d decimal.Decimal) string {
	if InScale(d) {
		return d.String()
	}
	return fmt.Sprintf("%se%d", d.Coefficient().String(), d.Exponent())
}

// OrderRequest is a normalized inbound order. ClOrdID is whatever identifier the
// transport assigned; it is carried for logging and audit only.
type OrderRequest struct {
	ClOrdID  string
	Symbol   string
	Side     OrderSide
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Notional returns quantity × price.
func (r *OrderRequest) Notional() decimal.Decimal {
	return r.Quantity.Mul(r.Price)
}

// SignedNotional is the exposure delta: positive for BUY, negative for SELL.
func (r *OrderRequest) SignedNotional() decimal.Decimal {
	if r.Side == OrderSideSell {
		return r.Notional().Neg()
	}
	return r.Notional()
}

// Bounded returns a copy safe to log and echo: out-of-scale quantity or price
// is replaced by zero.
func (r OrderRequest) Bounded() OrderRequest {
	if !InScale(r.Quantity) {
		r.Quantity = decimal.Zero
	}
	if !InScale(r.Price) {
		r.Price = decimal.Zero
	}
	return r
}
