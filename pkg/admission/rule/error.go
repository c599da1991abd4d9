package rule

import "errors"

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidSide     = errors.New("invalid side")
)
