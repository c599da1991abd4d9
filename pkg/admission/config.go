package admission

import "github.com/shopspring/decimal"

// Config is read once at construction and never changes afterwards.
type Config struct {
	ExposureLimit  decimal.Decimal
	MaxQuantity    int64
	MaxPrice       decimal.Decimal
	PriceTick      decimal.Decimal
	AllowedSymbols []string
}

func DefaultConfig() Config {
	return Config{
		ExposureLimit: decimal.NewFromInt(100_000_000),
		MaxQuantity:   99_999,
		MaxPrice:      decimal.NewFromInt(1_000),
		PriceTick:     decimal.New(1, -2),
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if !c.ExposureLimit.IsPositive() {
		c.ExposureLimit = def.ExposureLimit
	}
	if c.MaxQuantity <= 0 {
		c.MaxQuantity = def.MaxQuantity
	}
	if !c.MaxPrice.IsPositive() {
		c.MaxPrice = def.MaxPrice
	}
	if c.PriceTick.IsNegative() {
		c.PriceTick = def.PriceTick
	}
	return c
}
