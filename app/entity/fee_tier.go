package entity

import "github.com/shopspring/decimal"

const (
	FeeTypeFixed      = "fixe"
	FeeTypePercentage = "pourcentage"
)

type FeeTier struct {
	ID        uint64
	Name      string
	Type      string
	Value     decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Contains reports whether amount falls in the closed [min, max] range of the tier.
func (f FeeTier) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(f.MinAmount) {
		return false
	}
	return f.MaxAmount == nil || amount.LessThanOrEqual(*f.MaxAmount)
}
