package pricing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

var hundred = decimal.NewFromInt(100)

type FeeOptions struct {
	// PercentageFloorEnabled applies PercentageFloor as a lower bound to percentage fees.
	PercentageFloorEnabled bool
	PercentageFloor        decimal.Decimal
}

type feeTierSource interface {
	FindApplicable(ctx context.Context, amount decimal.Decimal) (*entity.FeeTier, error)
}

type FeeCalculator struct {
	tiers feeTierSource
	opts  FeeOptions
}

func NewFeeCalculator(tiers feeTierSource, opts FeeOptions) *FeeCalculator {
	return &FeeCalculator{tiers: tiers, opts: opts}
}

// Compute returns the fee for amount in the source currency. No tier means no fee.
func (c *FeeCalculator) Compute(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	tier, err := c.tiers.FindApplicable(ctx, amount)
	if err != nil {
		return decimal.Zero, err
	}
	return FeeForTier(tier, amount, c.opts), nil
}

// StaticTiers serves tiers held in memory.
type StaticTiers []entity.FeeTier

func (t StaticTiers) FindApplicable(_ context.Context, amount decimal.Decimal) (*entity.FeeTier, error) {
	return SelectTier(t, amount), nil
}

// SelectTier picks the tier containing amount with the smallest lower bound.
func SelectTier(tiers []entity.FeeTier, amount decimal.Decimal) *entity.FeeTier {
	candidates := make([]entity.FeeTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.Contains(amount) {
			candidates = append(candidates, tier)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MinAmount.LessThan(candidates[j].MinAmount)
	})
	return &candidates[0]
}

func FeeForTier(tier *entity.FeeTier, amount decimal.Decimal, opts FeeOptions) decimal.Decimal {
	if tier == nil {
		return decimal.Zero
	}

	switch tier.Type {
	case entity.FeeTypePercentage:
		fee := amount.Mul(tier.Value).Div(hundred).Round(2)
		if opts.PercentageFloorEnabled && fee.LessThan(opts.PercentageFloor) {
			fee = opts.PercentageFloor.Round(2)
		}
		return fee
	case entity.FeeTypeFixed:
		return tier.Value.Round(2)
	default:
		return decimal.Zero
	}
}
