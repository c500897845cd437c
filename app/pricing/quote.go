package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositivePrincipal = errors.New("principal must be > 0")
	ErrNonPositiveRate      = errors.New("rate must be > 0")
)

// Quote holds every derived amount of a transfer. Source-currency amounts carry two
// decimals, destination-currency amounts are whole units.
type Quote struct {
	Principal decimal.Decimal
	Fee       decimal.Decimal
	TotalTTC  decimal.Decimal
	Rate      int64
	AmountGNF int64
	TotalGNF  int64
}

// NewQuote builds a quote. Fees are never converted into the destination currency.
func NewQuote(principal, fee decimal.Decimal, rate int64) (Quote, error) {
	if !principal.IsPositive() {
		return Quote{}, ErrNonPositivePrincipal
	}
	if rate <= 0 {
		return Quote{}, ErrNonPositiveRate
	}

	principal = principal.Round(2)
	fee = fee.Round(2)
	amountGNF := Convert(principal, rate)

	return Quote{
		Principal: principal,
		Fee:       fee,
		TotalTTC:  principal.Add(fee).Round(2),
		Rate:      rate,
		AmountGNF: amountGNF,
		TotalGNF:  amountGNF,
	}, nil
}

// Convert returns round(principal * rate) with halves rounded away from zero.
func Convert(principal decimal.Decimal, rate int64) int64 {
	return principal.Mul(decimal.NewFromInt(rate)).Round(0).IntPart()
}

// ParseAmount reads a source-currency amount as written in metadata or requests.
func ParseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}
