package entity

import "time"

type ExchangeRate struct {
	ID               uint64
	SourceCurrencyID uint64
	TargetCurrencyID uint64
	Rate             int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
