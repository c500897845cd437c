package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransferStatusSent      = "envoyé"
	TransferStatusWithdrawn = "retiré"
	TransferStatusCanceled  = "annulé"
	TransferStatusBlocked   = "bloqué"
)

const (
	ReceptionOrangeMoney = "orange_money"
	ReceptionEWallet     = "ewallet"
	ReceptionCash        = "retrait_cash"
)

type Transfer struct {
	ID uint64

	UserID        *uint64
	BeneficiaryID uint64

	SourceCurrencyID uint64
	TargetCurrencyID uint64

	ExchangeRateID uint64
	AppliedRate    int64

	Principal decimal.Decimal
	Fee       decimal.Decimal
	TotalTTC  decimal.Decimal

	AmountGNF int64
	TotalGNF  int64

	Status        string
	ReceptionMode string
	Code          string

	RecipientFullName *string
	RecipientPhone    *string
	District          *string

	WithdrawnAt *time.Time
	CanceledAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func IsTransferStatus(status string) bool {
	switch status {
	case TransferStatusSent, TransferStatusWithdrawn, TransferStatusCanceled, TransferStatusBlocked:
		return true
	default:
		return false
	}
}

func IsReceptionMode(mode string) bool {
	switch mode {
	case ReceptionOrangeMoney, ReceptionEWallet, ReceptionCash:
		return true
	default:
		return false
	}
}

// CodeVisibleTo reports whether the withdrawal code may be shown to the viewer.
// The code authorizes withdrawal, so only the sender and privileged staff see it
// until the transfer leaves its initial state.
func (t *Transfer) CodeVisibleTo(userID *uint64, privileged bool) bool {
	if t.Status != TransferStatusSent {
		return true
	}
	if privileged {
		return true
	}
	return userID != nil && t.UserID != nil && *userID == *t.UserID
}
