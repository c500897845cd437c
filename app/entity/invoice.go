package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusDraft   = "brouillon"
	InvoiceStatusPaid    = "payé"
	InvoiceStatusPartial = "partiel"
)

const InvoiceTypeTransfer = "transfert"

type Invoice struct {
	ID uint64

	TransferID uint64
	Type       string
	Status     string
	Sent       bool

	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string

	Total     decimal.Decimal
	AmountDue decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}
