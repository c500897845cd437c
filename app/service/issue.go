package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

const maxCodeAttempts = 5

// transferOrder is the validated input of a transfer, whatever triggered it.
type transferOrder struct {
	UserID         *uint64
	BeneficiaryID  uint64
	ExchangeRateID uint64
	// SnapshotRate is a rate already fixed when the payment was quoted; 0 means look it up.
	SnapshotRate  int64
	Principal     decimal.Decimal
	FeeOverride   *decimal.Decimal
	TotalOverride *decimal.Decimal
	ReceptionMode string
	InvoiceStatus string

	RecipientFullName *string
	RecipientPhone    *string
	District          *string
}

type issuedTransfer struct {
	Transfer    *entity.Transfer
	Invoice     *entity.Invoice
	Beneficiary *entity.Beneficiary
}

// TransferIssuer builds a transfer and its invoice from an order. The rate is snapshotted
// into the transfer and never read again.
type TransferIssuer struct {
	feeOpts   pricing.FeeOptions
	transfers config.TransfersConfig
	company   config.CompanyConfig
	newCode   func() (string, error)
	now       func() time.Time
}

func NewTransferIssuer(feeOpts pricing.FeeOptions, transfers config.TransfersConfig, company config.CompanyConfig) *TransferIssuer {
	return &TransferIssuer{
		feeOpts:   feeOpts,
		transfers: transfers,
		company:   company,
		newCode:   generateWithdrawalCode,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (i *TransferIssuer) issue(ctx context.Context, repos Repositories, order transferOrder) (*issuedTransfer, error) {
	beneficiary, err := repos.Beneficiaries.FindByID(ctx, order.BeneficiaryID)
	if err != nil {
		return nil, err
	}
	if beneficiary == nil {
		return nil, ErrBeneficiaryNotFound
	}

	rate, err := repos.ExchangeRates.FindByID(ctx, order.ExchangeRateID)
	if err != nil {
		return nil, err
	}
	if rate == nil && order.SnapshotRate <= 0 {
		return nil, ErrExchangeRateNotFound
	}

	appliedRate := order.SnapshotRate
	sourceCurrencyID := i.transfers.SourceCurrencyID
	targetCurrencyID := i.transfers.TargetCurrencyID
	if rate != nil {
		if appliedRate <= 0 {
			appliedRate = rate.Rate
		}
		sourceCurrencyID = rate.SourceCurrencyID
		targetCurrencyID = rate.TargetCurrencyID
	}

	fee, err := i.resolveFee(ctx, repos, order)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.NewQuote(order.Principal, fee, appliedRate)
	if err != nil {
		return nil, err
	}

	receptionMode := strings.TrimSpace(order.ReceptionMode)
	if receptionMode == "" {
		receptionMode = i.transfers.DefaultReceptionMode
	}

	now := i.now()
	transfer := &entity.Transfer{
		UserID:            order.UserID,
		BeneficiaryID:     beneficiary.ID,
		SourceCurrencyID:  sourceCurrencyID,
		TargetCurrencyID:  targetCurrencyID,
		ExchangeRateID:    order.ExchangeRateID,
		AppliedRate:       quote.Rate,
		Principal:         quote.Principal,
		Fee:               quote.Fee,
		TotalTTC:          quote.TotalTTC,
		AmountGNF:         quote.AmountGNF,
		TotalGNF:          quote.TotalGNF,
		Status:            entity.TransferStatusSent,
		ReceptionMode:     receptionMode,
		RecipientFullName: order.RecipientFullName,
		RecipientPhone:    order.RecipientPhone,
		District:          order.District,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if transfer.RecipientFullName == nil {
		name := beneficiary.FullName()
		transfer.RecipientFullName = &name
	}
	if transfer.RecipientPhone == nil && beneficiary.Phone != "" {
		phone := beneficiary.Phone
		transfer.RecipientPhone = &phone
	}

	if err := i.createWithCode(ctx, repos, transfer); err != nil {
		return nil, err
	}

	invoiceStatus := order.InvoiceStatus
	if invoiceStatus == "" {
		invoiceStatus = entity.InvoiceStatusDraft
	}
	invoice := &entity.Invoice{
		TransferID:     transfer.ID,
		Type:           entity.InvoiceTypeTransfer,
		Status:         invoiceStatus,
		CompanyName:    i.company.Name,
		CompanyAddress: i.company.Address,
		CompanyPhone:   i.company.Phone,
		CompanyEmail:   i.company.Email,
		Total:          transfer.TotalTTC,
		AmountDue:      transfer.TotalTTC,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if invoiceStatus == entity.InvoiceStatusPaid {
		invoice.AmountDue = decimal.Zero
	}
	if err := repos.Invoices.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	return &issuedTransfer{Transfer: transfer, Invoice: invoice, Beneficiary: beneficiary}, nil
}

// resolveFee prefers an explicit fee, then a quoted total, then the fee tiers.
func (i *TransferIssuer) resolveFee(ctx context.Context, repos Repositories, order transferOrder) (decimal.Decimal, error) {
	if order.FeeOverride != nil && !order.FeeOverride.IsNegative() {
		return order.FeeOverride.Round(2), nil
	}
	if order.TotalOverride != nil {
		fee := order.TotalOverride.Sub(order.Principal)
		if !fee.IsNegative() {
			return fee.Round(2), nil
		}
	}
	return pricing.NewFeeCalculator(repos.FeeTiers, i.feeOpts).Compute(ctx, order.Principal)
}

func (i *TransferIssuer) createWithCode(ctx context.Context, repos Repositories, transfer *entity.Transfer) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := i.newCode()
		if err != nil {
			return err
		}
		transfer.Code = code

		err = repos.Transfers.Create(ctx, transfer)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrTransferCodeTaken) {
			return fmt.Errorf("create transfer: %w", err)
		}
	}
	return fmt.Errorf("create transfer: %w after %d attempts", repository.ErrTransferCodeTaken, maxCodeAttempts)
}

// generateWithdrawalCode returns two uppercase letters followed by four digits.
func generateWithdrawalCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var b strings.Builder
	for n := 0; n < 2; n++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		b.WriteByte(letters[idx.Int64()])
	}
	number, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("%d", 1000+number.Int64()))
	return b.String(), nil
}
