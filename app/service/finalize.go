package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"github.com/vibast-solutions/ms-go-remittance/app/notifier"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
)

// FinalizeResult reports whether a transfer exists for a payment record.
type FinalizeResult struct {
	Finalized  bool
	Created    bool
	TransferID uint64
	InvoiceID  uint64
	// Reason is set when finalization was abandoned because of bad payment data.
	Reason string
}

// Finalizer turns a succeeded payment record into a transfer and an invoice, at most once.
type Finalizer struct {
	repos    Repositories
	uow      *UnitOfWork
	issuer   *TransferIssuer
	notifier transferNotifier
	logger   logrus.FieldLogger
}

func NewFinalizer(repos Repositories, uow *UnitOfWork, issuer *TransferIssuer, notify transferNotifier) *Finalizer {
	return &Finalizer{
		repos:    repos,
		uow:      uow,
		issuer:   issuer,
		notifier: notify,
		logger:   factory.NewModuleLogger("finalizer"),
	}
}

// Finalize runs finalization for record. The record row is locked for the whole
// decide-and-write so concurrent callers observe the first caller's transfer.
func (f *Finalizer) Finalize(ctx context.Context, record *entity.PaymentRecord) (*FinalizeResult, error) {
	if record == nil {
		return nil, ErrPaymentNotFound
	}
	if record.Finalized() {
		return finalizedResult(record), nil
	}
	if target := record.MergedInto(); target != 0 {
		return f.finalizeMergeTarget(ctx, record.ID, target)
	}

	var (
		result     *FinalizeResult
		issued     *issuedTransfer
		locked     *entity.PaymentRecord
		mergedInto uint64
	)
	err := f.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		locked, err = repos.PaymentRecords.FindByIDForUpdate(ctx, record.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if locked.Finalized() {
			result = finalizedResult(locked)
			return nil
		}
		if mergedInto = locked.MergedInto(); mergedInto != 0 {
			return nil
		}

		order, err := orderFromRecord(locked)
		if err != nil {
			return err
		}

		issued, err = f.issuer.issue(ctx, repos, order)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		locked.Metadata = entity.MergeMetadata(locked.Metadata, map[string]string{
			entity.MetaTransferID: strconv.FormatUint(issued.Transfer.ID, 10),
			entity.MetaInvoiceID:  strconv.FormatUint(issued.Invoice.ID, 10),
		})
		locked.ProcessedAt = &now
		locked.UpdatedAt = now
		if err := repos.PaymentRecords.Update(ctx, locked); err != nil {
			return fmt.Errorf("mark payment record processed: %w", err)
		}

		if err := repos.PaymentEvents.Create(ctx, &entity.PaymentEvent{
			PaymentRecordID: locked.ID,
			EventType:       "payment_finalized",
			NewStatus:       locked.Status,
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		result = &FinalizeResult{
			Finalized:  true,
			Created:    true,
			TransferID: issued.Transfer.ID,
			InvoiceID:  issued.Invoice.ID,
		}
		return nil
	})
	if err != nil {
		if dataErr := dataQualityError(err); dataErr != nil {
			f.logger.WithFields(logrus.Fields{
				"payment_record_id": record.ID,
				"reason":            dataErr.Error(),
			}).Warn("Finalization aborted")
			return &FinalizeResult{Finalized: false, Reason: dataErr.Error()}, nil
		}
		return nil, err
	}
	if mergedInto != 0 {
		return f.finalizeMergeTarget(ctx, record.ID, mergedInto)
	}

	if result.Created {
		f.notifyCreated(ctx, locked, issued)
	}
	return result, nil
}

// finalizeMergeTarget answers for a twin absorbed by a session record. The twin never
// issues a transfer of its own; the target's lock decides.
func (f *Finalizer) finalizeMergeTarget(ctx context.Context, twinID, targetID uint64) (*FinalizeResult, error) {
	target, err := f.repos.PaymentRecords.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.MergedInto() != 0 {
		return nil, fmt.Errorf("%w: merge target %d of record %d", ErrPaymentNotFound, targetID, twinID)
	}

	f.logger.WithFields(logrus.Fields{
		"payment_record_id": twinID,
		"merged_into":       targetID,
	}).Info("Payment record was merged, finalizing its target")

	if target.Finalized() {
		return finalizedResult(target), nil
	}
	if target.Status != entity.PaymentStatusSucceeded {
		return &FinalizeResult{Finalized: false}, nil
	}
	return f.Finalize(ctx, target)
}

// notifyCreated never fails the finalization; the transfer is already committed.
func (f *Finalizer) notifyCreated(ctx context.Context, record *entity.PaymentRecord, issued *issuedTransfer) {
	to := record.MetaValue(entity.MetaCustomerEmail)
	if issued.Transfer.UserID != nil {
		user, err := f.repos.Users.FindByID(ctx, *issued.Transfer.UserID)
		if err != nil {
			f.logger.WithError(err).WithField("transfer_id", issued.Transfer.ID).Warn("Failed to load sender for notification")
		} else if user != nil && user.Email != "" {
			to = user.Email
		}
	}

	if err := f.notifier.TransferCreated(ctx, transferNotice(to, issued.Transfer, issued.Beneficiary)); err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"transfer_id":       issued.Transfer.ID,
			"payment_record_id": record.ID,
		}).Warn("Transfer notification failed")
	}
}

func finalizedResult(record *entity.PaymentRecord) *FinalizeResult {
	result := &FinalizeResult{Finalized: true}
	result.TransferID, _ = strconv.ParseUint(record.MetaValue(entity.MetaTransferID), 10, 64)
	result.InvoiceID, _ = strconv.ParseUint(record.MetaValue(entity.MetaInvoiceID), 10, 64)
	return result
}

// orderFromRecord parses the business context carried in the record metadata.
func orderFromRecord(record *entity.PaymentRecord) (transferOrder, error) {
	beneficiaryID, err := requiredUint(record, entity.MetaBeneficiaryID)
	if err != nil {
		return transferOrder{}, err
	}
	rateID, err := requiredUint(record, entity.MetaRateID)
	if err != nil {
		return transferOrder{}, err
	}

	rawPrincipal := record.MetaValue(entity.MetaPrincipal)
	if rawPrincipal == "" {
		return transferOrder{}, fmt.Errorf("%w: %s is missing", ErrIncompleteMetadata, entity.MetaPrincipal)
	}
	principal, err := pricing.ParseAmount(rawPrincipal)
	if err != nil || !principal.IsPositive() {
		return transferOrder{}, fmt.Errorf("%w: %s is not a positive amount", ErrIncompleteMetadata, entity.MetaPrincipal)
	}

	order := transferOrder{
		UserID:         record.UserID,
		BeneficiaryID:  beneficiaryID,
		ExchangeRateID: rateID,
		Principal:      principal,
		InvoiceStatus:  entity.InvoiceStatusPaid,
	}

	if raw := record.MetaValue(entity.MetaRateValue); raw != "" {
		if rate, err := strconv.ParseInt(raw, 10, 64); err == nil && rate > 0 {
			order.SnapshotRate = rate
		}
	}
	if fee, ok := optionalAmount(record, entity.MetaFeeOverride); ok {
		order.FeeOverride = &fee
	}
	if total, ok := optionalAmount(record, entity.MetaTotalOverride); ok {
		order.TotalOverride = &total
	}
	if mode := record.MetaValue(entity.MetaReceptionMode); entity.IsReceptionMode(mode) {
		order.ReceptionMode = mode
	}
	if order.UserID == nil {
		if userID, err := strconv.ParseUint(record.MetaValue(entity.MetaUserID), 10, 64); err == nil && userID > 0 {
			order.UserID = &userID
		}
	}

	return order, nil
}

func requiredUint(record *entity.PaymentRecord, key string) (uint64, error) {
	raw := record.MetaValue(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is missing", ErrIncompleteMetadata, key)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: %s is invalid", ErrIncompleteMetadata, key)
	}
	return value, nil
}

func optionalAmount(record *entity.PaymentRecord, key string) (decimal.Decimal, bool) {
	raw := record.MetaValue(key)
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := pricing.ParseAmount(raw)
	if err != nil || value.IsNegative() {
		return decimal.Zero, false
	}
	return value, true
}

// dataQualityError returns err when it will not go away by retrying.
func dataQualityError(err error) error {
	switch {
	case errors.Is(err, ErrIncompleteMetadata),
		errors.Is(err, ErrBeneficiaryNotFound),
		errors.Is(err, ErrExchangeRateNotFound),
		errors.Is(err, pricing.ErrNonPositiveRate),
		errors.Is(err, pricing.ErrNonPositivePrincipal):
		return err
	default:
		return nil
	}
}

func transferNotice(to string, transfer *entity.Transfer, beneficiary *entity.Beneficiary) notifier.TransferNotice {
	notice := notifier.TransferNotice{
		To:            to,
		TransferID:    transfer.ID,
		Code:          transfer.Code,
		Principal:     transfer.Principal,
		Fee:           transfer.Fee,
		TotalTTC:      transfer.TotalTTC,
		AmountGNF:     transfer.AmountGNF,
		ReceptionMode: transfer.ReceptionMode,
	}
	if beneficiary != nil {
		notice.BeneficiaryName = beneficiary.FullName()
	}
	return notice
}
