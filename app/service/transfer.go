package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
)

type sendTransferRequest interface {
	GetBeneficiaryId() uint64
	GetExchangeRateId() uint64
	GetAmount() string
	GetReceptionMode() string
	GetRecipientFullName() string
	GetRecipientPhone() string
	GetDistrict() string
}

type listTransfersRequest interface {
	GetStatus() string
	GetBeneficiaryId() uint64
	GetCreatedFrom() *time.Time
	GetCreatedTo() *time.Time
	GetMinAmount() string
	GetMaxAmount() string
	GetLimit() int32
	GetOffset() int32
}

type updateTransferContactRequest interface {
	GetRecipientFullName() *string
	GetRecipientPhone() *string
	GetDistrict() *string
}

type TransferService struct {
	repos    Repositories
	uow      *UnitOfWork
	issuer   *TransferIssuer
	notifier transferNotifier
	logger   logrus.FieldLogger
}

func NewTransferService(repos Repositories, uow *UnitOfWork, issuer *TransferIssuer, notify transferNotifier) *TransferService {
	return &TransferService{
		repos:    repos,
		uow:      uow,
		issuer:   issuer,
		notifier: notify,
		logger:   factory.NewModuleLogger("transfer-service"),
	}
}

// Send creates a transfer directly, without an online payment.
func (s *TransferService) Send(ctx context.Context, req sendTransferRequest, caller *auth.Identity) (*entity.Transfer, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	if req.GetBeneficiaryId() == 0 || req.GetExchangeRateId() == 0 {
		return nil, fmt.Errorf("%w: beneficiaire_id and taux_echange_id are required", ErrInvalidRequest)
	}
	principal, err := pricing.ParseAmount(strings.TrimSpace(req.GetAmount()))
	if err != nil || !principal.IsPositive() {
		return nil, fmt.Errorf("%w: montant_envoie must be a positive amount", ErrInvalidRequest)
	}
	if principal.Exponent() < -2 {
		return nil, fmt.Errorf("%w: montant_envoie has more than two decimals", ErrInvalidRequest)
	}
	mode := strings.TrimSpace(req.GetReceptionMode())
	if mode != "" && !entity.IsReceptionMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode_reception %q", ErrInvalidRequest, mode)
	}

	beneficiary, err := s.repos.Beneficiaries.FindByID(ctx, req.GetBeneficiaryId())
	if err != nil {
		return nil, err
	}
	if beneficiary == nil {
		return nil, ErrBeneficiaryNotFound
	}
	if !caller.Privileged && beneficiary.UserID != caller.UserID {
		return nil, ErrForbidden
	}

	order := transferOrder{
		UserID:            callerUserID(caller),
		BeneficiaryID:     beneficiary.ID,
		ExchangeRateID:    req.GetExchangeRateId(),
		Principal:         principal,
		ReceptionMode:     mode,
		InvoiceStatus:     entity.InvoiceStatusDraft,
		RecipientFullName: optionalString(req.GetRecipientFullName()),
		RecipientPhone:    optionalString(req.GetRecipientPhone()),
		District:          optionalString(req.GetDistrict()),
	}

	var issued *issuedTransfer
	err = s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		issued, err = s.issuer.issue(ctx, repos, order)
		return err
	})
	if err != nil {
		if errors.Is(err, pricing.ErrNonPositiveRate) {
			return nil, ErrExchangeRateNotFound
		}
		return nil, err
	}

	if err := s.notifier.TransferCreated(ctx, transferNotice(caller.Email, issued.Transfer, issued.Beneficiary)); err != nil {
		s.logger.WithError(err).WithField("transfer_id", issued.Transfer.ID).Warn("Transfer notification failed")
	}
	return issued.Transfer, nil
}

// Withdraw pays out the transfer the code belongs to.
func (s *TransferService) Withdraw(ctx context.Context, code string) (*entity.Transfer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}

	transfer, err := s.repos.Transfers.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}
	if transfer.Status != entity.TransferStatusSent {
		return nil, fmt.Errorf("%w: status is %s", ErrTransferNotWithdrawable, transfer.Status)
	}

	if err := s.repos.Transfers.TransitionStatus(ctx, transfer.ID, entity.TransferStatusSent, entity.TransferStatusWithdrawn, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrTransferStatusChanged) {
			return nil, ErrTransferNotWithdrawable
		}
		if errors.Is(err, repository.ErrTransferNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}

	transfer, err = s.repos.Transfers.FindByID(ctx, transfer.ID)
	if err != nil {
		return nil, err
	}
	s.notifyWithdrawn(ctx, transfer)
	return transfer, nil
}

func (s *TransferService) notifyWithdrawn(ctx context.Context, transfer *entity.Transfer) {
	if transfer.UserID == nil {
		return
	}
	logger := s.logger.WithField("transfer_id", transfer.ID)

	user, err := s.repos.Users.FindByID(ctx, *transfer.UserID)
	if err != nil || user == nil {
		logger.WithError(err).Warn("Sender not found for withdrawal notification")
		return
	}
	beneficiary, err := s.repos.Beneficiaries.FindByID(ctx, transfer.BeneficiaryID)
	if err != nil {
		logger.WithError(err).Warn("Failed to load beneficiary for withdrawal notification")
	}

	if err := s.notifier.TransferWithdrawn(ctx, transferNotice(user.Email, transfer, beneficiary)); err != nil {
		logger.WithError(err).Warn("Withdrawal notification failed")
	}
}

// Cancel cancels a transfer still waiting for withdrawal.
func (s *TransferService) Cancel(ctx context.Context, id uint64, caller *auth.Identity) (*entity.Transfer, error) {
	transfer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTransfer(transfer, caller) {
		return nil, ErrForbidden
	}
	if transfer.Status != entity.TransferStatusSent {
		return nil, fmt.Errorf("%w: status is %s", ErrTransferNotCancelable, transfer.Status)
	}

	if err := s.repos.Transfers.TransitionStatus(ctx, transfer.ID, entity.TransferStatusSent, entity.TransferStatusCanceled, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrTransferStatusChanged) {
			return nil, ErrTransferNotCancelable
		}
		return nil, err
	}
	return s.Get(ctx, transfer.ID)
}

func (s *TransferService) Get(ctx context.Context, id uint64) (*entity.Transfer, error) {
	transfer, err := s.repos.Transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

func (s *TransferService) GetByCode(ctx context.Context, code string) (*entity.Transfer, error) {
	transfer, err := s.repos.Transfers.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

// GetByReference resolves a numeric id first and a withdrawal code otherwise.
func (s *TransferService) GetByReference(ctx context.Context, reference string) (*entity.Transfer, error) {
	if id, err := strconv.ParseUint(strings.TrimSpace(reference), 10, 64); err == nil {
		return s.Get(ctx, id)
	}
	return s.GetByCode(ctx, reference)
}

// List returns transfers visible to caller. Unprivileged callers only see their own.
func (s *TransferService) List(ctx context.Context, req listTransfersRequest, caller *auth.Identity) ([]*entity.Transfer, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	status := strings.TrimSpace(req.GetStatus())
	if status != "" && !entity.IsTransferStatus(status) {
		return nil, fmt.Errorf("%w: unknown statut %q", ErrInvalidRequest, status)
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}
	filter := repository.TransferFilter{
		Status:      status,
		CreatedFrom: req.GetCreatedFrom(),
		CreatedTo:   req.GetCreatedTo(),
		Limit:       limit,
		Offset:      req.GetOffset(),
	}
	if !caller.Privileged {
		filter.UserID = callerUserID(caller)
	}
	if beneficiaryID := req.GetBeneficiaryId(); beneficiaryID > 0 {
		filter.BeneficiaryID = &beneficiaryID
	}

	var err error
	if filter.MinAmount, err = optionalDecimal(req.GetMinAmount(), "montant_min"); err != nil {
		return nil, err
	}
	if filter.MaxAmount, err = optionalDecimal(req.GetMaxAmount(), "montant_max"); err != nil {
		return nil, err
	}

	return s.repos.Transfers.List(ctx, filter)
}

// UpdateContact edits the recipient contact of a transfer still waiting for withdrawal.
func (s *TransferService) UpdateContact(
	ctx context.Context,
	reference string,
	req updateTransferContactRequest,
	caller *auth.Identity,
) (*entity.Transfer, error) {
	transfer, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !canManageTransfer(transfer, caller) {
		return nil, ErrForbidden
	}
	if transfer.Status != entity.TransferStatusSent {
		return nil, ErrTransferNotEditable
	}

	if v := req.GetRecipientFullName(); v != nil {
		transfer.RecipientFullName = optionalString(*v)
	}
	if v := req.GetRecipientPhone(); v != nil {
		transfer.RecipientPhone = optionalString(*v)
	}
	if v := req.GetDistrict(); v != nil {
		transfer.District = optionalString(*v)
	}
	transfer.UpdatedAt = time.Now().UTC()

	if err := s.repos.Transfers.UpdateContact(ctx, transfer, entity.TransferStatusSent); err != nil {
		if errors.Is(err, repository.ErrTransferStatusChanged) {
			return nil, ErrTransferNotEditable
		}
		return nil, err
	}
	return transfer, nil
}

func canManageTransfer(transfer *entity.Transfer, caller *auth.Identity) bool {
	if caller == nil {
		return false
	}
	if caller.Privileged {
		return true
	}
	return transfer.UserID != nil && *transfer.UserID == caller.UserID
}

func optionalDecimal(raw string, field string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an amount", ErrInvalidRequest, field)
	}
	return &value, nil
}
