package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrWebhookRejected     = errors.New("webhook rejected")
	ErrWebhookPanicked     = errors.New("webhook processing panicked")
	ErrForbidden           = errors.New("forbidden")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotSucceeded  = errors.New("payment has not succeeded")
	ErrCancelTokenMismatch  = errors.New("cancel token mismatch")
	ErrIncompleteMetadata   = errors.New("payment metadata is incomplete")
	ErrBeneficiaryNotFound  = errors.New("beneficiary not found")
	ErrExchangeRateNotFound = errors.New("exchange rate not found")

	ErrTransferNotFound        = errors.New("transfer not found")
	ErrTransferNotWithdrawable = errors.New("transfer cannot be withdrawn")
	ErrTransferNotCancelable   = errors.New("transfer cannot be canceled")
	ErrTransferNotEditable     = errors.New("transfer can no longer be edited")
)
