package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/notifier"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
)

type paymentRecordRepository interface {
	Create(ctx context.Context, record *entity.PaymentRecord) error
	Update(ctx context.Context, record *entity.PaymentRecord) error
	Touch(ctx context.Context, id uint64, at time.Time) error
	FindByID(ctx context.Context, id uint64) (*entity.PaymentRecord, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentRecord, error)
	FindBySessionID(ctx context.Context, sessionID string) (*entity.PaymentRecord, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.PaymentRecord, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.PaymentRecord, error)
	FindOrCreateByPaymentIntentID(ctx context.Context, paymentIntentID string, defaults *entity.PaymentRecord) (*entity.PaymentRecord, bool, error)
	List(ctx context.Context, filter repository.PaymentRecordFilter) ([]*entity.PaymentRecord, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentRecord, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentRecord, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
	ListByPaymentRecord(ctx context.Context, paymentRecordID uint64) ([]*entity.PaymentEvent, error)
}

type webhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.WebhookDelivery) error
}

type transferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	UpdateContact(ctx context.Context, transfer *entity.Transfer, expectedStatus string) error
	TransitionStatus(ctx context.Context, id uint64, from, to string, at time.Time) error
	FindByID(ctx context.Context, id uint64) (*entity.Transfer, error)
	FindByCode(ctx context.Context, code string) (*entity.Transfer, error)
	List(ctx context.Context, filter repository.TransferFilter) ([]*entity.Transfer, error)
}

type invoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	FindByTransferID(ctx context.Context, transferID uint64) (*entity.Invoice, error)
}

type feeTierRepository interface {
	FindApplicable(ctx context.Context, amount decimal.Decimal) (*entity.FeeTier, error)
}

type exchangeRateRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.ExchangeRate, error)
	FindByPair(ctx context.Context, sourceCurrencyID, targetCurrencyID uint64) (*entity.ExchangeRate, error)
}

type beneficiaryRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Beneficiary, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type transferNotifier interface {
	TransferCreated(ctx context.Context, notice notifier.TransferNotice) error
	TransferWithdrawn(ctx context.Context, notice notifier.TransferNotice) error
}

// Repositories groups the stores a unit of work runs against.
type Repositories struct {
	PaymentRecords    paymentRecordRepository
	PaymentEvents     paymentEventRepository
	WebhookDeliveries webhookDeliveryRepository
	Transfers         transferRepository
	Invoices          invoiceRepository
	FeeTiers          feeTierRepository
	ExchangeRates     exchangeRateRepository
	Beneficiaries     beneficiaryRepository
	Users             userRepository
}

// RepositoriesBinder builds Repositories over a connection or an open transaction.
type RepositoriesBinder func(db repository.DBTX) Repositories

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error
}

// UnitOfWork runs functions against repositories bound to one transaction.
type UnitOfWork struct {
	tx   transactor
	bind RepositoriesBinder
}

func NewUnitOfWork(tx transactor, bind RepositoriesBinder) *UnitOfWork {
	return &UnitOfWork{tx: tx, bind: bind}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return u.tx.WithinTx(ctx, func(ctx context.Context, tx repository.DBTX) error {
		return fn(ctx, u.bind(tx))
	})
}
