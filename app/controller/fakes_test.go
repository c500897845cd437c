package controller

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/notifier"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

type controllerStore struct {
	mu sync.Mutex

	records   map[uint64]*entity.PaymentRecord
	transfers map[uint64]*entity.Transfer
	nextID    uint64

	failLookups error
}

func newControllerStore() *controllerStore {
	return &controllerStore{
		records:   map[uint64]*entity.PaymentRecord{},
		transfers: map[uint64]*entity.Transfer{},
	}
}

func (s *controllerStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *controllerStore) repositories() service.Repositories {
	return service.Repositories{
		PaymentRecords:    &controllerRecordRepo{s},
		PaymentEvents:     &controllerEventRepo{},
		WebhookDeliveries: &controllerDeliveryRepo{},
		Transfers:         &controllerTransferRepo{s},
		Invoices:          &controllerInvoiceRepo{},
		FeeTiers:          pricing.StaticTiers{},
		ExchangeRates:     &controllerRateRepo{},
		Beneficiaries:     &controllerBeneficiaryRepo{},
		Users:             &controllerUserRepo{},
	}
}

func (s *controllerStore) addRecord(record *entity.PaymentRecord) *entity.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = s.id()
	s.records[record.ID] = record
	return record
}

func (s *controllerStore) addTransfer(transfer *entity.Transfer) *entity.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	transfer.ID = s.id()
	s.transfers[transfer.ID] = transfer
	return transfer
}

type controllerRecordRepo struct{ s *controllerStore }

func (r *controllerRecordRepo) Create(_ context.Context, record *entity.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = r.s.id()
	copyItem := *record
	r.s.records[record.ID] = &copyItem
	return nil
}

func (r *controllerRecordRepo) Update(_ context.Context, record *entity.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.records[record.ID]; !ok {
		return repository.ErrPaymentRecordNotFound
	}
	copyItem := *record
	r.s.records[record.ID] = &copyItem
	return nil
}

func (r *controllerRecordRepo) find(match func(*entity.PaymentRecord) bool) (*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failLookups != nil {
		return nil, r.s.failLookups
	}
	for _, record := range r.s.records {
		if match(record) {
			copyItem := *record
			copyItem.Metadata = entity.MergeMetadata(nil, record.Metadata)
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerRecordRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.find(func(p *entity.PaymentRecord) bool { return p.ID == id })
}

func (r *controllerRecordRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.FindByID(ctx, id)
}

func (r *controllerRecordRepo) FindBySessionID(_ context.Context, sessionID string) (*entity.PaymentRecord, error) {
	return r.find(func(p *entity.PaymentRecord) bool { return p.SessionID != nil && *p.SessionID == sessionID })
}

func (r *controllerRecordRepo) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*entity.PaymentRecord, error) {
	return r.find(func(p *entity.PaymentRecord) bool {
		return p.PaymentIntentID != nil && *p.PaymentIntentID == paymentIntentID
	})
}

func (r *controllerRecordRepo) FindByOrderID(_ context.Context, orderID string) (*entity.PaymentRecord, error) {
	return r.find(func(p *entity.PaymentRecord) bool { return p.MetaValue(entity.MetaOrderID) == orderID })
}

func (r *controllerRecordRepo) FindOrCreateByPaymentIntentID(ctx context.Context, paymentIntentID string, defaults *entity.PaymentRecord) (*entity.PaymentRecord, bool, error) {
	existing, err := r.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	defaults.PaymentIntentID = &paymentIntentID
	if err := r.Create(ctx, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

func (r *controllerRecordRepo) List(_ context.Context, filter repository.PaymentRecordFilter) ([]*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PaymentRecord
	for _, record := range r.s.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *controllerRecordRepo) Touch(context.Context, uint64, time.Time) error { return nil }

func (r *controllerRecordRepo) ListForReconcile(context.Context, time.Time, int32) ([]*entity.PaymentRecord, error) {
	return nil, nil
}

func (r *controllerRecordRepo) ListExpiredPending(context.Context, time.Time, int32) ([]*entity.PaymentRecord, error) {
	return nil, nil
}

type controllerEventRepo struct{}

func (r *controllerEventRepo) Create(context.Context, *entity.PaymentEvent) error { return nil }

func (r *controllerEventRepo) ListByPaymentRecord(context.Context, uint64) ([]*entity.PaymentEvent, error) {
	return nil, nil
}

type controllerDeliveryRepo struct{}

func (r *controllerDeliveryRepo) Create(context.Context, *entity.WebhookDelivery) error { return nil }

type controllerTransferRepo struct{ s *controllerStore }

func (r *controllerTransferRepo) Create(_ context.Context, transfer *entity.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transfer.ID = r.s.id()
	copyItem := *transfer
	r.s.transfers[transfer.ID] = &copyItem
	return nil
}

func (r *controllerTransferRepo) UpdateContact(_ context.Context, transfer *entity.Transfer, expectedStatus string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.transfers[transfer.ID]
	if !ok || current.Status != expectedStatus {
		return repository.ErrTransferStatusChanged
	}
	copyItem := *transfer
	r.s.transfers[transfer.ID] = &copyItem
	return nil
}

func (r *controllerTransferRepo) TransitionStatus(_ context.Context, id uint64, from, to string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.transfers[id]
	if !ok || current.Status != from {
		return repository.ErrTransferStatusChanged
	}
	current.Status = to
	current.UpdatedAt = at
	return nil
}

func (r *controllerTransferRepo) FindByID(_ context.Context, id uint64) (*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if transfer, ok := r.s.transfers[id]; ok {
		copyItem := *transfer
		return &copyItem, nil
	}
	return nil, nil
}

func (r *controllerTransferRepo) FindByCode(_ context.Context, code string) (*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, transfer := range r.s.transfers {
		if transfer.Code == code {
			copyItem := *transfer
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerTransferRepo) List(_ context.Context, filter repository.TransferFilter) ([]*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Transfer
	for _, transfer := range r.s.transfers {
		if filter.UserID != nil && (transfer.UserID == nil || *transfer.UserID != *filter.UserID) {
			continue
		}
		copyItem := *transfer
		out = append(out, &copyItem)
	}
	return out, nil
}

type controllerInvoiceRepo struct{}

func (r *controllerInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	invoice.ID = 1
	return nil
}

func (r *controllerInvoiceRepo) FindByTransferID(context.Context, uint64) (*entity.Invoice, error) {
	return nil, nil
}

type controllerRateRepo struct{}

func (r *controllerRateRepo) FindByID(_ context.Context, id uint64) (*entity.ExchangeRate, error) {
	if id != 3 {
		return nil, nil
	}
	return &entity.ExchangeRate{ID: 3, SourceCurrencyID: 1, TargetCurrencyID: 2, Rate: 10700}, nil
}

func (r *controllerRateRepo) FindByPair(ctx context.Context, _, _ uint64) (*entity.ExchangeRate, error) {
	return r.FindByID(ctx, 3)
}

type controllerBeneficiaryRepo struct{}

func (r *controllerBeneficiaryRepo) FindByID(_ context.Context, id uint64) (*entity.Beneficiary, error) {
	if id != 12 {
		return nil, nil
	}
	return &entity.Beneficiary{ID: 12, UserID: 7, FirstName: "Mamadou", LastName: "Diallo", Phone: "+224620000000"}, nil
}

type controllerUserRepo struct{}

func (r *controllerUserRepo) FindByID(_ context.Context, id uint64) (*entity.User, error) {
	return &entity.User{ID: id, Email: "awa@example.com"}, nil
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	return fn(ctx, nil)
}

type silentNotifier struct{}

func (silentNotifier) TransferCreated(context.Context, notifier.TransferNotice) error   { return nil }
func (silentNotifier) TransferWithdrawn(context.Context, notifier.TransferNotice) error { return nil }

type controllerProvider struct {
	event    *provider.WebhookEvent
	parseErr error
	failAPI  bool
}

func (p *controllerProvider) Code() string { return provider.CodeStripe }

func (p *controllerProvider) ServerMode() string { return "test" }

func (p *controllerProvider) CreateCheckoutSession(_ context.Context, input *provider.CheckoutInput) (*provider.CheckoutOutput, error) {
	if p.failAPI {
		return nil, errors.New("stripe down")
	}
	return &provider.CheckoutOutput{SessionID: "cs_ctrl_1", URL: "https://checkout.example/cs_ctrl_1"}, nil
}

func (p *controllerProvider) CreatePaymentIntent(_ context.Context, input *provider.PaymentIntentInput) (*provider.PaymentIntent, error) {
	if p.failAPI {
		return nil, errors.New("stripe down")
	}
	return &provider.PaymentIntent{ID: "pi_ctrl_1", Status: "requires_payment_method", ClientSecret: "pi_ctrl_1_secret", Amount: input.Amount, Currency: input.Currency}, nil
}

func (p *controllerProvider) RetrievePaymentIntent(context.Context, string) (*provider.PaymentIntent, error) {
	return nil, errors.New("not found")
}

func (p *controllerProvider) CancelPaymentIntent(context.Context, string) error { return nil }

func (p *controllerProvider) ParseWebhook(context.Context, []byte, string) (*provider.WebhookEvent, error) {
	if p.parseErr != nil {
		return p.event, p.parseErr
	}
	if p.event != nil {
		return p.event, nil
	}
	return &provider.WebhookEvent{ID: "evt_ignored", Type: "customer.created", Kind: provider.EventIgnored}, nil
}

type controllerEnv struct {
	store     *controllerStore
	provider  *controllerProvider
	payments  *PaymentController
	transfers *TransferController
}

func newControllerEnv() *controllerEnv {
	store := newControllerStore()
	repos := store.repositories()
	uow := service.NewUnitOfWork(passthroughTransactor{}, func(repository.DBTX) service.Repositories { return repos })
	issuer := service.NewTransferIssuer(
		pricing.FeeOptions{},
		config.TransfersConfig{SourceCurrencyID: 1, TargetCurrencyID: 2, DefaultReceptionMode: entity.ReceptionCash},
		config.CompanyConfig{Name: "DSPay"},
	)
	finalizer := service.NewFinalizer(repos, uow, issuer, silentNotifier{})
	p := &controllerProvider{}

	paymentService := service.NewPaymentService(repos, uow, finalizer, provider.NewRegistry(p), config.PaymentsConfig{
		MinAmount:           50,
		AllowedCurrencies:   []string{"eur"},
		PendingTimeout:      time.Hour,
		ReconcileStaleAfter: time.Minute,
		JobBatchSize:        100,
	}, false)
	transferService := service.NewTransferService(repos, uow, issuer, silentNotifier{})

	return &controllerEnv{
		store:     store,
		provider:  p,
		payments:  NewPaymentController(paymentService),
		transfers: NewTransferController(transferService),
	}
}

// newContext builds an echo context, authenticated as identity when it is not nil.
func newContext(method, target, body string, identity *auth.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if identity != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sentTransfer(ownerID uint64, code string) *entity.Transfer {
	now := time.Now().UTC()
	return &entity.Transfer{
		UserID:        &ownerID,
		BeneficiaryID: 12,
		AppliedRate:   10700,
		Principal:     decimal.NewFromInt(100),
		Fee:           decimal.NewFromInt(5),
		TotalTTC:      decimal.NewFromInt(105),
		AmountGNF:     1070000,
		TotalGNF:      1123500,
		Status:        entity.TransferStatusSent,
		ReceptionMode: entity.ReceptionCash,
		Code:          code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func stringPtr(v string) *string {
	return &v
}
