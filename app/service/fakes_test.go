package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/notifier"
	"github.com/vibast-solutions/ms-go-remittance/app/pricing"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

// memStore backs every fake repository. Its mutex guards the maps; the fake
// transactor serializes whole transactions the way row locks would.
type memStore struct {
	mu sync.Mutex

	records      map[uint64]*entity.PaymentRecord
	nextRecordID uint64
	events       []*entity.PaymentEvent
	deliveries   []*entity.WebhookDelivery

	transfers      map[uint64]*entity.Transfer
	nextTransferID uint64
	invoices       map[uint64]*entity.Invoice

	tiers         []entity.FeeTier
	rates         map[uint64]*entity.ExchangeRate
	beneficiaries map[uint64]*entity.Beneficiary
	users         map[uint64]*entity.User
}

func newMemStore() *memStore {
	return &memStore{
		records:       map[uint64]*entity.PaymentRecord{},
		nextRecordID:  1,
		transfers:     map[uint64]*entity.Transfer{},
		invoices:      map[uint64]*entity.Invoice{},
		rates:         map[uint64]*entity.ExchangeRate{},
		beneficiaries: map[uint64]*entity.Beneficiary{},
		users:         map[uint64]*entity.User{},
	}
}

// seedRemittance loads the reference data used by most tests: user 7 owning
// beneficiary 12, rate 3 at 10700 and a 5% tier from 0 to 1000.
func (s *memStore) seedRemittance() {
	maxAmount := decimal.NewFromInt(1000)
	s.tiers = []entity.FeeTier{{
		ID:        1,
		Name:      "standard",
		Type:      entity.FeeTypePercentage,
		Value:     decimal.NewFromInt(5),
		MinAmount: decimal.Zero,
		MaxAmount: &maxAmount,
	}}
	s.rates[3] = &entity.ExchangeRate{ID: 3, SourceCurrencyID: 1, TargetCurrencyID: 2, Rate: 10700}
	s.beneficiaries[12] = &entity.Beneficiary{ID: 12, UserID: 7, FirstName: "Mamadou", LastName: "Diallo", Phone: "+224620000000"}
	s.users[7] = &entity.User{ID: 7, Name: "Awa", Email: "awa@example.com"}
}

func (s *memStore) repositories() Repositories {
	return Repositories{
		PaymentRecords:    &memRecordRepo{s: s},
		PaymentEvents:     &memEventRepo{s: s},
		WebhookDeliveries: &memDeliveryRepo{s: s},
		Transfers:         &memTransferRepo{s: s},
		Invoices:          &memInvoiceRepo{s: s},
		FeeTiers:          &memTierRepo{s: s},
		ExchangeRates:     &memRateRepo{s: s},
		Beneficiaries:     &memBeneficiaryRepo{s: s},
		Users:             &memUserRepo{s: s},
	}
}

func (s *memStore) record(id uint64) *entity.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.records[id]; ok {
		return copyRecord(item)
	}
	return nil
}

func (s *memStore) transferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func (s *memStore) eventTypes(recordID uint64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for _, event := range s.events {
		if event.PaymentRecordID == recordID {
			out = append(out, event.EventType)
		}
	}
	return out
}

func (s *memStore) deliveryStatuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.deliveries))
	for _, delivery := range s.deliveries {
		out = append(out, delivery.Status)
	}
	return out
}

func copyRecord(item *entity.PaymentRecord) *entity.PaymentRecord {
	out := *item
	out.Metadata = cloneMetadata(item.Metadata)
	return &out
}

type memRecordRepo struct{ s *memStore }

func (r *memRecordRepo) conflicts(record *entity.PaymentRecord) bool {
	for _, item := range r.s.records {
		if item.ID == record.ID {
			continue
		}
		if record.SessionID != nil && item.SessionID != nil && *item.SessionID == *record.SessionID {
			return true
		}
		if record.PaymentIntentID != nil && item.PaymentIntentID != nil && *item.PaymentIntentID == *record.PaymentIntentID {
			return true
		}
	}
	return false
}

func (r *memRecordRepo) Create(_ context.Context, record *entity.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = 0
	if r.conflicts(record) {
		return repository.ErrPaymentRecordAlreadyExists
	}
	record.ID = r.s.nextRecordID
	r.s.nextRecordID++
	r.s.records[record.ID] = copyRecord(record)
	return nil
}

func (r *memRecordRepo) Update(_ context.Context, record *entity.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.records[record.ID]; !ok {
		return repository.ErrPaymentRecordNotFound
	}
	if r.conflicts(record) {
		return repository.ErrPaymentRecordAlreadyExists
	}
	r.s.records[record.ID] = copyRecord(record)
	return nil
}

func (r *memRecordRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.s.record(id), nil
}

func (r *memRecordRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.FindByID(ctx, id)
}

func (r *memRecordRepo) findFirst(match func(item *entity.PaymentRecord) bool) *entity.PaymentRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]uint64, 0, len(r.s.records))
	for id := range r.s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var fallback *entity.PaymentRecord
	for _, id := range ids {
		item := r.s.records[id]
		if !match(item) {
			continue
		}
		if item.SessionID != nil {
			return copyRecord(item)
		}
		if fallback == nil {
			fallback = copyRecord(item)
		}
	}
	return fallback
}

func (r *memRecordRepo) FindBySessionID(_ context.Context, sessionID string) (*entity.PaymentRecord, error) {
	return r.findFirst(func(item *entity.PaymentRecord) bool {
		return (item.SessionID != nil && *item.SessionID == sessionID) ||
			(item.ProviderPaymentID != nil && *item.ProviderPaymentID == sessionID)
	}), nil
}

func (r *memRecordRepo) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*entity.PaymentRecord, error) {
	return r.findFirst(func(item *entity.PaymentRecord) bool {
		return item.PaymentIntentID != nil && *item.PaymentIntentID == paymentIntentID
	}), nil
}

func (r *memRecordRepo) FindByOrderID(_ context.Context, orderID string) (*entity.PaymentRecord, error) {
	return r.findFirst(func(item *entity.PaymentRecord) bool {
		return item.Metadata[entity.MetaOrderID] == orderID
	}), nil
}

func (r *memRecordRepo) FindOrCreateByPaymentIntentID(
	ctx context.Context,
	paymentIntentID string,
	defaults *entity.PaymentRecord,
) (*entity.PaymentRecord, bool, error) {
	existing, _ := r.FindByPaymentIntentID(ctx, paymentIntentID)
	if existing != nil {
		return existing, false, nil
	}
	record := copyRecord(defaults)
	record.PaymentIntentID = &paymentIntentID
	if err := r.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrPaymentRecordAlreadyExists) {
			existing, _ = r.FindByPaymentIntentID(ctx, paymentIntentID)
			return existing, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

func (r *memRecordRepo) List(_ context.Context, filter repository.PaymentRecordFilter) ([]*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]*entity.PaymentRecord, 0)
	for _, item := range r.s.records {
		if filter.Provider != "" && item.Provider != filter.Provider {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.UserID != nil && (item.UserID == nil || *item.UserID != *filter.UserID) {
			continue
		}
		if filter.OrderID != "" && item.Metadata[entity.MetaOrderID] != filter.OrderID {
			continue
		}
		if filter.Unprocessed && item.ProcessedAt != nil {
			continue
		}
		items = append(items, copyRecord(item))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *memRecordRepo) Touch(_ context.Context, id uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.records[id]; ok {
		item.UpdatedAt = at
	}
	return nil
}

func (r *memRecordRepo) ListForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.PaymentRecord, error) {
	items := r.listWhere(0, func(item *entity.PaymentRecord) bool {
		return (item.Status == entity.PaymentStatusPending || item.Status == entity.PaymentStatusProcessing) &&
			item.PaymentIntentID != nil && !item.UpdatedAt.After(before)
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.Before(items[j].UpdatedAt) })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *memRecordRepo) ListExpiredPending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentRecord, error) {
	return r.listWhere(limit, func(item *entity.PaymentRecord) bool {
		return item.Status == entity.PaymentStatusPending && !item.CreatedAt.After(cutoff)
	}), nil
}

func (r *memRecordRepo) listWhere(limit int32, match func(item *entity.PaymentRecord) bool) []*entity.PaymentRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]*entity.PaymentRecord, 0)
	for _, item := range r.s.records {
		if match(item) {
			items = append(items, copyRecord(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

type memEventRepo struct{ s *memStore }

func (r *memEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copyItem := *event
	copyItem.ID = uint64(len(r.s.events) + 1)
	event.ID = copyItem.ID
	r.s.events = append(r.s.events, &copyItem)
	return nil
}

func (r *memEventRepo) ListByPaymentRecord(_ context.Context, paymentRecordID uint64) ([]*entity.PaymentEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]*entity.PaymentEvent, 0)
	for _, event := range r.s.events {
		if event.PaymentRecordID == paymentRecordID {
			copyItem := *event
			items = append(items, &copyItem)
		}
	}
	return items, nil
}

type memDeliveryRepo struct{ s *memStore }

func (r *memDeliveryRepo) Create(_ context.Context, delivery *entity.WebhookDelivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copyItem := *delivery
	r.s.deliveries = append(r.s.deliveries, &copyItem)
	return nil
}

type memTransferRepo struct{ s *memStore }

func (r *memTransferRepo) Create(_ context.Context, transfer *entity.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.transfers {
		if item.Code == transfer.Code {
			return repository.ErrTransferCodeTaken
		}
	}
	r.s.nextTransferID++
	transfer.ID = r.s.nextTransferID
	copyItem := *transfer
	r.s.transfers[transfer.ID] = &copyItem
	return nil
}

func (r *memTransferRepo) UpdateContact(_ context.Context, transfer *entity.Transfer, expectedStatus string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.transfers[transfer.ID]
	if !ok {
		return repository.ErrTransferNotFound
	}
	if item.Status != expectedStatus {
		return repository.ErrTransferStatusChanged
	}
	item.RecipientFullName = transfer.RecipientFullName
	item.RecipientPhone = transfer.RecipientPhone
	item.District = transfer.District
	item.UpdatedAt = transfer.UpdatedAt
	return nil
}

func (r *memTransferRepo) TransitionStatus(_ context.Context, id uint64, from, to string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.transfers[id]
	if !ok {
		return repository.ErrTransferNotFound
	}
	if item.Status != from {
		return repository.ErrTransferStatusChanged
	}
	item.Status = to
	switch to {
	case entity.TransferStatusWithdrawn:
		item.WithdrawnAt = &at
	case entity.TransferStatusCanceled:
		item.CanceledAt = &at
	}
	item.UpdatedAt = at
	return nil
}

func (r *memTransferRepo) FindByID(_ context.Context, id uint64) (*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *memTransferRepo) FindByCode(_ context.Context, code string) (*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.transfers {
		if item.Code == code {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *memTransferRepo) List(_ context.Context, filter repository.TransferFilter) ([]*entity.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]*entity.Transfer, 0)
	for _, item := range r.s.transfers {
		if filter.UserID != nil && (item.UserID == nil || *item.UserID != *filter.UserID) {
			continue
		}
		if filter.BeneficiaryID != nil && item.BeneficiaryID != *filter.BeneficiaryID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.MinAmount != nil && item.Principal.LessThan(*filter.MinAmount) {
			continue
		}
		if filter.MaxAmount != nil && item.Principal.GreaterThan(*filter.MaxAmount) {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.invoices {
		if item.TransferID == invoice.TransferID {
			return repository.ErrInvoiceAlreadyExists
		}
	}
	invoice.ID = uint64(len(r.s.invoices) + 1)
	copyItem := *invoice
	r.s.invoices[invoice.ID] = &copyItem
	return nil
}

func (r *memInvoiceRepo) FindByTransferID(_ context.Context, transferID uint64) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.invoices {
		if item.TransferID == transferID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

type memTierRepo struct{ s *memStore }

func (r *memTierRepo) FindApplicable(_ context.Context, amount decimal.Decimal) (*entity.FeeTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return pricing.SelectTier(r.s.tiers, amount), nil
}

type memRateRepo struct{ s *memStore }

func (r *memRateRepo) FindByID(_ context.Context, id uint64) (*entity.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.rates[id]; ok {
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

func (r *memRateRepo) FindByPair(_ context.Context, sourceCurrencyID, targetCurrencyID uint64) (*entity.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.rates {
		if item.SourceCurrencyID == sourceCurrencyID && item.TargetCurrencyID == targetCurrencyID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

type memBeneficiaryRepo struct{ s *memStore }

func (r *memBeneficiaryRepo) FindByID(_ context.Context, id uint64) (*entity.Beneficiary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.beneficiaries[id]; ok {
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(_ context.Context, id uint64) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item, ok := r.s.users[id]; ok {
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

// serialTransactor runs one transaction at a time.
type serialTransactor struct {
	mu sync.Mutex
}

func (t *serialTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, nil)
}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []notifier.TransferNotice
	withdrawn []notifier.TransferNotice
	err       error
}

func (n *recordingNotifier) TransferCreated(_ context.Context, notice notifier.TransferNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, notice)
	return n.err
}

func (n *recordingNotifier) TransferWithdrawn(_ context.Context, notice notifier.TransferNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawn = append(n.withdrawn, notice)
	return n.err
}

func (n *recordingNotifier) createdCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

// fakeProvider is a scripted payment provider keyed by intent id.
type fakeProvider struct {
	mu sync.Mutex

	checkout      *provider.CheckoutOutput
	checkoutInput *provider.CheckoutInput

	intentInputs []*provider.PaymentIntentInput
	intents      map[string]*provider.PaymentIntent
	canceled     []string
	nextIntent   int
	retrieveErr  error

	event    *provider.WebhookEvent
	parseErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: map[string]*provider.PaymentIntent{}}
}

func (p *fakeProvider) Code() string { return provider.CodeStripe }

func (p *fakeProvider) ServerMode() string { return "test" }

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, input *provider.CheckoutInput) (*provider.CheckoutOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkoutInput = input
	if p.checkout != nil {
		return p.checkout, nil
	}
	return &provider.CheckoutOutput{SessionID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (p *fakeProvider) CreatePaymentIntent(_ context.Context, input *provider.PaymentIntentInput) (*provider.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intentInputs = append(p.intentInputs, input)
	p.nextIntent++
	intent := &provider.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", p.nextIntent),
		Status:       "requires_payment_method",
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", p.nextIntent),
		Amount:       input.Amount,
		Currency:     input.Currency,
		Metadata:     input.Metadata,
	}
	p.intents[intent.ID] = intent
	return intent, nil
}

func (p *fakeProvider) RetrievePaymentIntent(_ context.Context, paymentIntentID string) (*provider.PaymentIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retrieveErr != nil {
		return nil, p.retrieveErr
	}
	intent, ok := p.intents[paymentIntentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	copyItem := *intent
	return &copyItem, nil
}

func (p *fakeProvider) CancelPaymentIntent(_ context.Context, paymentIntentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.canceled = append(p.canceled, paymentIntentID)
	if intent, ok := p.intents[paymentIntentID]; ok {
		intent.Status = "canceled"
		intent.MappedStatus = entity.PaymentStatusCanceled
	}
	return nil
}

func (p *fakeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*provider.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parseErr != nil {
		return p.event, p.parseErr
	}
	if strings.TrimSpace(signature) == "" {
		return nil, provider.ErrInvalidSignature
	}
	return p.event, nil
}

func (p *fakeProvider) setIntent(intent *provider.PaymentIntent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[intent.ID] = intent
}

type testEnv struct {
	store    *memStore
	repos    Repositories
	uow      *UnitOfWork
	notifier *recordingNotifier
	provider *fakeProvider
	issuer   *TransferIssuer

	finalizer *Finalizer
	payments  *PaymentService
	transfers *TransferService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	store.seedRemittance()

	repos := store.repositories()
	uow := NewUnitOfWork(&serialTransactor{}, func(repository.DBTX) Repositories { return repos })
	notify := &recordingNotifier{}
	fake := newFakeProvider()

	issuer := NewTransferIssuer(
		pricing.FeeOptions{},
		config.TransfersConfig{SourceCurrencyID: 1, TargetCurrencyID: 2, DefaultReceptionMode: entity.ReceptionCash},
		config.CompanyConfig{Name: "DSPay", Address: "Conakry", Phone: "+224600000000", Email: "contact@dspay.example"},
	)
	finalizer := NewFinalizer(repos, uow, issuer, notify)

	return &testEnv{
		store:     store,
		repos:     repos,
		uow:       uow,
		notifier:  notify,
		provider:  fake,
		issuer:    issuer,
		finalizer: finalizer,
		payments: NewPaymentService(repos, uow, finalizer, provider.NewRegistry(fake), config.PaymentsConfig{
			MinAmount:           50,
			AllowedCurrencies:   []string{"eur"},
			PendingTimeout:      time.Hour,
			ReconcileStaleAfter: 10 * time.Minute,
			JobBatchSize:        100,
		}, false),
		transfers: NewTransferService(repos, uow, issuer, notify),
	}
}

// remittanceMetadata is the business context a client attaches to a 100 EUR transfer.
func remittanceMetadata() map[string]string {
	return map[string]string{
		entity.MetaBeneficiaryID: "12",
		entity.MetaRateID:        "3",
		entity.MetaPrincipal:     "100",
		entity.MetaUserID:        "7",
		entity.MetaReceptionMode: entity.ReceptionOrangeMoney,
	}
}

// insertRecord stores record directly and returns its id.
func (e *testEnv) insertRecord(record *entity.PaymentRecord) uint64 {
	if record.Provider == "" {
		record.Provider = provider.CodeStripe
	}
	if record.Currency == "" {
		record.Currency = entity.DefaultCurrency
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
		record.UpdatedAt = record.CreatedAt
	}
	if err := e.repos.PaymentRecords.Create(context.Background(), record); err != nil {
		panic(err)
	}
	return record.ID
}

func userIdentity(userID uint64) *auth.Identity {
	return &auth.Identity{UserID: userID, Email: "user@example.com", Role: "user"}
}

func adminIdentity() *auth.Identity {
	return &auth.Identity{UserID: 1, Email: "ops@example.com", Role: "admin", Privileged: true}
}

func stringPtr(v string) *string { return &v }

func uint64Ptr(v uint64) *uint64 { return &v }
