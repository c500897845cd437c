package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/factory"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
	maxOrderIDLength = 100
)

const (
	sourceCheckout      = "checkout"
	sourcePaymentIntent = "payment_intent"
)

// Intent statuses that still accept a confirmation from the client.
var reusableIntentStatuses = []string{
	"requires_payment_method",
	"requires_confirmation",
	"requires_action",
	"processing",
	"requires_capture",
}

type createCheckoutSessionRequest interface {
	GetProvider() string
	GetAmount() int64
	GetCurrency() string
	GetSuccessUrl() string
	GetCancelUrl() string
	GetCustomerEmail() string
	GetOrderId() string
	GetMetadata() map[string]string
}

type createPaymentIntentRequest interface {
	GetProvider() string
	GetAmount() int64
	GetCurrency() string
	GetCustomerEmail() string
	GetOrderId() string
	GetForceNew() bool
	GetMetadata() map[string]string
}

type cancelCheckoutRequest interface {
	GetOrderId() string
	GetCancelToken() string
}

type listPaymentsRequest interface {
	GetProvider() string
	GetStatus() string
	GetOrderId() string
	GetUserId() uint64
	GetUnprocessed() bool
	GetLimit() int32
	GetOffset() int32
}

type CheckoutSessionResult struct {
	SessionID string
	URL       string
	OrderID   string
	Record    *entity.PaymentRecord
}

type PaymentIntentResult struct {
	ID           string
	ClientSecret string
	Status       string
	Livemode     bool
	ServerMode   string
	AlreadyPaid  bool
	Reused       bool
	Record       *entity.PaymentRecord
}

type CancelCheckoutResult struct {
	Record           *entity.PaymentRecord
	AlreadyProcessed bool
}

type SessionView struct {
	Record   *entity.PaymentRecord
	Transfer *entity.Transfer
	Events   []*entity.PaymentEvent
}

type ReprocessResult struct {
	Record    *entity.PaymentRecord
	Finalized bool
	Reason    string
}

type PaymentService struct {
	repos       Repositories
	uow         *UnitOfWork
	finalizer   *Finalizer
	providerReg *provider.Registry
	paymentsCfg config.PaymentsConfig
	devMode     bool
	logger      logrus.FieldLogger
}

func NewPaymentService(
	repos Repositories,
	uow *UnitOfWork,
	finalizer *Finalizer,
	providerReg *provider.Registry,
	paymentsCfg config.PaymentsConfig,
	devMode bool,
) *PaymentService {
	return &PaymentService{
		repos:       repos,
		uow:         uow,
		finalizer:   finalizer,
		providerReg: providerReg,
		paymentsCfg: paymentsCfg,
		devMode:     devMode,
		logger:      factory.NewModuleLogger("payment-service"),
	}
}

func (s *PaymentService) CreateCheckoutSession(
	ctx context.Context,
	req createCheckoutSessionRequest,
	caller *auth.Identity,
) (*CheckoutSessionResult, error) {
	providerClient, err := s.provider(req.GetProvider())
	if err != nil {
		return nil, err
	}
	currency, err := s.validateAmount(req.GetAmount(), req.GetCurrency())
	if err != nil {
		return nil, err
	}
	orderID, err := normalizeOrderID(req.GetOrderId())
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}
	cancelToken := uuid.NewString()
	customerEmail := strings.TrimSpace(req.GetCustomerEmail())

	metadata := entity.MergeMetadata(cloneMetadata(req.GetMetadata()), map[string]string{
		entity.MetaOrderID:       orderID,
		entity.MetaCancelToken:   cancelToken,
		entity.MetaSource:        sourceCheckout,
		entity.MetaCustomerEmail: customerEmail,
	})
	if caller != nil {
		metadata[entity.MetaUserID] = strconv.FormatUint(caller.UserID, 10)
	}

	output, err := providerClient.CreateCheckoutSession(ctx, &provider.CheckoutInput{
		OrderID:        orderID,
		Amount:         req.GetAmount(),
		Currency:       currency,
		ProductName:    s.productName(),
		SuccessURL:     appendSessionPlaceholder(req.GetSuccessUrl()),
		CancelURL:      appendQuery(req.GetCancelUrl(), url.Values{"order_id": {orderID}, "cancel_token": {cancelToken}}),
		CustomerEmail:  customerEmail,
		Metadata:       metadata,
		IdempotencyKey: "checkout_" + orderID,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("Checkout session creation failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	now := time.Now().UTC()
	metadata[entity.MetaLivemode] = strconv.FormatBool(output.Livemode)
	record := &entity.PaymentRecord{
		Provider:  providerClient.Code(),
		SessionID: &output.SessionID,
		Status:    entity.PaymentStatusPending,
		Amount:    req.GetAmount(),
		Currency:  currency,
		UserID:    callerUserID(caller),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if output.PaymentIntentID != "" {
		record.PaymentIntentID = &output.PaymentIntentID
	}

	record, err = s.upsertBySession(ctx, record)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, record.ID, "checkout_session_created", nil, record.Status, nil, nil)

	return &CheckoutSessionResult{
		SessionID: output.SessionID,
		URL:       output.URL,
		OrderID:   orderID,
		Record:    record,
	}, nil
}

// upsertBySession stores a freshly created session. A retried create with the same
// idempotency key yields the same session id, so an existing row is updated instead.
func (s *PaymentService) upsertBySession(ctx context.Context, record *entity.PaymentRecord) (*entity.PaymentRecord, error) {
	existing, err := s.repos.PaymentRecords.FindBySessionID(ctx, *record.SessionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err = s.repos.PaymentRecords.Create(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, repository.ErrPaymentRecordAlreadyExists) {
			return nil, err
		}
		existing, err = s.repos.PaymentRecords.FindBySessionID(ctx, *record.SessionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrPaymentNotFound
		}
	}

	return s.mutate(ctx, existing.ID, func(_ context.Context, _ Repositories, locked *entity.PaymentRecord) error {
		locked.Merge(entity.PaymentPatch{
			Amount:          &record.Amount,
			Currency:        &record.Currency,
			PaymentIntentID: record.PaymentIntentID,
			Metadata:        record.Metadata,
		})
		if locked.UserID == nil {
			locked.UserID = record.UserID
		}
		return nil
	})
}

func (s *PaymentService) CreatePaymentIntent(
	ctx context.Context,
	req createPaymentIntentRequest,
	caller *auth.Identity,
) (*PaymentIntentResult, error) {
	providerClient, err := s.provider(req.GetProvider())
	if err != nil {
		return nil, err
	}
	currency, err := s.validateAmount(req.GetAmount(), req.GetCurrency())
	if err != nil {
		return nil, err
	}
	orderID, err := normalizeOrderID(req.GetOrderId())
	if err != nil {
		return nil, err
	}

	var existing *entity.PaymentRecord
	if orderID != "" {
		existing, err = s.repos.PaymentRecords.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		result, err := s.reuseIntent(ctx, providerClient, existing, req.GetAmount(), currency, req.GetForceNew())
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
	if existing != nil && existing.PaymentIntentID != nil {
		s.cancelStaleIntent(ctx, providerClient, *existing.PaymentIntentID)
	}

	// A replaced intent must not replay the first one through the provider's idempotency cache.
	idempotencyKey := "pi_" + uuid.NewString()
	if orderID != "" && existing == nil && !s.devMode {
		idempotencyKey = "pi_" + orderID
	}

	customerEmail := strings.TrimSpace(req.GetCustomerEmail())
	metadata := entity.MergeMetadata(cloneMetadata(req.GetMetadata()), map[string]string{
		entity.MetaSource:        sourcePaymentIntent,
		entity.MetaOrderID:       orderID,
		entity.MetaCustomerEmail: customerEmail,
	})
	if caller != nil {
		metadata[entity.MetaUserID] = strconv.FormatUint(caller.UserID, 10)
	}

	intent, err := providerClient.CreatePaymentIntent(ctx, &provider.PaymentIntentInput{
		Amount:         req.GetAmount(),
		Currency:       currency,
		ReceiptEmail:   customerEmail,
		Metadata:       metadata,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("Payment intent creation failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	metadata[entity.MetaLivemode] = strconv.FormatBool(intent.Livemode)

	var record *entity.PaymentRecord
	if existing != nil {
		var paid *entity.PaymentRecord
		record, err = s.mutate(ctx, existing.ID, func(_ context.Context, _ Repositories, locked *entity.PaymentRecord) error {
			if locked.Paid() {
				paid = locked
				return errOrderAlreadyPaid
			}
			locked.PaymentIntentID = &intent.ID
			locked.Merge(entity.PaymentPatch{
				Status:   entity.PaymentStatusPending,
				Amount:   &intent.Amount,
				Currency: &currency,
				Metadata: metadata,
			})
			return nil
		})
		if errors.Is(err, errOrderAlreadyPaid) {
			s.cancelStaleIntent(ctx, providerClient, intent.ID)
			return alreadyPaidResult(paid, providerClient), nil
		}
	} else {
		now := time.Now().UTC()
		record, _, err = s.repos.PaymentRecords.FindOrCreateByPaymentIntentID(ctx, intent.ID, &entity.PaymentRecord{
			Provider:  providerClient.Code(),
			Status:    entity.PaymentStatusPending,
			Amount:    req.GetAmount(),
			Currency:  currency,
			UserID:    callerUserID(caller),
			Metadata:  metadata,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, record.ID, "payment_intent_created", nil, record.Status, nil, nil)

	return &PaymentIntentResult{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Livemode:     intent.Livemode,
		ServerMode:   providerClient.ServerMode(),
		Record:       record,
	}, nil
}

// reuseIntent returns the already-paid result for a charged order, the order's current
// intent when the client can still confirm it, and nil when a new intent is needed.
// forceNew skips reuse but never the paid check.
func (s *PaymentService) reuseIntent(
	ctx context.Context,
	providerClient provider.Provider,
	existing *entity.PaymentRecord,
	amount int64,
	currency string,
	forceNew bool,
) (*PaymentIntentResult, error) {
	if existing.Paid() {
		return alreadyPaidResult(existing, providerClient), nil
	}
	if existing.PaymentIntentID == nil {
		return nil, nil
	}

	intent, err := providerClient.RetrievePaymentIntent(ctx, *existing.PaymentIntentID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", *existing.PaymentIntentID).Warn("Failed to retrieve existing payment intent")
		return nil, nil
	}
	if intent.MappedStatus == entity.PaymentStatusSucceeded || intent.MappedStatus == entity.PaymentStatusRefunded {
		return alreadyPaidResult(existing, providerClient), nil
	}
	if forceNew {
		return nil, nil
	}
	if !lo.Contains(reusableIntentStatuses, intent.Status) || intent.Amount != amount || !strings.EqualFold(intent.Currency, currency) {
		return nil, nil
	}

	return &PaymentIntentResult{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Livemode:     intent.Livemode,
		ServerMode:   providerClient.ServerMode(),
		Reused:       true,
		Record:       existing,
	}, nil
}

func (s *PaymentService) cancelStaleIntent(ctx context.Context, providerClient provider.Provider, paymentIntentID string) {
	if err := providerClient.CancelPaymentIntent(ctx, paymentIntentID); err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", paymentIntentID).Warn("Failed to cancel stale payment intent")
	}
}

func alreadyPaidResult(record *entity.PaymentRecord, providerClient provider.Provider) *PaymentIntentResult {
	result := &PaymentIntentResult{
		Status:      "already_paid",
		AlreadyPaid: true,
		ServerMode:  providerClient.ServerMode(),
		Record:      record,
	}
	if record.PaymentIntentID != nil {
		result.ID = *record.PaymentIntentID
	}
	return result
}

// GetSession returns a record by session id together with its transfer and history.
func (s *PaymentService) GetSession(ctx context.Context, providerCode, sessionID string, caller *auth.Identity) (*SessionView, error) {
	if _, err := s.provider(providerCode); err != nil {
		return nil, err
	}
	record, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessRecord(record, caller) {
		return nil, ErrForbidden
	}

	view := &SessionView{Record: record}
	if transferID, err := strconv.ParseUint(record.MetaValue(entity.MetaTransferID), 10, 64); err == nil {
		view.Transfer, err = s.repos.Transfers.FindByID(ctx, transferID)
		if err != nil {
			return nil, err
		}
	}
	view.Events, err = s.repos.PaymentEvents.ListByPaymentRecord(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelCheckout marks an unpaid checkout as canceled when the customer leaves the
// provider page. processed_at stays untouched so a late success still finalizes.
func (s *PaymentService) CancelCheckout(ctx context.Context, req cancelCheckoutRequest) (*CancelCheckoutResult, error) {
	orderID := strings.TrimSpace(req.GetOrderId())
	token := strings.TrimSpace(req.GetCancelToken())
	if orderID == "" || token == "" {
		return nil, fmt.Errorf("%w: order_id and cancel_token are required", ErrInvalidRequest)
	}

	record, err := s.repos.PaymentRecords.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPaymentNotFound
	}
	if subtle.ConstantTimeCompare([]byte(record.MetaValue(entity.MetaCancelToken)), []byte(token)) != 1 {
		return nil, ErrCancelTokenMismatch
	}

	result := &CancelCheckoutResult{}
	oldStatus := record.Status
	record, err = s.mutate(ctx, record.ID, func(_ context.Context, _ Repositories, locked *entity.PaymentRecord) error {
		switch locked.Status {
		case entity.PaymentStatusSucceeded, entity.PaymentStatusProcessing, entity.PaymentStatusRefunded:
			result.AlreadyProcessed = true
			return errNoChange
		}
		locked.Merge(entity.PaymentPatch{
			Status: entity.PaymentStatusCanceled,
			Metadata: map[string]string{
				entity.MetaCanceledAt: time.Now().UTC().Format(time.RFC3339),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.AlreadyProcessed {
		s.recordEvent(ctx, record.ID, "checkout_canceled", &oldStatus, record.Status, nil, nil)
	}
	result.Record = record
	return result, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, req listPaymentsRequest) ([]*entity.PaymentRecord, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}
	status := strings.ToLower(strings.TrimSpace(req.GetStatus()))
	if status != "" && !entity.IsPaymentStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	filter := repository.PaymentRecordFilter{
		Provider:    strings.ToLower(strings.TrimSpace(req.GetProvider())),
		Status:      status,
		OrderID:     strings.TrimSpace(req.GetOrderId()),
		Unprocessed: req.GetUnprocessed(),
		Limit:       limit,
		Offset:      req.GetOffset(),
	}
	if userID := req.GetUserId(); userID > 0 {
		filter.UserID = &userID
	}
	return s.repos.PaymentRecords.List(ctx, filter)
}

// Reprocess re-runs finalization for a session. A record that never saw its success
// event is refreshed from the provider first.
func (s *PaymentService) Reprocess(ctx context.Context, sessionID string) (*ReprocessResult, error) {
	record, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if record.Status != entity.PaymentStatusSucceeded && record.PaymentIntentID != nil {
		record, err = s.refreshFromProvider(ctx, record, "payment_reprocess_refreshed")
		if err != nil {
			return nil, err
		}
	}
	if record.Status != entity.PaymentStatusSucceeded {
		return nil, ErrPaymentNotSucceeded
	}

	result, err := s.finalizer.Finalize(ctx, record)
	if err != nil {
		return nil, err
	}

	record, err = s.repos.PaymentRecords.FindByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return &ReprocessResult{Record: record, Finalized: result.Finalized, Reason: result.Reason}, nil
}

func (s *PaymentService) findSession(ctx context.Context, sessionID string) (*entity.PaymentRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	record, err := s.repos.PaymentRecords.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPaymentNotFound
	}
	return record, nil
}

// refreshFromProvider applies the provider's authoritative intent status to record.
func (s *PaymentService) refreshFromProvider(ctx context.Context, record *entity.PaymentRecord, eventType string) (*entity.PaymentRecord, error) {
	providerClient, err := s.provider(record.Provider)
	if err != nil {
		return nil, err
	}
	intent, err := providerClient.RetrievePaymentIntent(ctx, *record.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if intent.MappedStatus == "" || intent.MappedStatus == record.Status {
		return record, nil
	}

	oldStatus := record.Status
	updated, err := s.mutate(ctx, record.ID, func(_ context.Context, _ Repositories, locked *entity.PaymentRecord) error {
		if !locked.Merge(entity.PaymentPatch{
			Status:   intent.MappedStatus,
			Amount:   &intent.Amount,
			Currency: &intent.Currency,
		}) {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != oldStatus {
		s.recordEvent(ctx, updated.ID, eventType, &oldStatus, updated.Status, nil, nil)
	}
	return updated, nil
}

var (
	errNoChange         = errors.New("no change")
	errOrderAlreadyPaid = errors.New("order already paid")
)

// mutate applies fn to the row-locked record and saves it. fn returning errNoChange
// leaves the row untouched and yields the locked state.
func (s *PaymentService) mutate(
	ctx context.Context,
	id uint64,
	fn func(ctx context.Context, repos Repositories, locked *entity.PaymentRecord) error,
) (*entity.PaymentRecord, error) {
	var out *entity.PaymentRecord
	err := s.uow.Do(ctx, func(ctx context.Context, repos Repositories) error {
		locked, err := repos.PaymentRecords.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		out = locked

		if err := fn(ctx, repos, locked); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		locked.UpdatedAt = time.Now().UTC()
		return repos.PaymentRecords.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) recordEvent(
	ctx context.Context,
	recordID uint64,
	eventType string,
	oldStatus *string,
	newStatus string,
	providerEventID *string,
	payload *string,
) {
	err := s.repos.PaymentEvents.Create(ctx, &entity.PaymentEvent{
		PaymentRecordID: recordID,
		EventType:       eventType,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		ProviderEventID: providerEventID,
		PayloadJSON:     payload,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_record_id", recordID).Warn("Failed to record payment event")
	}
}

func (s *PaymentService) provider(code string) (provider.Provider, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = provider.CodeStripe
	}
	p, err := s.providerReg.Get(code)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) validateAmount(amount int64, currency string) (string, error) {
	minAmount := s.paymentsCfg.MinAmount
	if minAmount <= 0 {
		minAmount = 50
	}
	if amount < minAmount {
		return "", fmt.Errorf("%w: amount must be at least %d", ErrInvalidRequest, minAmount)
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = entity.DefaultCurrency
	}
	if len(s.paymentsCfg.AllowedCurrencies) > 0 && !lo.Contains(s.paymentsCfg.AllowedCurrencies, currency) {
		return "", fmt.Errorf("%w: currency %q is not allowed", ErrInvalidRequest, currency)
	}
	return currency, nil
}

func (s *PaymentService) productName() string {
	if name := strings.TrimSpace(s.paymentsCfg.CheckoutProductName); name != "" {
		return name
	}
	return "Paiement DSPay"
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOrderID(raw string) (string, error) {
	orderID := strings.TrimSpace(raw)
	if len(orderID) > maxOrderIDLength {
		return "", fmt.Errorf("%w: order_id must be at most %d characters", ErrInvalidRequest, maxOrderIDLength)
	}
	return orderID, nil
}

// appendSessionPlaceholder adds the provider's literal session placeholder, which must
// not be URL-encoded.
func appendSessionPlaceholder(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || strings.Contains(rawURL, "{CHECKOUT_SESSION_ID}") {
		return rawURL
	}
	return rawURL + querySeparator(rawURL) + "session_id={CHECKOUT_SESSION_ID}"
}

func appendQuery(rawURL string, values url.Values) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	return rawURL + querySeparator(rawURL) + values.Encode()
}

func querySeparator(rawURL string) string {
	if strings.Contains(rawURL, "?") {
		return "&"
	}
	return "?"
}

func canAccessRecord(record *entity.PaymentRecord, caller *auth.Identity) bool {
	if caller == nil {
		return false
	}
	if caller.Privileged || record.UserID == nil {
		return true
	}
	return *record.UserID == caller.UserID
}

func callerUserID(caller *auth.Identity) *uint64 {
	if caller == nil {
		return nil
	}
	userID := caller.UserID
	return &userID
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
