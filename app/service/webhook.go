package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/repository"
)

type handleWebhookRequest interface {
	GetProvider() string
	GetSignature() string
	GetPayload() string
}

type WebhookResult struct {
	EventID   string
	EventType string
	Ignored   bool
	Record    *entity.PaymentRecord
	Finalize  *FinalizeResult
}

// HandleWebhook verifies and applies one provider event. Only a bad signature is
// returned as ErrWebhookRejected. Once the signature is valid, an unusable body, a
// finalization problem or a panic is logged and recorded on the delivery.
func (s *PaymentService) HandleWebhook(ctx context.Context, req handleWebhookRequest) (*WebhookResult, error) {
	providerClient, err := s.provider(req.GetProvider())
	if err != nil {
		return nil, err
	}

	payload := req.GetPayload()
	signature := strings.TrimSpace(req.GetSignature())
	delivery := &entity.WebhookDelivery{
		Provider:    providerClient.Code(),
		Signature:   signature,
		PayloadJSON: payload,
	}

	event, err := providerClient.ParseWebhook(ctx, []byte(payload), signature)
	if err != nil && event != nil && errors.Is(err, provider.ErrMalformedEvent) {
		delivery.ProviderEventID = optionalString(event.ID)
		delivery.EventType = optionalString(event.Type)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warn("Verified webhook event is unusable")
		s.persistDelivery(ctx, delivery, entity.WebhookDeliveryFailed, err)
		return &WebhookResult{EventID: event.ID, EventType: event.Type, Ignored: true}, nil
	}
	if err != nil {
		s.persistDelivery(ctx, delivery, entity.WebhookDeliveryRejected, err)
		if errors.Is(err, provider.ErrInvalidSignature) {
			return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
		}
		return nil, err
	}

	delivery.ProviderEventID = optionalString(event.ID)
	delivery.EventType = optionalString(event.Type)
	return s.dispatchEvent(ctx, providerClient.Code(), delivery, event, payload)
}

// dispatchEvent runs the work that follows a verified signature. A panic is turned into
// an error so the delivery is still acknowledged.
func (s *PaymentService) dispatchEvent(
	ctx context.Context,
	providerCode string,
	delivery *entity.WebhookDelivery,
	event *provider.WebhookEvent,
	payload string,
) (result *WebhookResult, err error) {
	result = &WebhookResult{EventID: event.ID, EventType: event.Type}
	logger := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWebhookPanicked, r)
			logger.WithField("panic", r).Error("Webhook processing panicked")
			if delivery.Status == "" {
				s.persistDelivery(ctx, delivery, entity.WebhookDeliveryFailed, err)
			}
		}
	}()

	if event.Kind == provider.EventIgnored {
		result.Ignored = true
		s.persistDelivery(ctx, delivery, entity.WebhookDeliveryIgnored, nil)
		return result, nil
	}

	record, err := s.applyEvent(ctx, providerCode, event, payload)
	if err != nil {
		s.persistDelivery(ctx, delivery, entity.WebhookDeliveryFailed, err)
		return result, err
	}
	if record == nil {
		logger.Warn("No payment record matches webhook event")
		result.Ignored = true
		s.persistDelivery(ctx, delivery, entity.WebhookDeliveryIgnored, nil)
		return result, nil
	}

	delivery.PaymentRecordID = &record.ID
	s.persistDelivery(ctx, delivery, entity.WebhookDeliveryProcessed, nil)
	result.Record = record

	if record.Status == entity.PaymentStatusSucceeded && !record.Finalized() {
		finalized, err := s.finalizer.Finalize(ctx, record)
		if err != nil {
			logger.WithError(err).WithField("payment_record_id", record.ID).Error("Finalization failed, reprocess required")
			return result, nil
		}
		result.Finalize = finalized
	}

	return result, nil
}

// applyEvent locates the record an event belongs to and merges the event into it under
// the record's row lock. It returns nil when no record matches a refund.
func (s *PaymentService) applyEvent(
	ctx context.Context,
	providerCode string,
	event *provider.WebhookEvent,
	payload string,
) (*entity.PaymentRecord, error) {
	echo := map[string]string{
		entity.MetaLastEvent: event.Type,
		entity.MetaLivemode:  strconv.FormatBool(event.Livemode),
	}

	var (
		target *entity.PaymentRecord
		patch  entity.PaymentPatch
		err    error
	)
	switch event.Kind {
	case provider.EventCheckoutSession:
		target, err = s.locateSession(ctx, providerCode, event.Session)
		patch = sessionPatch(event, echo)
	case provider.EventPaymentIntent:
		target, err = s.locateIntent(ctx, providerCode, event.PaymentIntent)
		patch = intentPatch(event, echo)
	case provider.EventRefund:
		target, err = s.repos.PaymentRecords.FindByPaymentIntentID(ctx, event.Refund.PaymentIntentID)
		patch = entity.PaymentPatch{Status: event.Status, Metadata: echo}
	default:
		return nil, nil
	}
	if err != nil || target == nil {
		return nil, err
	}

	var oldStatus string
	updated, err := s.mutate(ctx, target.ID, func(ctx context.Context, repos Repositories, locked *entity.PaymentRecord) error {
		oldStatus = locked.Status
		if patch.PaymentIntentID != nil && locked.PaymentIntentID == nil {
			if err := s.absorbTwin(ctx, repos, locked, *patch.PaymentIntentID); err != nil {
				return err
			}
		}
		if !locked.Merge(patch) && patch.Status != "" && patch.Status != locked.Status {
			s.logger.WithFields(logrus.Fields{
				"payment_record_id": locked.ID,
				"status":            locked.Status,
				"rejected_status":   patch.Status,
				"event_id":          event.ID,
			}).Info("Status transition rejected")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var oldStatusPtr *string
	if oldStatus != updated.Status {
		oldStatusPtr = &oldStatus
	}
	s.recordEvent(ctx, updated.ID, event.Type, oldStatusPtr, updated.Status, optionalString(event.ID), &payload)

	return updated, nil
}

// absorbTwin merges a record already keyed by paymentIntentID into target and detaches
// the intent id from the twin so target can carry it.
func (s *PaymentService) absorbTwin(ctx context.Context, repos Repositories, target *entity.PaymentRecord, paymentIntentID string) error {
	twin, err := repos.PaymentRecords.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil || twin == nil || twin.ID == target.ID {
		return err
	}
	twin, err = repos.PaymentRecords.FindByIDForUpdate(ctx, twin.ID)
	if err != nil || twin == nil {
		return err
	}

	target.MergeTwin(twin)

	twin.PaymentIntentID = nil
	twin.Metadata = entity.MergeMetadata(twin.Metadata, map[string]string{
		entity.MetaMergedInto: strconv.FormatUint(target.ID, 10),
	})
	twin.UpdatedAt = time.Now().UTC()
	if err := repos.PaymentRecords.Update(ctx, twin); err != nil {
		return fmt.Errorf("detach twin payment record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_record_id": target.ID,
		"twin_id":           twin.ID,
		"payment_intent_id": paymentIntentID,
	}).Info("Merged twin payment record")
	return nil
}

// locateSession finds the record of a checkout session, creating it on first sight.
func (s *PaymentService) locateSession(ctx context.Context, providerCode string, session *provider.CheckoutSession) (*entity.PaymentRecord, error) {
	record, err := s.repos.PaymentRecords.FindBySessionID(ctx, session.ID)
	if err != nil || record != nil {
		return record, err
	}

	now := time.Now().UTC()
	sessionID := session.ID
	record = &entity.PaymentRecord{
		Provider:  providerCode,
		SessionID: &sessionID,
		Status:    entity.PaymentStatusPending,
		Amount:    session.AmountTotal,
		Currency:  currencyOrDefault(session.Currency),
		UserID:    metadataUserID(session.Metadata),
		Metadata:  cloneMetadata(session.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repos.PaymentRecords.Create(ctx, record)
	if err == nil {
		return record, nil
	}
	if errors.Is(err, repository.ErrPaymentRecordAlreadyExists) {
		return s.repos.PaymentRecords.FindBySessionID(ctx, session.ID)
	}
	return nil, err
}

// locateIntent prefers the record of the business order so an intent created for a
// session-backed order lands on that record.
func (s *PaymentService) locateIntent(ctx context.Context, providerCode string, intent *provider.PaymentIntent) (*entity.PaymentRecord, error) {
	if orderID := strings.TrimSpace(intent.Metadata[entity.MetaOrderID]); orderID != "" {
		record, err := s.repos.PaymentRecords.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if record != nil && (record.PaymentIntentID == nil || *record.PaymentIntentID == intent.ID) {
			return record, nil
		}
	}

	now := time.Now().UTC()
	record, _, err := s.repos.PaymentRecords.FindOrCreateByPaymentIntentID(ctx, intent.ID, &entity.PaymentRecord{
		Provider:  providerCode,
		Status:    entity.PaymentStatusPending,
		Amount:    intent.Amount,
		Currency:  currencyOrDefault(intent.Currency),
		UserID:    metadataUserID(intent.Metadata),
		Metadata:  cloneMetadata(intent.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return record, err
}

func sessionPatch(event *provider.WebhookEvent, echo map[string]string) entity.PaymentPatch {
	session := event.Session
	metadata := entity.MergeMetadata(cloneMetadata(session.Metadata), echo)
	metadata = entity.MergeMetadata(metadata, map[string]string{
		entity.MetaPaymentStatus: session.PaymentStatus,
		entity.MetaCustomerEmail: session.CustomerEmail,
	})

	patch := entity.PaymentPatch{
		Status:   event.Status,
		Amount:   &session.AmountTotal,
		Currency: &session.Currency,
		Metadata: metadata,
	}
	if session.PaymentIntentID != "" {
		patch.PaymentIntentID = &session.PaymentIntentID
	}
	return patch
}

func intentPatch(event *provider.WebhookEvent, echo map[string]string) entity.PaymentPatch {
	intent := event.PaymentIntent
	return entity.PaymentPatch{
		Status:          event.Status,
		Amount:          &intent.Amount,
		Currency:        &intent.Currency,
		PaymentIntentID: &intent.ID,
		Metadata:        entity.MergeMetadata(cloneMetadata(intent.Metadata), echo),
	}
}

func (s *PaymentService) persistDelivery(ctx context.Context, delivery *entity.WebhookDelivery, status string, cause error) {
	delivery.Status = status
	delivery.CreatedAt = time.Now().UTC()
	if cause != nil {
		reason := truncate(cause.Error(), 1024)
		delivery.Error = &reason
	}
	if err := s.repos.WebhookDeliveries.Create(ctx, delivery); err != nil {
		s.logger.WithError(err).WithField("status", status).Warn("Failed to persist webhook delivery")
	}
}

func metadataUserID(metadata map[string]string) *uint64 {
	userID, err := strconv.ParseUint(strings.TrimSpace(metadata[entity.MetaUserID]), 10, 64)
	if err != nil || userID == 0 {
		return nil
	}
	return &userID
}

func currencyOrDefault(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return entity.DefaultCurrency
	}
	return currency
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
