package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
	"github.com/vibast-solutions/ms-go-remittance/app/provider"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

func TestHandleWebhookRejectedSignature(t *testing.T) {
	env := newControllerEnv()
	env.provider.parseErr = provider.ErrInvalidSignature

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_1"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "t=1,v1=bad")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	if err := env.payments.HandleWebhook(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWebhookMissingSignature(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_1"}`, nil)
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.HandleWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWebhookUnsupportedProvider(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/paypal/webhook", `{}`, nil)
	ctx.Request().Header.Set("X-Provider-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("paypal")

	_ = env.payments.HandleWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWebhookIgnoredEventAcknowledged(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_1"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.HandleWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload types.MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Message != "ok" {
		t.Fatalf("unexpected body: %+v", payload)
	}
}

func TestHandleWebhookInternalFailureStillAcknowledged(t *testing.T) {
	env := newControllerEnv()
	env.store.failLookups = errors.New("database unavailable")
	env.provider.event = &provider.WebhookEvent{
		ID:     "evt_2",
		Type:   "checkout.session.completed",
		Kind:   provider.EventCheckoutSession,
		Status: entity.PaymentStatusSucceeded,
		Session: &provider.CheckoutSession{
			ID:            "cs_ctrl_9",
			PaymentStatus: "paid",
			AmountTotal:   10500,
			Currency:      "eur",
		},
	}

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_2"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.HandleWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleWebhookMalformedVerifiedEventAcknowledged(t *testing.T) {
	env := newControllerEnv()
	env.provider.parseErr = provider.ErrMalformedEvent
	env.provider.event = &provider.WebhookEvent{ID: "evt_3", Type: "charge.refunded", Kind: provider.EventIgnored}

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_3"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	if err := env.payments.HandleWebhook(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleWebhookPanicStillAcknowledged(t *testing.T) {
	env := newControllerEnv()
	env.provider.event = &provider.WebhookEvent{
		ID:     "evt_4",
		Type:   "checkout.session.completed",
		Kind:   provider.EventCheckoutSession,
		Status: entity.PaymentStatusSucceeded,
	}

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_4"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	if err := env.payments.HandleWebhook(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleWebhookCompletedCheckoutCreatesTransfer(t *testing.T) {
	env := newControllerEnv()
	userID := uint64(7)
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		Amount:    10000,
		Currency:  "eur",
		UserID:    &userID,
		Metadata: map[string]string{
			entity.MetaBeneficiaryID: "12",
			entity.MetaRateID:        "3",
			entity.MetaPrincipal:     "100",
		},
	})
	env.provider.event = &provider.WebhookEvent{
		ID:     "evt_3",
		Type:   "checkout.session.completed",
		Kind:   provider.EventCheckoutSession,
		Status: entity.PaymentStatusSucceeded,
		Session: &provider.CheckoutSession{
			ID:            "cs_ctrl_1",
			PaymentStatus: "paid",
			AmountTotal:   10000,
			Currency:      "eur",
		},
	}

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/webhook", `{"id":"evt_3"}`, nil)
	ctx.Request().Header.Set("Stripe-Signature", "sig")
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.HandleWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.store.transfers) != 1 {
		t.Fatalf("expected one transfer, got %d", len(env.store.transfers))
	}
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout-sessions", `{"amount":10500,"currency":"eur","success_url":"https://app/ok","cancel_url":"https://app/ko","metadata":{"beneficiaire_id":12}}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CreateCheckoutSession(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.CheckoutSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.ID != "cs_ctrl_1" || payload.URL == "" || payload.OrderID == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCreateCheckoutSessionBadBody(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout-sessions", "{bad", &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CreateCheckoutSession(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateCheckoutSessionProviderDown(t *testing.T) {
	env := newControllerEnv()
	env.provider.failAPI = true

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout-sessions", `{"amount":10500,"currency":"eur","success_url":"https://app/ok","cancel_url":"https://app/ko"}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CreateCheckoutSession(ctx)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCreatePaymentIntentBelowMinimum(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/payment-intents", `{"amount":10,"currency":"eur"}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CreatePaymentIntent(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreatePaymentIntentSuccess(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/payment-intents", `{"amount":10500,"currency":"eur","order_id":"ord-1"}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CreatePaymentIntent(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.PaymentIntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.ClientSecret != "pi_ctrl_1_secret" || payload.ServerMode != "test" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCancelCheckoutTokenMismatch(t *testing.T) {
	env := newControllerEnv()
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		Metadata:  map[string]string{entity.MetaOrderID: "ord-1", entity.MetaCancelToken: "tok"},
	})

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout/cancel", `{"order_id":"ord-1","cancel_token":"nope"}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CancelCheckout(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCancelCheckoutUnknownOrder(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout/cancel?order_id=missing&cancel_token=tok", "", &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CancelCheckout(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelCheckoutSuccess(t *testing.T) {
	env := newControllerEnv()
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		Metadata:  map[string]string{entity.MetaOrderID: "ord-1", entity.MetaCancelToken: "tok"},
	})

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/checkout/cancel", `{"order_id":"ord-1","cancel_token":"tok"}`, &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")

	_ = env.payments.CancelCheckout(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.CancelCheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Status != entity.PaymentStatusCanceled || payload.AlreadyProcessed {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestGetSessionForbiddenForOtherUser(t *testing.T) {
	env := newControllerEnv()
	owner := uint64(7)
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		UserID:    &owner,
		Metadata:  map[string]string{},
	})

	ctx, rec := newContext(http.MethodGet, "/payments/stripe/sessions/cs_ctrl_1", "", &auth.Identity{UserID: 8})
	ctx.SetParamNames("provider", "sessionId")
	ctx.SetParamValues("stripe", "cs_ctrl_1")

	_ = env.payments.GetSession(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodGet, "/payments/stripe/sessions/cs_missing", "", &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider", "sessionId")
	ctx.SetParamValues("stripe", "cs_missing")

	_ = env.payments.GetSession(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetSessionOwnerSeesStatus(t *testing.T) {
	env := newControllerEnv()
	owner := uint64(7)
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		Amount:    10500,
		Currency:  "eur",
		UserID:    &owner,
		Metadata:  map[string]string{},
	})

	ctx, rec := newContext(http.MethodGet, "/payments/stripe/sessions/cs_ctrl_1", "", &auth.Identity{UserID: 7})
	ctx.SetParamNames("provider", "sessionId")
	ctx.SetParamValues("stripe", "cs_ctrl_1")

	_ = env.payments.GetSession(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload types.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Status != entity.PaymentStatusPending || payload.Amount != 10500 || payload.TransferID != nil {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestReprocessRequiresSucceededPayment(t *testing.T) {
	env := newControllerEnv()
	env.store.addRecord(&entity.PaymentRecord{
		Provider:  provider.CodeStripe,
		SessionID: stringPtr("cs_ctrl_1"),
		Status:    entity.PaymentStatusPending,
		Metadata:  map[string]string{},
	})

	ctx, rec := newContext(http.MethodPost, "/payments/stripe/sessions/cs_ctrl_1/reprocess", "", &auth.Identity{UserID: 1, Privileged: true})
	ctx.SetParamNames("provider", "sessionId")
	ctx.SetParamValues("stripe", "cs_ctrl_1")

	_ = env.payments.Reprocess(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestListPaymentsInvalidStatus(t *testing.T) {
	env := newControllerEnv()

	ctx, rec := newContext(http.MethodGet, "/payments?status=paid", "", &auth.Identity{UserID: 1, Privileged: true})

	_ = env.payments.ListPayments(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListPaymentsSuccess(t *testing.T) {
	env := newControllerEnv()
	env.store.addRecord(&entity.PaymentRecord{Provider: provider.CodeStripe, Status: entity.PaymentStatusSucceeded, Metadata: map[string]string{}})

	ctx, rec := newContext(http.MethodGet, "/payments?limit=10", "", &auth.Identity{UserID: 1, Privileged: true})

	_ = env.payments.ListPayments(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload types.ListPaymentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Payments) != 1 || payload.Limit != 10 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
