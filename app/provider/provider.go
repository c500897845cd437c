package provider

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

type CheckoutInput struct {
	OrderID        string
	Amount         int64
	Currency       string
	ProductName    string
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	Metadata       map[string]string
	IdempotencyKey string
}

type CheckoutOutput struct {
	SessionID       string
	URL             string
	PaymentIntentID string
	Livemode        bool
}

type PaymentIntentInput struct {
	Amount         int64
	Currency       string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the provider-neutral view of an intent. Status is the provider's own
// vocabulary, MappedStatus the internal one.
type PaymentIntent struct {
	ID           string
	Status       string
	MappedStatus string
	ClientSecret string
	Amount       int64
	Currency     string
	Livemode     bool
	Metadata     map[string]string
}

type CheckoutSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	Metadata        map[string]string
}

type Refund struct {
	ChargeID        string
	PaymentIntentID string
	AmountRefunded  int64
	Currency        string
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventCheckoutSession
	EventPaymentIntent
	EventRefund
)

// WebhookEvent is a verified provider event. Status holds the internal status the event
// maps to; it is empty when the event must not change the record status.
type WebhookEvent struct {
	ID       string
	Type     string
	Kind     EventKind
	Livemode bool
	Status   string

	Session       *CheckoutSession
	PaymentIntent *PaymentIntent
	Refund        *Refund
}

type Provider interface {
	Code() string
	ServerMode() string
	CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error)
	CreatePaymentIntent(ctx context.Context, input *PaymentIntentInput) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) error
	// ParseWebhook verifies and decodes an event. A verified event whose body cannot be
	// used is returned as ignored together with ErrMalformedEvent.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
