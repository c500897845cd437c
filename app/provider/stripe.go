package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type stripeEventHandler func(event *stripe.Event, result *WebhookEvent) error

type StripeProvider struct {
	cfg      StripeConfig
	client   *stripe.Client
	handlers map[stripe.EventType]stripeEventHandler
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}

	p := &StripeProvider{cfg: cfg}
	if strings.TrimSpace(cfg.SecretKey) != "" {
		p.client = stripe.NewClient(cfg.SecretKey)
	}

	// Only these events may change a record. Anything else is acknowledged and dropped,
	// which keeps late intermediate events such as requires_action from demoting a record.
	p.handlers = map[stripe.EventType]stripeEventHandler{
		stripe.EventTypeCheckoutSessionCompleted:             p.handleCheckoutSession(""),
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded: p.handleCheckoutSession(""),
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:    p.handleCheckoutSession(statusFailed),
		stripe.EventTypePaymentIntentSucceeded:               p.handlePaymentIntent(statusSucceeded),
		stripe.EventTypePaymentIntentCanceled:                p.handlePaymentIntent(statusCanceled),
		stripe.EventTypePaymentIntentPaymentFailed:           p.handlePaymentIntent(statusFailed),
		stripe.EventTypePaymentIntentProcessing:              p.handlePaymentIntent(statusProcessing),
		stripe.EventTypeChargeRefunded:                       p.handleChargeRefunded,
	}

	return p
}

// Internal statuses; kept local so the provider package stays free of entity imports.
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
	statusRefunded   = "refunded"
)

func (p *StripeProvider) Code() string {
	return CodeStripe
}

// ServerMode reports whether the configured key talks to live or test mode.
func (p *StripeProvider) ServerMode() string {
	if strings.HasPrefix(strings.TrimSpace(p.cfg.SecretKey), "sk_live_") {
		return "live"
	}
	return "test"
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutOutput, error) {
	if p.client == nil {
		return nil, errors.New("stripe secret key is not configured")
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		Metadata:   input.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: input.Metadata,
		},
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(input.Currency)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(input.ProductName),
					},
					UnitAmount: stripe.Int64(input.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if input.OrderID != "" {
		params.ClientReferenceID = stripe.String(input.OrderID)
	}
	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	session, err := p.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}

	out := &CheckoutOutput{
		SessionID: session.ID,
		URL:       session.URL,
		Livemode:  session.Livemode,
	}
	if session.PaymentIntent != nil {
		out.PaymentIntentID = session.PaymentIntent.ID
	}
	return out, nil
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, input *PaymentIntentInput) (*PaymentIntent, error) {
	if p.client == nil {
		return nil, errors.New("stripe secret key is not configured")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(input.Amount),
		Currency: stripe.String(strings.ToLower(input.Currency)),
		Metadata: input.Metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(input.ReceiptEmail)
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	intent, err := p.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return toPaymentIntent(intent), nil
}

func (p *StripeProvider) RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	if p.client == nil {
		return nil, errors.New("stripe secret key is not configured")
	}

	intent, err := p.client.V1PaymentIntents.Retrieve(ctx, paymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}
	return toPaymentIntent(intent), nil
}

func (p *StripeProvider) CancelPaymentIntent(ctx context.Context, paymentIntentID string) error {
	if p.client == nil {
		return errors.New("stripe secret key is not configured")
	}

	if _, err := p.client.V1PaymentIntents.Cancel(ctx, paymentIntentID, &stripe.PaymentIntentCancelParams{}); err != nil {
		return fmt.Errorf("stripe cancel payment intent: %w", err)
	}
	return nil
}

func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                time.Duration(p.cfg.SignatureToleranceSeconds) * time.Second,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &WebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Kind:     EventIgnored,
		Livemode: event.Livemode,
	}

	handler, ok := p.handlers[event.Type]
	if !ok {
		return result, nil
	}
	if event.Data == nil {
		return result, ErrMalformedEvent
	}
	if err := handler(&event, result); err != nil {
		result.Kind = EventIgnored
		return result, err
	}
	return result, nil
}

// handleCheckoutSession maps a session event. A fixed status wins, otherwise the status
// follows the session payment_status.
func (p *StripeProvider) handleCheckoutSession(fixed string) stripeEventHandler {
	return func(event *stripe.Event, result *WebhookEvent) error {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if strings.TrimSpace(session.ID) == "" {
			return ErrMalformedEvent
		}

		out := &CheckoutSession{
			ID:            session.ID,
			PaymentStatus: string(session.PaymentStatus),
			AmountTotal:   session.AmountTotal,
			Currency:      string(session.Currency),
			CustomerEmail: session.CustomerEmail,
			Metadata:      session.Metadata,
		}
		if out.CustomerEmail == "" && session.CustomerDetails != nil {
			out.CustomerEmail = session.CustomerDetails.Email
		}
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}

		result.Kind = EventCheckoutSession
		result.Session = out
		result.Status = fixed
		if fixed == "" {
			result.Status = MapCheckoutPaymentStatus(out.PaymentStatus)
		}
		return nil
	}
}

func (p *StripeProvider) handlePaymentIntent(status string) stripeEventHandler {
	return func(event *stripe.Event, result *WebhookEvent) error {
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if strings.TrimSpace(intent.ID) == "" {
			return ErrMalformedEvent
		}

		result.Kind = EventPaymentIntent
		result.PaymentIntent = toPaymentIntent(&intent)
		result.Status = status
		return nil
	}
}

func (p *StripeProvider) handleChargeRefunded(event *stripe.Event, result *WebhookEvent) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if charge.PaymentIntent == nil || strings.TrimSpace(charge.PaymentIntent.ID) == "" {
		return ErrMalformedEvent
	}

	result.Kind = EventRefund
	result.Refund = &Refund{
		ChargeID:        charge.ID,
		PaymentIntentID: charge.PaymentIntent.ID,
		AmountRefunded:  charge.AmountRefunded,
		Currency:        string(charge.Currency),
	}
	result.Status = statusRefunded
	return nil
}

// MapCheckoutPaymentStatus maps a session payment_status to an internal status.
func MapCheckoutPaymentStatus(paymentStatus string) string {
	switch paymentStatus {
	case string(stripe.CheckoutSessionPaymentStatusPaid), string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired):
		return statusSucceeded
	default:
		return statusPending
	}
}

// MapPaymentIntentStatus maps an intent status read back from the API. Statuses that wait
// on the customer map to "" so they never move a record.
func MapPaymentIntentStatus(status string) string {
	switch stripe.PaymentIntentStatus(status) {
	case stripe.PaymentIntentStatusSucceeded:
		return statusSucceeded
	case stripe.PaymentIntentStatusProcessing:
		return statusProcessing
	case stripe.PaymentIntentStatusCanceled:
		return statusCanceled
	default:
		return ""
	}
}

func toPaymentIntent(intent *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           intent.ID,
		Status:       string(intent.Status),
		MappedStatus: MapPaymentIntentStatus(string(intent.Status)),
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Livemode:     intent.Livemode,
		Metadata:     intent.Metadata,
	}
}
