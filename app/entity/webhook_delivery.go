package entity

import "time"

const (
	WebhookDeliveryProcessed = "processed"
	WebhookDeliveryIgnored   = "ignored"
	WebhookDeliveryRejected  = "rejected"
	WebhookDeliveryFailed    = "failed"
)

type WebhookDelivery struct {
	ID uint64

	PaymentRecordID *uint64

	Provider        string
	ProviderEventID *string
	EventType       *string
	Signature       string
	PayloadJSON     string
	Status          string
	Error           *string

	CreatedAt time.Time
}
