package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type WebhookDeliveryRepository struct {
	db DBTX
}

func NewWebhookDeliveryRepository(db DBTX) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{db: db}
}

func (r *WebhookDeliveryRepository) Create(ctx context.Context, delivery *entity.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (
			payment_record_id, provider, provider_event_id, event_type, signature, payload_json, status, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(delivery.PaymentRecordID),
		delivery.Provider,
		nullableStringValue(delivery.ProviderEventID),
		nullableStringValue(delivery.EventType),
		delivery.Signature,
		delivery.PayloadJSON,
		delivery.Status,
		nullableStringValue(delivery.Error),
		delivery.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	delivery.ID = uint64(id)
	return nil
}
