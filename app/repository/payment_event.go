package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			payment_record_id, event_type, old_status, new_status, provider_event_id, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentRecordID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *PaymentEventRepository) ListByPaymentRecord(ctx context.Context, paymentRecordID uint64) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, payment_record_id, event_type, old_status, new_status, provider_event_id, payload_json, created_at
		FROM payment_events
		WHERE payment_record_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentRecordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		var (
			item            entity.PaymentEvent
			oldStatus       sql.NullString
			providerEventID sql.NullString
			payloadJSON     sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.PaymentRecordID,
			&item.EventType,
			&oldStatus,
			&item.NewStatus,
			&providerEventID,
			&payloadJSON,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.OldStatus = stringPtrFromNull(oldStatus)
		item.ProviderEventID = stringPtrFromNull(providerEventID)
		item.PayloadJSON = stringPtrFromNull(payloadJSON)
		items = append(items, &item)
	}
	return items, rows.Err()
}
