package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

var (
	ErrPaymentRecordNotFound      = errors.New("payment record not found")
	ErrPaymentRecordAlreadyExists = errors.New("payment record already exists")
)

type PaymentRecordFilter struct {
	Provider    string
	Status      string
	UserID      *uint64
	OrderID     string
	Unprocessed bool
	Limit       int32
	Offset      int32
}

type PaymentRecordRepository struct {
	db DBTX
}

func NewPaymentRecordRepository(db DBTX) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

const paymentRecordColumns = `
	id, provider, provider_payment_id, session_id, payment_intent_id,
	status, amount, currency, user_id, metadata_json, processed_at,
	created_at, updated_at
`

func (r *PaymentRecordRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	metadataJSON, err := serializeMetadata(record.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payment_records (
			provider, provider_payment_id, session_id, payment_intent_id,
			status, amount, currency, user_id, metadata_json, processed_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.Provider,
		nullableStringValue(record.ProviderPaymentID),
		nullableStringValue(record.SessionID),
		nullableStringValue(record.PaymentIntentID),
		record.Status,
		record.Amount,
		record.Currency,
		nullableUint64Value(record.UserID),
		metadataJSON,
		nullableTimeValue(record.ProcessedAt),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentRecordAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *PaymentRecordRepository) Update(ctx context.Context, record *entity.PaymentRecord) error {
	metadataJSON, err := serializeMetadata(record.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE payment_records SET
			provider_payment_id = ?,
			session_id = ?,
			payment_intent_id = ?,
			status = ?,
			amount = ?,
			currency = ?,
			user_id = ?,
			metadata_json = ?,
			processed_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(record.ProviderPaymentID),
		nullableStringValue(record.SessionID),
		nullableStringValue(record.PaymentIntentID),
		record.Status,
		record.Amount,
		record.Currency,
		nullableUint64Value(record.UserID),
		metadataJSON,
		nullableTimeValue(record.ProcessedAt),
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentRecordAlreadyExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// MySQL reports 0 for an UPDATE that changed nothing; tell it apart from a missing row.
		existing, err := r.FindByID(ctx, record.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrPaymentRecordNotFound
		}
	}

	return nil
}

func (r *PaymentRecordRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.findOne(ctx, `SELECT `+paymentRecordColumns+` FROM payment_records WHERE id = ?`, id)
}

// FindByIDForUpdate takes an exclusive row lock; it must run inside a transaction.
func (r *PaymentRecordRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.PaymentRecord, error) {
	return r.findOne(ctx, `SELECT `+paymentRecordColumns+` FROM payment_records WHERE id = ? FOR UPDATE`, id)
}

// FindBySessionID falls back to the legacy provider_payment_id column.
func (r *PaymentRecordRepository) FindBySessionID(ctx context.Context, sessionID string) (*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentRecordColumns + ` FROM payment_records
		WHERE session_id = ? OR provider_payment_id = ?
		ORDER BY session_id IS NULL, id ASC
		LIMIT 1`
	return r.findOne(ctx, query, sessionID, sessionID)
}

func (r *PaymentRecordRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.PaymentRecord, error) {
	return r.findOne(ctx, `SELECT `+paymentRecordColumns+` FROM payment_records WHERE payment_intent_id = ?`, paymentIntentID)
}

// FindByOrderID prefers the checkout-session record when several share an order id.
func (r *PaymentRecordRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentRecordColumns + ` FROM payment_records
		WHERE order_id = ?
		ORDER BY session_id IS NULL, id ASC
		LIMIT 1`
	return r.findOne(ctx, query, orderID)
}

// FindOrCreateByPaymentIntentID returns the record for the intent, inserting defaults
// when none exists. A concurrent insert of the same intent is resolved by re-reading.
func (r *PaymentRecordRepository) FindOrCreateByPaymentIntentID(
	ctx context.Context,
	paymentIntentID string,
	defaults *entity.PaymentRecord,
) (*entity.PaymentRecord, bool, error) {
	existing, err := r.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil || existing != nil {
		return existing, false, err
	}

	record := *defaults
	record.PaymentIntentID = &paymentIntentID
	if record.Status == "" {
		record.Status = entity.PaymentStatusPending
	}
	if record.Currency == "" {
		record.Currency = entity.DefaultCurrency
	}
	if record.Metadata == nil {
		record.Metadata = map[string]string{}
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := r.Create(ctx, &record); err != nil {
		if errors.Is(err, ErrPaymentRecordAlreadyExists) {
			existing, err = r.FindByPaymentIntentID(ctx, paymentIntentID)
			return existing, false, err
		}
		return nil, false, err
	}
	return &record, true, nil
}

func (r *PaymentRecordRepository) List(ctx context.Context, filter PaymentRecordFilter) ([]*entity.PaymentRecord, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 7)

	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.OrderID != "" {
		conditions = append(conditions, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Unprocessed {
		conditions = append(conditions, "processed_at IS NULL")
	}

	query := `SELECT ` + paymentRecordColumns + ` FROM payment_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.findMany(ctx, query, args...)
}

// Touch moves updated_at forward without changing anything else on the row.
func (r *PaymentRecordRepository) Touch(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_records SET updated_at = ? WHERE id = ?`, at, id)
	return err
}

// ListForReconcile returns pending or processing intent-backed records not touched since before.
func (r *PaymentRecordRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentRecordColumns + ` FROM payment_records
		WHERE status IN (?, ?) AND payment_intent_id IS NOT NULL AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?`
	return r.findMany(ctx, query, entity.PaymentStatusPending, entity.PaymentStatusProcessing, before, limit)
}

func (r *PaymentRecordRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentRecordColumns + ` FROM payment_records
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?`
	return r.findMany(ctx, query, entity.PaymentStatusPending, cutoff, limit)
}

func (r *PaymentRecordRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PaymentRecord, error) {
	record, err := scanPaymentRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *PaymentRecordRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentRecord, 0)
	for rows.Next() {
		item, err := scanPaymentRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPaymentRecord(scanner rowScanner) (*entity.PaymentRecord, error) {
	var (
		record            entity.PaymentRecord
		providerPaymentID sql.NullString
		sessionID         sql.NullString
		paymentIntentID   sql.NullString
		userID            sql.NullInt64
		metadataJSON      sql.NullString
		processedAt       sql.NullTime
	)

	err := scanner.Scan(
		&record.ID,
		&record.Provider,
		&providerPaymentID,
		&sessionID,
		&paymentIntentID,
		&record.Status,
		&record.Amount,
		&record.Currency,
		&userID,
		&metadataJSON,
		&processedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ProviderPaymentID = stringPtrFromNull(providerPaymentID)
	record.SessionID = stringPtrFromNull(sessionID)
	record.PaymentIntentID = stringPtrFromNull(paymentIntentID)
	record.UserID = uint64PtrFromNull(userID)
	record.ProcessedAt = timePtrFromNull(processedAt)

	record.Metadata, err = parseMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
