package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

var (
	ErrTransferNotFound      = errors.New("transfer not found")
	ErrTransferCodeTaken     = errors.New("transfer code already taken")
	ErrTransferStatusChanged = errors.New("transfer status changed concurrently")
)

type TransferFilter struct {
	UserID        *uint64
	BeneficiaryID *uint64
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Limit         int32
	Offset        int32
}

type TransferRepository struct {
	db DBTX
}

func NewTransferRepository(db DBTX) *TransferRepository {
	return &TransferRepository{db: db}
}

const transferColumns = `
	id, user_id, beneficiaire_id, devise_source_id, devise_cible_id,
	taux_echange_id, taux_applique, montant_envoie, frais, total_ttc,
	montant_gnf, total_gnf, statut, mode_reception, code,
	receveur_nom_complet, receveur_phone, quartier, withdrawn_at, canceled_at,
	created_at, updated_at
`

func (r *TransferRepository) Create(ctx context.Context, transfer *entity.Transfer) error {
	query := `
		INSERT INTO transferts (
			user_id, beneficiaire_id, devise_source_id, devise_cible_id,
			taux_echange_id, taux_applique, montant_envoie, frais, total_ttc,
			montant_gnf, total_gnf, statut, mode_reception, code,
			receveur_nom_complet, receveur_phone, quartier,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(transfer.UserID),
		transfer.BeneficiaryID,
		transfer.SourceCurrencyID,
		transfer.TargetCurrencyID,
		transfer.ExchangeRateID,
		transfer.AppliedRate,
		transfer.Principal.StringFixed(2),
		transfer.Fee.StringFixed(2),
		transfer.TotalTTC.StringFixed(2),
		transfer.AmountGNF,
		transfer.TotalGNF,
		transfer.Status,
		transfer.ReceptionMode,
		transfer.Code,
		nullableStringValue(transfer.RecipientFullName),
		nullableStringValue(transfer.RecipientPhone),
		nullableStringValue(transfer.District),
		transfer.CreatedAt,
		transfer.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransferCodeTaken
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	transfer.ID = uint64(id)
	return nil
}

// UpdateContact rewrites the recipient contact fields of a transfer still in the given status.
func (r *TransferRepository) UpdateContact(ctx context.Context, transfer *entity.Transfer, expectedStatus string) error {
	query := `
		UPDATE transferts SET
			receveur_nom_complet = ?,
			receveur_phone = ?,
			quartier = ?,
			updated_at = ?
		WHERE id = ? AND statut = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(transfer.RecipientFullName),
		nullableStringValue(transfer.RecipientPhone),
		nullableStringValue(transfer.District),
		transfer.UpdatedAt,
		transfer.ID,
		expectedStatus,
	)
	if err != nil {
		return err
	}
	return r.checkConditionalUpdate(ctx, result, transfer.ID)
}

// TransitionStatus moves a transfer from one status to another. It fails with
// ErrTransferStatusChanged when the row is no longer in the from status.
func (r *TransferRepository) TransitionStatus(ctx context.Context, id uint64, from, to string, at time.Time) error {
	query := `
		UPDATE transferts SET
			statut = ?,
			withdrawn_at = CASE WHEN ? = ? THEN ? ELSE withdrawn_at END,
			canceled_at = CASE WHEN ? = ? THEN ? ELSE canceled_at END,
			updated_at = ?
		WHERE id = ? AND statut = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		to,
		to, entity.TransferStatusWithdrawn, at,
		to, entity.TransferStatusCanceled, at,
		at,
		id,
		from,
	)
	if err != nil {
		return err
	}
	return r.checkConditionalUpdate(ctx, result, id)
}

func (r *TransferRepository) FindByID(ctx context.Context, id uint64) (*entity.Transfer, error) {
	return r.findOne(ctx, `SELECT `+transferColumns+` FROM transferts WHERE id = ?`, id)
}

func (r *TransferRepository) FindByCode(ctx context.Context, code string) (*entity.Transfer, error) {
	return r.findOne(ctx, `SELECT `+transferColumns+` FROM transferts WHERE code = ?`, code)
}

func (r *TransferRepository) List(ctx context.Context, filter TransferFilter) ([]*entity.Transfer, error) {
	conditions := make([]string, 0, 7)
	args := make([]interface{}, 0, 9)

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.BeneficiaryID != nil {
		conditions = append(conditions, "beneficiaire_id = ?")
		args = append(args, *filter.BeneficiaryID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "statut = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filter.CreatedTo)
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, "montant_envoie >= ?")
		args = append(args, nullableDecimalValue(filter.MinAmount))
	}
	if filter.MaxAmount != nil {
		conditions = append(conditions, "montant_envoie <= ?")
		args = append(args, nullableDecimalValue(filter.MaxAmount))
	}

	query := `SELECT ` + transferColumns + ` FROM transferts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transfer, 0)
	for rows.Next() {
		item, err := scanTransfer(rows)
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

func (r *TransferRepository) checkConditionalUpdate(ctx context.Context, result sql.Result, id uint64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrTransferNotFound
	}
	return ErrTransferStatusChanged
}

func (r *TransferRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Transfer, error) {
	item, err := scanTransfer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func scanTransfer(scanner rowScanner) (*entity.Transfer, error) {
	var (
		item              entity.Transfer
		userID            sql.NullInt64
		recipientFullName sql.NullString
		recipientPhone    sql.NullString
		district          sql.NullString
		withdrawnAt       sql.NullTime
		canceledAt        sql.NullTime
	)

	err := scanner.Scan(
		&item.ID,
		&userID,
		&item.BeneficiaryID,
		&item.SourceCurrencyID,
		&item.TargetCurrencyID,
		&item.ExchangeRateID,
		&item.AppliedRate,
		&item.Principal,
		&item.Fee,
		&item.TotalTTC,
		&item.AmountGNF,
		&item.TotalGNF,
		&item.Status,
		&item.ReceptionMode,
		&item.Code,
		&recipientFullName,
		&recipientPhone,
		&district,
		&withdrawnAt,
		&canceledAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.UserID = uint64PtrFromNull(userID)
	item.RecipientFullName = stringPtrFromNull(recipientFullName)
	item.RecipientPhone = stringPtrFromNull(recipientPhone)
	item.District = stringPtrFromNull(district)
	item.WithdrawnAt = timePtrFromNull(withdrawnAt)
	item.CanceledAt = timePtrFromNull(canceledAt)

	return &item, nil
}
