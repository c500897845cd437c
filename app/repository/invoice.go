package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

var ErrInvoiceAlreadyExists = errors.New("invoice already exists for transfer")

type InvoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO factures (
			transfert_id, type, statut, envoye,
			nom_societe, adresse_societe, phone_societe, email_societe,
			total, montant_du, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		invoice.TransferID,
		invoice.Type,
		invoice.Status,
		invoice.Sent,
		invoice.CompanyName,
		invoice.CompanyAddress,
		invoice.CompanyPhone,
		invoice.CompanyEmail,
		invoice.Total.StringFixed(2),
		invoice.AmountDue.StringFixed(2),
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrInvoiceAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	invoice.ID = uint64(id)
	return nil
}

func (r *InvoiceRepository) FindByTransferID(ctx context.Context, transferID uint64) (*entity.Invoice, error) {
	query := `
		SELECT id, transfert_id, type, statut, envoye,
			nom_societe, adresse_societe, phone_societe, email_societe,
			total, montant_du, created_at, updated_at
		FROM factures
		WHERE transfert_id = ?
	`

	var item entity.Invoice
	err := r.db.QueryRowContext(ctx, query, transferID).Scan(
		&item.ID,
		&item.TransferID,
		&item.Type,
		&item.Status,
		&item.Sent,
		&item.CompanyName,
		&item.CompanyAddress,
		&item.CompanyPhone,
		&item.CompanyEmail,
		&item.Total,
		&item.AmountDue,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
