package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type BeneficiaryRepository struct {
	db DBTX
}

func NewBeneficiaryRepository(db DBTX) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

func (r *BeneficiaryRepository) FindByID(ctx context.Context, id uint64) (*entity.Beneficiary, error) {
	query := `
		SELECT id, user_id, nom, prenom, phone
		FROM beneficiaires
		WHERE id = ? AND deleted_at IS NULL
	`

	var item entity.Beneficiary
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.UserID,
		&item.LastName,
		&item.FirstName,
		&item.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
