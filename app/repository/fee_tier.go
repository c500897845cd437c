package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type FeeTierRepository struct {
	db DBTX
}

func NewFeeTierRepository(db DBTX) *FeeTierRepository {
	return &FeeTierRepository{db: db}
}

// FindApplicable returns the tier with the smallest lower bound whose closed range
// contains amount, or nil when none does.
func (r *FeeTierRepository) FindApplicable(ctx context.Context, amount decimal.Decimal) (*entity.FeeTier, error) {
	query := `
		SELECT id, nom, type, valeur, montant_min, montant_max
		FROM frais
		WHERE montant_min <= ? AND (montant_max IS NULL OR montant_max >= ?)
		ORDER BY montant_min ASC, id ASC
		LIMIT 1
	`

	value := amount.StringFixed(2)
	var (
		item      entity.FeeTier
		maxAmount decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, query, value, value).Scan(
		&item.ID,
		&item.Name,
		&item.Type,
		&item.Value,
		&item.MinAmount,
		&maxAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	item.MaxAmount = decimalPtrFromNull(maxAmount)
	return &item, nil
}
