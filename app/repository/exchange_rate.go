package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type ExchangeRateRepository struct {
	db DBTX
}

func NewExchangeRateRepository(db DBTX) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

func (r *ExchangeRateRepository) FindByID(ctx context.Context, id uint64) (*entity.ExchangeRate, error) {
	return r.findOne(ctx, `
		SELECT id, devise_source_id, devise_cible_id, taux, created_at, updated_at
		FROM taux_echanges
		WHERE id = ?
	`, id)
}

func (r *ExchangeRateRepository) FindByPair(ctx context.Context, sourceCurrencyID, targetCurrencyID uint64) (*entity.ExchangeRate, error) {
	return r.findOne(ctx, `
		SELECT id, devise_source_id, devise_cible_id, taux, created_at, updated_at
		FROM taux_echanges
		WHERE devise_source_id = ? AND devise_cible_id = ?
	`, sourceCurrencyID, targetCurrencyID)
}

func (r *ExchangeRateRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.ExchangeRate, error) {
	var item entity.ExchangeRate
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.SourceCurrencyID,
		&item.TargetCurrencyID,
		&item.Rate,
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
