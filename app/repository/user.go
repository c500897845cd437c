package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-remittance/app/entity"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	var item entity.User
	err := r.db.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = ?`, id).Scan(
		&item.ID,
		&item.Name,
		&item.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
