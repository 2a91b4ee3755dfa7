package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

type AccessTokenRepository struct {
	db *gorm.DB
}

func NewAccessTokenRepository() *AccessTokenRepository {
	return &AccessTokenRepository{
		db: database.MainDB,
	}
}

func (r *AccessTokenRepository) WithDB(db *gorm.DB) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

func (r *AccessTokenRepository) Create(
	ctx context.Context,
	token *model.AccessToken,
) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByID loads a token together with its user.
// Returns (nil, nil) if the token does not exist.
func (r *AccessTokenRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.AccessToken, error) {

	var token model.AccessToken
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&token, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

// Touch records the moment the token was last used for authentication.
func (r *AccessTokenRepository) Touch(
	ctx context.Context,
	id uint,
	at time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// DeleteForUser revokes every token a user holds, e.g. on logout or when
// logging out other devices.
func (r *AccessTokenRepository) DeleteForUser(
	ctx context.Context,
	userID uint,
) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.AccessToken{}).Error
}
