package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

// PositionRepository handles read/write operations for trading positions.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main
// read/write database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position into the database.
// The given position will be updated with the generated ID and timestamps.
func (r *PositionRepository) Create(
	ctx context.Context,
	position *model.TradingPosition,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "Create",
		"emiten": position.Emiten,
		"type":   position.Type,
	}).Debug("Creating new position")

	err := r.db.WithContext(ctx).Create(position).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create position")

		return err
	}

	return nil
}

// FindByID fetches a single position with its summary and transactions.
// Returns (nil, nil) if the position is not found.
func (r *PositionRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.TradingPosition, error) {

	var position model.TradingPosition

	err := r.db.WithContext(ctx).
		Preload("Summary").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc, id asc")
		}).
		First(&position, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch position by ID")

		return nil, err
	}

	return &position, nil
}

// PositionSearchOptions filters the position listing. DateFrom/DateTo filter
// on the trade dates of the position's transactions, matching the journal
// listing behavior.
type PositionSearchOptions struct {
	UserID   uint
	Emiten   *string
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// Search lists positions for a user with optional filters and pagination.
// It returns the page of positions plus the total match count.
func (r *PositionRepository) Search(
	ctx context.Context,
	options PositionSearchOptions,
) ([]model.TradingPosition, int64, error) {

	query := r.db.WithContext(ctx).
		Model(&model.TradingPosition{}).
		Where("user_id = ?", options.UserID)

	if options.Emiten != nil {
		query = query.Where("emiten = ?", *options.Emiten)
	}
	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}
	if options.DateFrom != nil && options.DateTo != nil {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&model.TradingTransaction{}).
				Select("trading_position_id").
				Where("date BETWEEN ? AND ?", *options.DateFrom, *options.DateTo),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to count positions")

		return nil, 0, err
	}

	query = query.
		Preload("Summary").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc, id asc")
		}).
		Order("created_at DESC, id DESC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit).Offset(options.Offset)
	}

	var positions []model.TradingPosition
	if err := query.Find(&positions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to search positions")

		return nil, 0, err
	}

	return positions, total, nil
}

// Delete removes a position together with its transactions and summary.
// Deletes are explicit rather than relying on FK cascade so the behavior is
// identical on every supported database.
func (r *PositionRepository) Delete(
	ctx context.Context,
	position *model.TradingPosition,
) error {

	logger.WithFields(map[string]interface{}{
		"repo": "PositionRepository",
		"op":   "Delete",
		"id":   position.ID,
	}).Info("Deleting position")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("trading_position_id = ?", position.ID).
			Delete(&model.TradingTransaction{}).Error; err != nil {
			return err
		}
		if err := tx.
			Where("trading_position_id = ?", position.ID).
			Delete(&model.TradingPositionSummary{}).Error; err != nil {
			return err
		}
		return tx.Delete(position).Error
	})
}
