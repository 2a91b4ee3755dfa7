package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
	"tradingjournal/src/stats"
)

// StatsRepository serves the read-only queries behind the stats endpoints.
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a repository bound to the read-only replica so
// the heavy aggregation reads never touch the primary.
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{
		db: database.ReadOnlyDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *StatsRepository) WithDB(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// ClosedPositions loads every closed position of the user joined with its
// summary. Volume is the total bought volume, not the (zero) net volume of a
// closed position, so size-based metrics stay meaningful.
func (r *StatsRepository) ClosedPositions(
	ctx context.Context,
	userID uint,
) ([]stats.Position, error) {

	var positions []stats.Position

	err := r.db.WithContext(ctx).
		Table("trading_positions").
		Select(`trading_positions.id,
			COALESCE(trading_positions.strategy, '') AS strategy,
			trading_positions.entry_price,
			trading_positions.stop_loss,
			COALESCE(trading_positions.take_profit_1, 0) AS take_profit_1,
			COALESCE(trading_positions.take_profit_2, 0) AS take_profit_2,
			trading_positions.created_at,
			summaries.average_price,
			summaries.realized_pnl,
			(SELECT COALESCE(SUM(volume), 0)
				FROM trading_transactions
				WHERE trading_position_id = trading_positions.id
				AND type = ?) AS total_volume`, model.TransactionTypeBuy).
		Joins(`JOIN trading_position_summaries summaries
			ON summaries.trading_position_id = trading_positions.id`).
		Where("trading_positions.user_id = ?", userID).
		Where("trading_positions.status = ?", model.PositionStatusClosed).
		Scan(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "StatsRepository",
			"op":      "ClosedPositions",
			"user_id": userID,
		}).WithError(err).Error("Failed to load closed positions")

		return nil, err
	}

	return positions, nil
}

// ClosedTransactions loads the fills of the user's closed positions inside
// the date window, each carrying the position's average buy price.
func (r *StatsRepository) ClosedTransactions(
	ctx context.Context,
	userID uint,
	from, to time.Time,
) ([]stats.Transaction, error) {

	var transactions []stats.Transaction

	err := r.db.WithContext(ctx).
		Table("trading_transactions").
		Select(`trading_transactions.date,
			trading_transactions.type,
			trading_transactions.price,
			trading_transactions.volume,
			summaries.average_price`).
		Joins(`JOIN trading_positions positions
			ON positions.id = trading_transactions.trading_position_id`).
		Joins(`JOIN trading_position_summaries summaries
			ON summaries.trading_position_id = positions.id`).
		Where("positions.user_id = ?", userID).
		Where("positions.status = ?", model.PositionStatusClosed).
		Where("trading_transactions.date BETWEEN ? AND ?", from, to).
		Order("trading_transactions.date asc, trading_transactions.id asc").
		Scan(&transactions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "StatsRepository",
			"op":      "ClosedTransactions",
			"user_id": userID,
		}).WithError(err).Error("Failed to load closed transactions")

		return nil, err
	}

	return transactions, nil
}

// CountOpenPositions counts the user's positions that are still open.
func (r *StatsRepository) CountOpenPositions(
	ctx context.Context,
	userID uint,
) (int64, error) {

	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.TradingPosition{}).
		Where("user_id = ?", userID).
		Where("status = ?", model.PositionStatusOpen).
		Count(&count).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "StatsRepository",
			"op":      "CountOpenPositions",
			"user_id": userID,
		}).WithError(err).Error("Failed to count open positions")

		return 0, err
	}

	return count, nil
}
