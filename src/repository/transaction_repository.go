package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

// TransactionRepository handles persistence of trading transactions.
// Transactions are append-only; there is no update or single-row delete.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		db: database.MainDB,
	}
}

func (r *TransactionRepository) WithDB(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a new transaction row under its position.
func (r *TransactionRepository) Create(
	ctx context.Context,
	transaction *model.TradingTransaction,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":        "TransactionRepository",
		"op":          "Create",
		"position_id": transaction.TradingPositionID,
		"type":        transaction.Type,
		"volume":      transaction.Volume,
	}).Debug("Appending transaction")

	return r.db.WithContext(ctx).Create(transaction).Error
}

// ListByPosition returns the full transaction log of a position in replay
// order: trade date ascending, ties broken by insertion order.
func (r *TransactionRepository) ListByPosition(
	ctx context.Context,
	positionID uint,
) ([]model.TradingTransaction, error) {

	var transactions []model.TradingTransaction
	err := r.db.WithContext(ctx).
		Where("trading_position_id = ?", positionID).
		Order("date asc, id asc").
		Find(&transactions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "TransactionRepository",
			"op":          "ListByPosition",
			"position_id": positionID,
		}).WithError(err).Error("Failed to list transactions")

		return nil, err
	}

	return transactions, nil
}
