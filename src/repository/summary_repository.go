package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

// SummaryRepository persists derived position summaries.
type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository() *SummaryRepository {
	return &SummaryRepository{
		db: database.MainDB,
	}
}

func (r *SummaryRepository) WithDB(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert replaces the summary row of a position wholesale, keyed by
// position ID. The summary is a cache of the transaction log, so a full
// replace is always correct.
func (r *SummaryRepository) Upsert(
	ctx context.Context,
	summary *model.TradingPositionSummary,
) error {

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trading_position_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_volume",
			"average_price",
			"realized_pnl",
			"unrealized_pnl",
			"total_pnl",
			"updated_at",
		}),
	}).Create(summary).Error
}
