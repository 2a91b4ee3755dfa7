package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"tradingjournal/src/ledger"
	"tradingjournal/src/model"
)

// backfillPositionSummaries recomputes and inserts summary rows for positions
// that have transactions but no summary. Summaries are pure derivations of
// the transaction log, so replaying the log is always safe.
func backfillPositionSummaries(tx *gorm.DB) error {
	var positionIDs []uint
	err := tx.Model(&model.TradingPosition{}).
		Where("id NOT IN (?)",
			tx.Model(&model.TradingPositionSummary{}).Select("trading_position_id")).
		Pluck("id", &positionIDs).Error
	if err != nil {
		return fmt.Errorf("list positions without summary: %w", err)
	}

	engine := ledger.NewEngine(ledger.DefaultLotSize)

	for _, id := range positionIDs {
		var transactions []model.TradingTransaction
		if err := tx.
			Where("trading_position_id = ?", id).
			Order("date asc, id asc").
			Find(&transactions).Error; err != nil {
			return fmt.Errorf("load transactions for position %d: %w", id, err)
		}
		if len(transactions) == 0 {
			continue
		}

		sum := engine.ComputeSummary(transactions)
		row := model.TradingPositionSummary{
			TradingPositionID: id,
			TotalVolume:       sum.TotalVolume,
			AveragePrice:      sum.AveragePrice,
			RealizedPnl:       sum.RealizedPnl,
			UnrealizedPnl:     sum.UnrealizedPnl,
			TotalPnl:          sum.TotalPnl,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert summary for position %d: %w", id, err)
		}
	}

	return nil
}
