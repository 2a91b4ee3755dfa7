package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingPositionSummary is the derived rollup of a position's transaction
// log. It is a pure cache: every field can be recomputed by replaying the
// transactions in date order, and the service replaces the whole row on
// every new transaction.
type TradingPositionSummary struct {
	ID                uint `gorm:"primaryKey" json:"id"`
	TradingPositionID uint `gorm:"not null;uniqueIndex:idx_summary_position" json:"trading_position_id"`
	// TotalVolume is the signed net remaining volume in lots (buys minus sells).
	TotalVolume int64 `gorm:"not null" json:"total_volume"`
	// AveragePrice is the lifetime average buy price per share.
	AveragePrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"average_price"`
	RealizedPnl   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;index:idx_realized_pnl" json:"realized_pnl"`
	UnrealizedPnl decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;index:idx_unrealized_pnl" json:"unrealized_pnl"`
	TotalPnl      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_pnl"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (TradingPositionSummary) TableName() string {
	return "trading_position_summaries"
}
