package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingTransaction is an immutable record of a single fill against a
// position. Rows are created once and never updated; they only disappear
// through the cascading delete of their position.
type TradingTransaction struct {
	ID                uint `gorm:"primaryKey" json:"id"`
	TradingPositionID uint `gorm:"not null;index:idx_position_date" json:"trading_position_id"`
	// Date is the trade date (calendar day); intra-day ties are broken by
	// insertion order (ascending ID).
	Date   time.Time       `gorm:"type:date;not null;index:idx_position_date;index:idx_transaction_date" json:"date"`
	Type   string          `gorm:"size:4;not null;index:idx_transaction_type" json:"type"`
	Price  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Volume int64           `gorm:"not null" json:"volume"`
	// Amount is price * volume * lot size. Informational only; P/L is always
	// recomputed from price and volume.
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Notes     *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (TradingTransaction) TableName() string {
	return "trading_transactions"
}
