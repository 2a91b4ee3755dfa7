package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusOpen   = "OPEN"
	PositionStatusClosed = "CLOSED"

	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"
)

// TradingPosition represents one open or closed exposure on a single
// instrument. It owns an append-only list of transactions and exactly one
// derived summary row.
type TradingPosition struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_user_emiten_status;index:idx_user_created_at" json:"user_id"`
	// Emiten is the instrument (stock) symbol, e.g. "BBCA".
	Emiten       string           `gorm:"size:10;not null;index:idx_user_emiten_status;index:idx_emiten" json:"emiten"`
	Type         string           `gorm:"size:4;not null" json:"type"`
	BuyRangeLow  decimal.Decimal  `gorm:"type:decimal(10,2)" json:"buy_range_low"`
	BuyRangeHigh decimal.Decimal  `gorm:"type:decimal(10,2)" json:"buy_range_high"`
	EntryPrice   decimal.Decimal  `gorm:"type:decimal(10,2)" json:"entry_price"`
	StopLoss     decimal.Decimal  `gorm:"type:decimal(10,2)" json:"stop_loss"`
	TakeProfit1  *decimal.Decimal `gorm:"column:take_profit_1;type:decimal(10,2)" json:"take_profit_1,omitempty"`
	TakeProfit2  *decimal.Decimal `gorm:"column:take_profit_2;type:decimal(10,2)" json:"take_profit_2,omitempty"`
	Status       string           `gorm:"size:10;not null;default:OPEN;index:idx_user_emiten_status;index:idx_status" json:"status"`
	Strategy     *string          `gorm:"type:text" json:"strategy,omitempty"`
	Notes        *string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time        `gorm:"index:idx_user_created_at" json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// One-to-many relation: every fill recorded against this position.
	Transactions []TradingTransaction `gorm:"foreignKey:TradingPositionID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`

	// Derived summary, replaced wholesale after every transaction.
	Summary *TradingPositionSummary `gorm:"foreignKey:TradingPositionID;constraint:OnDelete:CASCADE" json:"summary,omitempty"`
}

// TableName keeps the table name aligned with the original schema.
func (TradingPosition) TableName() string {
	return "trading_positions"
}

// IsOwnedBy reports whether the position belongs to the given user.
func (p *TradingPosition) IsOwnedBy(userID uint) bool {
	return p.UserID == userID
}
