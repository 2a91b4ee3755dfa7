package model

import "github.com/shopspring/decimal"

// CreatePositionPayload is the request body to open a position. Date is the
// trade date of the entry fill in "2006-01-02" form and defaults to today.
type CreatePositionPayload struct {
	Date         *string          `json:"date"`
	Emiten       string           `json:"emiten"`
	Type         string           `json:"type"`
	BuyRangeLow  decimal.Decimal  `json:"buy_range_low"`
	BuyRangeHigh decimal.Decimal  `json:"buy_range_high"`
	EntryPrice   decimal.Decimal  `json:"entry_price"`
	StopLoss     decimal.Decimal  `json:"stop_loss"`
	TakeProfit1  *decimal.Decimal `json:"take_profit_1"`
	TakeProfit2  *decimal.Decimal `json:"take_profit_2"`
	Volume       int64            `json:"volume"`
	Strategy     *string          `json:"strategy"`
	Notes        *string          `json:"notes"`
}

// AddTransactionPayload is the request body to record a fill.
type AddTransactionPayload struct {
	Date   *string         `json:"date"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume"`
	Notes  *string         `json:"notes"`
}
