package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/ledger"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

// InitialPositionNote marks the transaction created together with a position.
const InitialPositionNote = "Initial Position"

// TradingService owns the "add transaction" unit of work: append a
// transaction, replay the full log through the ledger engine, replace the
// summary, and close the position once its volume nets to zero. Every write
// sequence runs inside one database transaction under a per-position lock.
type TradingService struct {
	db           *gorm.DB
	engine       ledger.Engine
	locks        *positionLocks
	positions    *repository.PositionRepository
	transactions *repository.TransactionRepository
	summaries    *repository.SummaryRepository
}

// NewTradingService creates a service bound to the main database, with the
// lot size taken from the environment.
func NewTradingService() *TradingService {
	return NewTradingServiceWithDB(database.MainDB, GetConfig().LotSize)
}

// NewTradingServiceWithDB allows overriding the database and lot size.
// Useful for tests.
func NewTradingServiceWithDB(db *gorm.DB, lotSize int64) *TradingService {
	return &TradingService{
		db:           db,
		engine:       ledger.NewEngine(lotSize),
		locks:        newPositionLocks(),
		positions:    repository.NewPositionRepository().WithDB(db),
		transactions: repository.NewTransactionRepository().WithDB(db),
		summaries:    repository.NewSummaryRepository().WithDB(db),
	}
}

// TransactionInput is one buy/sell fill to record against a position.
type TransactionInput struct {
	Date   *time.Time
	Type   string
	Price  decimal.Decimal
	Volume int64
	Notes  *string
}

// Validate rejects malformed input before any write happens.
func (in TransactionInput) Validate() error {
	errs := newValidationError()

	if in.Type != model.TransactionTypeBuy && in.Type != model.TransactionTypeSell {
		errs.add("type", "must be BUY or SELL")
	}
	if in.Price.IsNegative() {
		errs.add("price", "must not be negative")
	}
	if in.Volume < 1 {
		errs.add("volume", "must be at least 1 lot")
	}

	return errs.orNil()
}

// OpenPositionInput is the payload to create a position with its entry fill.
// Date is the trade date of the entry fill and defaults to now, so past
// trades can be journaled after the fact.
type OpenPositionInput struct {
	Date         *time.Time
	Emiten       string
	Type         string
	BuyRangeLow  decimal.Decimal
	BuyRangeHigh decimal.Decimal
	EntryPrice   decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit1  *decimal.Decimal
	TakeProfit2  *decimal.Decimal
	Volume       int64
	Strategy     *string
	Notes        *string
}

func (in OpenPositionInput) Validate() error {
	errs := newValidationError()

	if in.Emiten == "" {
		errs.add("emiten", "is required")
	} else if len(in.Emiten) > 10 {
		errs.add("emiten", "must be at most 10 characters")
	}
	if in.Type != model.TransactionTypeBuy && in.Type != model.TransactionTypeSell {
		errs.add("type", "must be BUY or SELL")
	}
	if in.BuyRangeLow.IsNegative() {
		errs.add("buy_range_low", "must not be negative")
	}
	if in.BuyRangeHigh.IsNegative() {
		errs.add("buy_range_high", "must not be negative")
	}
	if in.EntryPrice.IsNegative() {
		errs.add("entry_price", "must not be negative")
	}
	if in.StopLoss.IsNegative() {
		errs.add("stop_loss", "must not be negative")
	}
	if in.TakeProfit1 != nil && in.TakeProfit1.IsNegative() {
		errs.add("take_profit_1", "must not be negative")
	}
	if in.TakeProfit2 != nil && in.TakeProfit2.IsNegative() {
		errs.add("take_profit_2", "must not be negative")
	}
	if in.Volume < 1 {
		errs.add("volume", "must be at least 1 lot")
	}

	return errs.orNil()
}

// OpenPosition creates a position and records its initial transaction in a
// single unit of work.
func (s *TradingService) OpenPosition(
	ctx context.Context,
	userID uint,
	input OpenPositionInput,
) (*model.TradingPosition, error) {

	if err := input.Validate(); err != nil {
		return nil, err
	}

	position := &model.TradingPosition{
		UserID:       userID,
		Emiten:       input.Emiten,
		Type:         input.Type,
		BuyRangeLow:  input.BuyRangeLow,
		BuyRangeHigh: input.BuyRangeHigh,
		EntryPrice:   input.EntryPrice,
		StopLoss:     input.StopLoss,
		TakeProfit1:  input.TakeProfit1,
		TakeProfit2:  input.TakeProfit2,
		Status:       model.PositionStatusOpen,
		Strategy:     input.Strategy,
		Notes:        input.Notes,
	}

	note := InitialPositionNote

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.positions.WithDB(tx).Create(ctx, position); err != nil {
			return err
		}
		_, err := s.appendTransaction(ctx, tx, position, TransactionInput{
			Date:   input.Date,
			Type:   input.Type,
			Price:  input.EntryPrice,
			Volume: input.Volume,
			Notes:  &note,
		})
		return err
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"service": "TradingService",
			"op":      "OpenPosition",
			"emiten":  input.Emiten,
		}).WithError(err).Error("Failed to open position")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"service":     "TradingService",
		"op":          "OpenPosition",
		"position_id": position.ID,
		"emiten":      position.Emiten,
	}).Info("Position opened")

	return position, nil
}

// AddTransaction records one fill against an existing position and refreshes
// the derived summary. The whole sequence is atomic: either the transaction
// row, the recomputed summary and a possible status flip all commit, or none
// of them do.
func (s *TradingService) AddTransaction(
	ctx context.Context,
	position *model.TradingPosition,
	input TransactionInput,
) (*model.TradingTransaction, error) {

	if err := input.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(position.ID)
	defer unlock()

	var created *model.TradingTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.appendTransaction(ctx, tx, position, input)
		return err
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"service":     "TradingService",
			"op":          "AddTransaction",
			"position_id": position.ID,
		}).WithError(err).Error("Failed to add transaction")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"service":     "TradingService",
		"op":          "AddTransaction",
		"position_id": position.ID,
		"type":        created.Type,
		"volume":      created.Volume,
		"status":      position.Status,
	}).Info("Transaction recorded")

	return created, nil
}

// DeletePosition removes a position with its transaction log and summary.
func (s *TradingService) DeletePosition(
	ctx context.Context,
	position *model.TradingPosition,
) error {
	unlock := s.locks.lock(position.ID)
	defer unlock()

	return s.positions.Delete(ctx, position)
}

// appendTransaction runs inside an open database transaction: it persists
// the fill, replays the full log through the ledger engine, replaces the
// summary and closes the position when volume nets to zero.
func (s *TradingService) appendTransaction(
	ctx context.Context,
	tx *gorm.DB,
	position *model.TradingPosition,
	input TransactionInput,
) (*model.TradingTransaction, error) {

	date := time.Now()
	if input.Date != nil {
		date = *input.Date
	}

	row := &model.TradingTransaction{
		TradingPositionID: position.ID,
		Date:              date,
		Type:              input.Type,
		Price:             input.Price,
		Volume:            input.Volume,
		Amount:            s.engine.Amount(input.Price, input.Volume).Round(2),
		Notes:             input.Notes,
	}
	if err := s.transactions.WithDB(tx).Create(ctx, row); err != nil {
		return nil, err
	}

	if err := s.refreshSummary(ctx, tx, position); err != nil {
		return nil, err
	}

	return row, nil
}

// refreshSummary recomputes the position summary from the complete
// transaction set and upserts it, then applies the one-directional
// OPEN -> CLOSED status transition.
func (s *TradingService) refreshSummary(
	ctx context.Context,
	tx *gorm.DB,
	position *model.TradingPosition,
) error {

	transactions, err := s.transactions.WithDB(tx).ListByPosition(ctx, position.ID)
	if err != nil {
		return err
	}

	sum := s.engine.ComputeSummary(transactions)

	// Monetary values stay exact inside the engine; rounding to the 2dp
	// column scale happens here, at the persistence boundary. Total is the
	// sum of the rounded legs so the stored invariant holds exactly.
	realized := sum.RealizedPnl.Round(2)
	unrealized := sum.UnrealizedPnl.Round(2)

	row := &model.TradingPositionSummary{
		TradingPositionID: position.ID,
		TotalVolume:       sum.TotalVolume,
		AveragePrice:      sum.AveragePrice.Round(2),
		RealizedPnl:       realized,
		UnrealizedPnl:     unrealized,
		TotalPnl:          realized.Add(unrealized),
	}
	if err := s.summaries.WithDB(tx).Upsert(ctx, row); err != nil {
		return err
	}
	position.Summary = row

	if sum.TotalVolume == 0 && position.Status == model.PositionStatusOpen {
		if err := tx.Model(&model.TradingPosition{}).
			Where("id = ?", position.ID).
			Update("status", model.PositionStatusClosed).Error; err != nil {
			return err
		}
		position.Status = model.PositionStatusClosed
	}

	return nil
}
