package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradingjournal/src/ledger"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
	"tradingjournal/src/service"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// helper to create a new in memory gorm DB and migrate schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.TradingPosition{},
		&model.TradingTransaction{},
		&model.TradingPositionSummary{},
	); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

func newService(t *testing.T) (*service.TradingService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return service.NewTradingServiceWithDB(db, ledger.DefaultLotSize), db
}

func openTestPosition(t *testing.T, svc *service.TradingService, price string, volume int64) *model.TradingPosition {
	t.Helper()

	opened := time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)
	position, err := svc.OpenPosition(context.Background(), 1, service.OpenPositionInput{
		Date:         &opened,
		Emiten:       "BBCA",
		Type:         model.TransactionTypeBuy,
		BuyRangeLow:  d("9000"),
		BuyRangeHigh: d("9500"),
		EntryPrice:   d(price),
		StopLoss:     d("8800"),
		Volume:       volume,
	})
	require.NoError(t, err)
	require.NotZero(t, position.ID)
	return position
}

func loadSummary(t *testing.T, db *gorm.DB, positionID uint) model.TradingPositionSummary {
	t.Helper()

	var summary model.TradingPositionSummary
	err := db.Where("trading_position_id = ?", positionID).First(&summary).Error
	require.NoError(t, err)
	return summary
}

func addTx(t *testing.T, svc *service.TradingService, position *model.TradingPosition, day int, txType, price string, volume int64) *model.TradingTransaction {
	t.Helper()

	date := time.Date(2025, time.February, day, 0, 0, 0, 0, time.UTC)
	created, err := svc.AddTransaction(context.Background(), position, service.TransactionInput{
		Date:   &date,
		Type:   txType,
		Price:  d(price),
		Volume: volume,
	})
	require.NoError(t, err)
	return created
}

func TestOpenPositionCreatesInitialTransactionAndSummary(t *testing.T) {
	svc, db := newService(t)

	position := openTestPosition(t, svc, "9250", 5)

	var transactions []model.TradingTransaction
	require.NoError(t, db.Where("trading_position_id = ?", position.ID).Find(&transactions).Error)
	require.Len(t, transactions, 1)
	require.Equal(t, model.TransactionTypeBuy, transactions[0].Type)
	require.NotNil(t, transactions[0].Notes)
	require.Equal(t, service.InitialPositionNote, *transactions[0].Notes)
	// amount = 9250 * 5 * 100
	require.True(t, transactions[0].Amount.Equal(d("4625000")), "amount = %s", transactions[0].Amount)

	summary := loadSummary(t, db, position.ID)
	require.EqualValues(t, 5, summary.TotalVolume)
	require.True(t, summary.AveragePrice.Equal(d("9250")))
	require.True(t, summary.RealizedPnl.IsZero())
	require.True(t, summary.UnrealizedPnl.IsZero())
	require.Equal(t, model.PositionStatusOpen, position.Status)
}

func TestAddTransactionRecomputesSummary(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 10)

	addTx(t, svc, position, 10, model.TransactionTypeSell, "120", 4)

	summary := loadSummary(t, db, position.ID)
	require.EqualValues(t, 6, summary.TotalVolume)
	require.True(t, summary.AveragePrice.Equal(d("100")))
	// (120-100) * 4 * 100
	require.True(t, summary.RealizedPnl.Equal(d("8000")), "realized = %s", summary.RealizedPnl)
	// (120-100) * 6 * 100
	require.True(t, summary.UnrealizedPnl.Equal(d("12000")), "unrealized = %s", summary.UnrealizedPnl)
	require.True(t, summary.TotalPnl.Equal(d("20000")))
	require.Equal(t, model.PositionStatusOpen, position.Status)

	// summary row is replaced, never duplicated
	var count int64
	require.NoError(t, db.Model(&model.TradingPositionSummary{}).
		Where("trading_position_id = ?", position.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPositionClosesWhenVolumeNetsToZero(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "50", 10)

	addTx(t, svc, position, 10, model.TransactionTypeSell, "55", 10)

	require.Equal(t, model.PositionStatusClosed, position.Status)

	var stored model.TradingPosition
	require.NoError(t, db.First(&stored, position.ID).Error)
	require.Equal(t, model.PositionStatusClosed, stored.Status)

	summary := loadSummary(t, db, position.ID)
	require.EqualValues(t, 0, summary.TotalVolume)
	require.True(t, summary.RealizedPnl.Equal(d("5000")))
	require.True(t, summary.UnrealizedPnl.IsZero())
}

func TestClosedPositionStaysClosed(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "50", 10)

	addTx(t, svc, position, 10, model.TransactionTypeSell, "55", 10)
	require.Equal(t, model.PositionStatusClosed, position.Status)

	// a later buy reopens the volume but never the status
	addTx(t, svc, position, 11, model.TransactionTypeBuy, "52", 5)

	var stored model.TradingPosition
	require.NoError(t, db.First(&stored, position.ID).Error)
	require.Equal(t, model.PositionStatusClosed, stored.Status)

	summary := loadSummary(t, db, position.ID)
	require.EqualValues(t, 5, summary.TotalVolume)
}

func TestFIFOMatchingAcrossMultipleBuys(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 10)

	addTx(t, svc, position, 10, model.TransactionTypeBuy, "110", 10)
	addTx(t, svc, position, 11, model.TransactionTypeSell, "120", 15)

	summary := loadSummary(t, db, position.ID)
	// (120-100)*10*100 + (120-110)*5*100
	require.True(t, summary.RealizedPnl.Equal(d("25000")), "realized = %s", summary.RealizedPnl)
	require.EqualValues(t, 5, summary.TotalVolume)
	require.True(t, summary.AveragePrice.Equal(d("105")))
}

func TestAddTransactionValidation(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 10)

	tests := []struct {
		name  string
		input service.TransactionInput
		field string
	}{
		{
			name:  "unknown type",
			input: service.TransactionInput{Type: "HOLD", Price: d("100"), Volume: 1},
			field: "type",
		},
		{
			name:  "negative price",
			input: service.TransactionInput{Type: model.TransactionTypeBuy, Price: d("-1"), Volume: 1},
			field: "price",
		},
		{
			name:  "zero volume",
			input: service.TransactionInput{Type: model.TransactionTypeSell, Price: d("100"), Volume: 0},
			field: "volume",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddTransaction(context.Background(), position, tc.input)
			require.Error(t, err)

			var vErr *service.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Contains(t, vErr.Fields, tc.field)
		})
	}

	// nothing beyond the initial fill may have been written
	var count int64
	require.NoError(t, db.Model(&model.TradingTransaction{}).
		Where("trading_position_id = ?", position.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestBackdatedTransactionIsMatchedByDate(t *testing.T) {
	svc, db := newService(t)

	// open on Feb 5, then record a sell on Feb 20 and a backdated buy on Feb 10
	position := openTestPosition(t, svc, "100", 10)
	addTx(t, svc, position, 20, model.TransactionTypeSell, "120", 15)
	addTx(t, svc, position, 10, model.TransactionTypeBuy, "110", 10)

	summary := loadSummary(t, db, position.ID)
	// replayed by date the sell sees both buys: (120-100)*10*100 + (120-110)*5*100
	require.True(t, summary.RealizedPnl.Equal(d("25000")), "realized = %s", summary.RealizedPnl)
	require.EqualValues(t, 5, summary.TotalVolume)
	// latest fill by date is the sell at 120
	require.True(t, summary.UnrealizedPnl.Equal(d("7500")), "unrealized = %s", summary.UnrealizedPnl)
}

func TestOverSellRealizesOnlyOpenLots(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 5)

	addTx(t, svc, position, 10, model.TransactionTypeSell, "120", 10)

	summary := loadSummary(t, db, position.ID)
	require.True(t, summary.RealizedPnl.Equal(d("10000")), "realized = %s", summary.RealizedPnl)
	require.EqualValues(t, -5, summary.TotalVolume)
}

func TestDeletePositionRemovesLogAndSummary(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 10)
	addTx(t, svc, position, 10, model.TransactionTypeSell, "110", 5)

	require.NoError(t, svc.DeletePosition(context.Background(), position))

	var positions, transactions, summaries int64
	require.NoError(t, db.Model(&model.TradingPosition{}).Count(&positions).Error)
	require.NoError(t, db.Model(&model.TradingTransaction{}).Count(&transactions).Error)
	require.NoError(t, db.Model(&model.TradingPositionSummary{}).Count(&summaries).Error)
	require.Zero(t, positions)
	require.Zero(t, transactions)
	require.Zero(t, summaries)
}

func TestConcurrentAddsStayConsistent(t *testing.T) {
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 100)

	const workers = 8
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			date := time.Date(2025, time.March, 1+n, 0, 0, 0, 0, time.UTC)
			_, err := svc.AddTransaction(context.Background(), position, service.TransactionInput{
				Date:   &date,
				Type:   model.TransactionTypeSell,
				Price:  d("110"),
				Volume: 10,
			})
			done <- err
		}(i)
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-done)
	}

	summary := loadSummary(t, db, position.ID)
	require.EqualValues(t, 100-workers*10, summary.TotalVolume)
	// every sell matched lots bought at 100: (110-100) * 80 * 100
	require.True(t, summary.RealizedPnl.Equal(d("80000")), "realized = %s", summary.RealizedPnl)
}

func TestSummarySurvivesServiceRestart(t *testing.T) {
	// a second service over the same database recomputes identical numbers,
	// since the summary is derived purely from the transaction log
	svc, db := newService(t)
	position := openTestPosition(t, svc, "100", 10)
	addTx(t, svc, position, 10, model.TransactionTypeSell, "120", 4)
	before := loadSummary(t, db, position.ID)

	svc2 := service.NewTradingServiceWithDB(db, ledger.DefaultLotSize)
	reloaded, err := repository.NewPositionRepository().WithDB(db).FindByID(context.Background(), position.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)

	addTx(t, svc2, reloaded, 11, model.TransactionTypeSell, "120", 2)

	after := loadSummary(t, db, position.ID)
	require.EqualValues(t, 4, after.TotalVolume)
	// previous realized pnl is preserved and extended: 8000 + (120-100)*2*100
	require.True(t, after.RealizedPnl.Equal(before.RealizedPnl.Add(d("4000"))),
		"realized = %s", after.RealizedPnl)
}
