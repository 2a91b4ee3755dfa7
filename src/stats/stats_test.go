package stats_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/model"
	"tradingjournal/src/stats"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func day(n int) time.Time {
	return time.Date(2025, time.March, n, 0, 0, 0, 0, time.UTC)
}

func position(id uint, created time.Time, realized string) stats.Position {
	return stats.Position{
		ID:          id,
		CreatedAt:   created,
		RealizedPnl: d(realized),
	}
}

func TestBuildReportEmpty(t *testing.T) {
	report := stats.BuildReport(nil, nil, day(1), day(3), 0, 100)

	assert.Equal(t, 0, report.Summary.Overview.TotalTrades)
	assert.True(t, report.Summary.Overview.TotalPnl.IsZero())
	assert.True(t, report.Summary.Performance.WinRate.IsZero())
	assert.Equal(t, 0, report.Summary.Streaks.CurrentStreak)
	assert.Empty(t, report.StrategyAnalysis)

	// the daily series still covers the whole window
	require.Len(t, report.DailyPnl, 3)
	assert.Equal(t, "2025-03-01", report.DailyPnl[0].Date)
	assert.True(t, report.DailyPnl[2].CumulativePnl.IsZero())
}

func TestOverviewAveragesOverTradingDays(t *testing.T) {
	positions := []stats.Position{
		{ID: 1, CreatedAt: day(1), RealizedPnl: d("100"), TotalVolume: 10},
		{ID: 2, CreatedAt: day(1), RealizedPnl: d("-40"), TotalVolume: 20},
		{ID: 3, CreatedAt: day(2), RealizedPnl: d("60"), TotalVolume: 30},
	}

	report := stats.BuildReport(positions, nil, day(1), day(2), 0, 100)
	overview := report.Summary.Overview

	assert.Equal(t, 3, overview.TotalTrades)
	assert.Equal(t, int64(60), overview.TotalVolume)
	assert.True(t, overview.TotalPnl.Equal(d("120")), overview.TotalPnl.String())
	assert.True(t, overview.AvgTradeSize.Equal(d("20")))
	// two distinct trading days
	assert.True(t, overview.AvgDailyPnl.Equal(d("60")))
	assert.True(t, overview.AvgDailyVolume.Equal(d("30")))
}

func TestPerformanceSplitsOutcomes(t *testing.T) {
	positions := []stats.Position{
		position(1, day(1), "300"),
		position(2, day(1), "100"),
		position(3, day(2), "-200"),
		position(4, day(3), "0"),
	}

	perf := stats.BuildReport(positions, nil, day(1), day(3), 0, 100).Summary.Performance

	assert.Equal(t, 2, perf.WinningTrades)
	assert.Equal(t, 1, perf.LosingTrades)
	assert.Equal(t, 1, perf.BreakevenTrades)
	assert.True(t, perf.WinRate.Equal(d("50")), perf.WinRate.String())
	assert.True(t, perf.ProfitFactor.Equal(d("2")), perf.ProfitFactor.String())
	assert.True(t, perf.AvgWin.Equal(d("200")))
	assert.True(t, perf.AvgLoss.Equal(d("-200")))
	assert.True(t, perf.LargestWin.Equal(d("300")))
	assert.True(t, perf.LargestLoss.Equal(d("-200")))
}

func TestProfitFactorZeroWithoutLosses(t *testing.T) {
	positions := []stats.Position{position(1, day(1), "100")}

	perf := stats.BuildReport(positions, nil, day(1), day(1), 0, 100).Summary.Performance

	assert.True(t, perf.ProfitFactor.IsZero())
}

func TestDailyStatsClassifiesDays(t *testing.T) {
	positions := []stats.Position{
		position(1, day(1), "100"),
		position(2, day(1), "-30"), // day 1 nets positive
		position(3, day(2), "-50"),
		position(4, day(3), "20"),
		position(5, day(3), "-20"), // day 3 nets to zero
	}

	daily := stats.BuildReport(positions, nil, day(1), day(3), 4, 100).Summary.DailyStats

	assert.Equal(t, 3, daily.TotalTradingDays)
	assert.Equal(t, 1, daily.WinningDays)
	assert.Equal(t, 1, daily.LosingDays)
	assert.Equal(t, 1, daily.BreakevenDays)
	assert.Equal(t, int64(4), daily.OpenTrades)
}

func TestRiskMetrics(t *testing.T) {
	positions := []stats.Position{
		{
			ID: 1, CreatedAt: day(1), RealizedPnl: d("150"),
			EntryPrice: d("100"), StopLoss: d("90"),
			TakeProfit1: d("110"), TakeProfit2: d("120"),
			TotalVolume: 10,
		},
		{
			ID: 2, CreatedAt: day(2), RealizedPnl: d("-50"),
			EntryPrice: d("200"), StopLoss: d("180"),
			TakeProfit1: d("240"),
			TotalVolume: 10,
		},
	}

	risk := stats.BuildReport(positions, nil, day(1), day(2), 0, 100).Summary.RiskMetrics

	// avg win 150, avg loss 50
	assert.True(t, risk.WinLossRatio.Equal(d("3")), risk.WinLossRatio.String())
	// reward (20*10 + 40*10) over risk (10*10 + 20*10)
	assert.True(t, risk.RiskRewardRatio.Equal(d("2")), risk.RiskRewardRatio.String())
	// 0.5*150 - 0.5*50
	assert.True(t, risk.Expectancy.Equal(d("50")), risk.Expectancy.String())
	// (100 + 200) / 2
	assert.True(t, risk.AvgRiskPerTrade.Equal(d("150")), risk.AvgRiskPerTrade.String())
}

func TestStreaks(t *testing.T) {
	positions := []stats.Position{
		position(1, day(1), "10"),
		position(2, day(2), "20"),
		position(3, day(3), "30"),
		position(4, day(4), "-5"),
		position(5, day(5), "-5"),
	}

	streaks := stats.BuildReport(positions, nil, day(1), day(5), 0, 100).Summary.Streaks

	assert.Equal(t, -2, streaks.CurrentStreak)
	assert.Equal(t, 3, streaks.MaxWinningStreak)
	assert.Equal(t, 2, streaks.MaxLosingStreak)
	assert.Equal(t, 3, streaks.MaxConsecutiveWinDays)
	assert.Equal(t, 2, streaks.MaxConsecutiveLossDays)
}

func TestStreaksIgnoreInputOrder(t *testing.T) {
	ordered := []stats.Position{
		position(1, day(1), "10"),
		position(2, day(2), "-5"),
		position(3, day(3), "10"),
	}
	shuffled := []stats.Position{ordered[2], ordered[0], ordered[1]}

	a := stats.BuildReport(ordered, nil, day(1), day(3), 0, 100).Summary.Streaks
	b := stats.BuildReport(shuffled, nil, day(1), day(3), 0, 100).Summary.Streaks

	assert.Equal(t, a, b)
	assert.Equal(t, 1, a.CurrentStreak)
}

func TestDailyPnlSeries(t *testing.T) {
	transactions := []stats.Transaction{
		{Date: day(1), Type: model.TransactionTypeBuy, Price: d("100"), Volume: 10, AveragePrice: d("100")},
		{Date: day(2), Type: model.TransactionTypeSell, Price: d("110"), Volume: 5, AveragePrice: d("100")},
		{Date: day(2), Type: model.TransactionTypeSell, Price: d("95"), Volume: 2, AveragePrice: d("100")},
		{Date: day(4), Type: model.TransactionTypeSell, Price: d("120"), Volume: 3, AveragePrice: d("100")},
	}

	series := stats.BuildReport(nil, transactions, day(1), day(4), 0, 100).DailyPnl
	require.Len(t, series, 4)

	// buys log a trade but carry no P/L
	assert.Equal(t, 1, series[0].TradesCount)
	assert.True(t, series[0].Pnl.IsZero())

	// (110-100)*5*100 + (95-100)*2*100
	assert.True(t, series[1].Pnl.Equal(d("4000")), series[1].Pnl.String())
	assert.Equal(t, 1, series[1].WinningTrades)
	assert.Equal(t, 1, series[1].LosingTrades)

	// empty day still appears with carried cumulative
	assert.True(t, series[2].Pnl.IsZero())
	assert.True(t, series[2].CumulativePnl.Equal(d("4000")))

	assert.True(t, series[3].Pnl.Equal(d("6000")))
	assert.True(t, series[3].CumulativePnl.Equal(d("10000")))
}

func TestStrategyAnalysis(t *testing.T) {
	positions := []stats.Position{
		{ID: 1, CreatedAt: day(1), RealizedPnl: d("100"), Strategy: "breakout"},
		{ID: 2, CreatedAt: day(2), RealizedPnl: d("-40"), Strategy: "breakout"},
		{ID: 3, CreatedAt: day(3), RealizedPnl: d("60"), Strategy: "swing"},
		{ID: 4, CreatedAt: day(4), RealizedPnl: d("10")}, // no strategy
	}

	analysis := stats.BuildReport(positions, nil, day(1), day(4), 0, 100).StrategyAnalysis
	require.Len(t, analysis, 2)

	breakout := analysis["breakout"]
	assert.Equal(t, 2, breakout.TotalTrades)
	assert.True(t, breakout.TotalPnl.Equal(d("60")))
	assert.True(t, breakout.WinRate.Equal(d("50")))
	assert.True(t, breakout.AvgProfit.Equal(d("100")))
	assert.True(t, breakout.AvgLoss.Equal(d("-40")))
	// 0.5*100 - 0.5*40
	assert.True(t, breakout.Expectancy.Equal(d("30")), breakout.Expectancy.String())

	swing := analysis["swing"]
	assert.Equal(t, 1, swing.TotalTrades)
	assert.True(t, swing.WinRate.Equal(d("100")))
}
