package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradingjournal/src/model"
)

// Position is one closed position joined with its summary, the unit every
// statistic is derived from.
type Position struct {
	ID           uint
	Strategy     string
	EntryPrice   decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit1  decimal.Decimal `gorm:"column:take_profit_1"`
	TakeProfit2  decimal.Decimal `gorm:"column:take_profit_2"`
	TotalVolume  int64
	AveragePrice decimal.Decimal
	RealizedPnl  decimal.Decimal
	CreatedAt    time.Time
}

// Transaction is a fill belonging to a closed position, used for the daily
// P/L series. AveragePrice carries the position's average buy price.
type Transaction struct {
	Date         time.Time
	Type         string
	Price        decimal.Decimal
	Volume       int64
	AveragePrice decimal.Decimal
}

type Overview struct {
	TotalPnl       decimal.Decimal `json:"total_pnl"`
	TotalTrades    int             `json:"total_trades"`
	TotalVolume    int64           `json:"total_volume"`
	AvgTradeSize   decimal.Decimal `json:"avg_trade_size"`
	AvgDailyPnl    decimal.Decimal `json:"avg_daily_pnl"`
	AvgDailyVolume decimal.Decimal `json:"avg_daily_volume"`
}

type Performance struct {
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	BreakevenTrades int             `json:"breakeven_trades"`
	WinRate         decimal.Decimal `json:"win_rate"`
	ProfitFactor    decimal.Decimal `json:"profit_factor"`
	AvgWin          decimal.Decimal `json:"avg_win"`
	AvgLoss         decimal.Decimal `json:"avg_loss"`
	LargestWin      decimal.Decimal `json:"largest_win"`
	LargestLoss     decimal.Decimal `json:"largest_loss"`
}

type DailyStats struct {
	TotalTradingDays int   `json:"total_trading_days"`
	WinningDays      int   `json:"winning_days"`
	LosingDays       int   `json:"losing_days"`
	BreakevenDays    int   `json:"breakeven_days"`
	LoggedDays       int   `json:"logged_days"`
	OpenTrades       int64 `json:"open_trades"`
}

type RiskMetrics struct {
	WinLossRatio    decimal.Decimal `json:"win_loss_ratio"`
	RiskRewardRatio decimal.Decimal `json:"risk_reward_ratio"`
	Expectancy      decimal.Decimal `json:"expectancy"`
	AvgRiskPerTrade decimal.Decimal `json:"avg_risk_per_trade"`
}

type Streaks struct {
	CurrentStreak          int `json:"current_streak"`
	MaxWinningStreak       int `json:"max_winning_streak"`
	MaxLosingStreak        int `json:"max_losing_streak"`
	MaxConsecutiveWinDays  int `json:"max_consecutive_win_days"`
	MaxConsecutiveLossDays int `json:"max_consecutive_loss_days"`
}

type DayPnl struct {
	Date          string          `json:"date"`
	Pnl           decimal.Decimal `json:"pnl"`
	CumulativePnl decimal.Decimal `json:"cumulative_pnl"`
	TradesCount   int             `json:"trades_count"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
}

type StrategyStats struct {
	TotalTrades int             `json:"total_trades"`
	TotalPnl    decimal.Decimal `json:"total_pnl"`
	WinRate     decimal.Decimal `json:"win_rate"`
	AvgProfit   decimal.Decimal `json:"avg_profit"`
	AvgLoss     decimal.Decimal `json:"avg_loss"`
	Expectancy  decimal.Decimal `json:"expectancy"`
}

type Summary struct {
	Overview    Overview    `json:"overview"`
	Performance Performance `json:"performance"`
	DailyStats  DailyStats  `json:"daily_stats"`
	RiskMetrics RiskMetrics `json:"risk_metrics"`
	Streaks     Streaks     `json:"streaks"`
}

// Report is the full stats payload: the aggregate summary, the daily P/L
// series over the requested window and the per-strategy breakdown.
type Report struct {
	Summary          Summary                  `json:"summary"`
	DailyPnl         []DayPnl                 `json:"daily_pnl"`
	StrategyAnalysis map[string]StrategyStats `json:"strategy_analysis"`
}

// BuildReport derives the complete report from already-computed position
// summaries. It is read-only: everything here is a projection over data the
// ledger engine produced, with monetary values rounded to 2dp for output.
func BuildReport(
	positions []Position,
	transactions []Transaction,
	from, to time.Time,
	openTrades int64,
	lotSize int64,
) Report {
	days := groupByDay(positions)

	return Report{
		Summary: Summary{
			Overview:    buildOverview(positions, days),
			Performance: buildPerformance(positions),
			DailyStats:  buildDailyStats(days, openTrades),
			RiskMetrics: buildRiskMetrics(positions),
			Streaks:     buildStreaks(positions, days),
		},
		DailyPnl:         buildDailyPnl(transactions, from, to, lotSize),
		StrategyAnalysis: analyzeStrategies(positions),
	}
}

func groupByDay(positions []Position) map[string][]Position {
	days := map[string][]Position{}
	for _, p := range positions {
		key := p.CreatedAt.Format("2006-01-02")
		days[key] = append(days[key], p)
	}
	return days
}

func sumRealized(positions []Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.RealizedPnl)
	}
	return total
}

func buildOverview(positions []Position, days map[string][]Position) Overview {
	totalPnl := sumRealized(positions)
	tradingDays := len(days)

	var totalVolume int64
	for _, p := range positions {
		totalVolume += p.TotalVolume
	}

	avgTradeSize := decimal.Zero
	if len(positions) > 0 {
		avgTradeSize = decimal.NewFromInt(totalVolume).
			Div(decimal.NewFromInt(int64(len(positions))))
	}
	avgDailyPnl := decimal.Zero
	avgDailyVolume := decimal.Zero
	if tradingDays > 0 {
		avgDailyPnl = totalPnl.Div(decimal.NewFromInt(int64(tradingDays)))
		avgDailyVolume = decimal.NewFromInt(totalVolume).
			Div(decimal.NewFromInt(int64(tradingDays)))
	}

	return Overview{
		TotalPnl:       totalPnl.Round(2),
		TotalTrades:    len(positions),
		TotalVolume:    totalVolume,
		AvgTradeSize:   avgTradeSize.Round(2),
		AvgDailyPnl:    avgDailyPnl.Round(2),
		AvgDailyVolume: avgDailyVolume.Round(2),
	}
}

func splitByOutcome(positions []Position) (winning, losing, breakeven []Position) {
	for _, p := range positions {
		switch {
		case p.RealizedPnl.IsPositive():
			winning = append(winning, p)
		case p.RealizedPnl.IsNegative():
			losing = append(losing, p)
		default:
			breakeven = append(breakeven, p)
		}
	}
	return winning, losing, breakeven
}

func avgRealized(positions []Position) decimal.Decimal {
	if len(positions) == 0 {
		return decimal.Zero
	}
	return sumRealized(positions).Div(decimal.NewFromInt(int64(len(positions))))
}

func buildPerformance(positions []Position) Performance {
	winning, losing, breakeven := splitByOutcome(positions)

	totalWin := sumRealized(winning)
	totalLoss := sumRealized(losing).Abs()

	winRate := decimal.Zero
	if len(positions) > 0 {
		winRate = decimal.NewFromInt(int64(len(winning))).
			Div(decimal.NewFromInt(int64(len(positions)))).
			Mul(decimal.NewFromInt(100))
	}
	profitFactor := decimal.Zero
	if totalLoss.IsPositive() {
		profitFactor = totalWin.Div(totalLoss)
	}

	largestWin := decimal.Zero
	for _, p := range winning {
		if p.RealizedPnl.GreaterThan(largestWin) {
			largestWin = p.RealizedPnl
		}
	}
	largestLoss := decimal.Zero
	for _, p := range losing {
		if p.RealizedPnl.LessThan(largestLoss) {
			largestLoss = p.RealizedPnl
		}
	}

	return Performance{
		WinningTrades:   len(winning),
		LosingTrades:    len(losing),
		BreakevenTrades: len(breakeven),
		WinRate:         winRate.Round(2),
		ProfitFactor:    profitFactor.Round(2),
		AvgWin:          avgRealized(winning).Round(2),
		AvgLoss:         avgRealized(losing).Round(2),
		LargestWin:      largestWin.Round(2),
		LargestLoss:     largestLoss.Round(2),
	}
}

func buildDailyStats(days map[string][]Position, openTrades int64) DailyStats {
	stats := DailyStats{
		TotalTradingDays: len(days),
		LoggedDays:       len(days),
		OpenTrades:       openTrades,
	}
	for _, dayPositions := range days {
		pnl := sumRealized(dayPositions)
		switch {
		case pnl.IsPositive():
			stats.WinningDays++
		case pnl.IsNegative():
			stats.LosingDays++
		default:
			stats.BreakevenDays++
		}
	}
	return stats
}

func buildRiskMetrics(positions []Position) RiskMetrics {
	winning, losing, _ := splitByOutcome(positions)

	avgWin := avgRealized(winning)
	avgLoss := avgRealized(losing).Abs()
	winLossRatio := decimal.Zero
	if avgLoss.IsPositive() {
		winLossRatio = avgWin.Div(avgLoss).Abs()
	}

	return RiskMetrics{
		WinLossRatio:    winLossRatio.Round(2),
		RiskRewardRatio: riskRewardRatio(positions).Round(2),
		Expectancy:      expectancy(positions).Round(2),
		AvgRiskPerTrade: avgRiskPerTrade(positions).Round(2),
	}
}

// riskRewardRatio compares planned reward (distance to the furthest take
// profit) against planned risk (distance to the stop loss), volume weighted,
// over positions that declared both.
func riskRewardRatio(positions []Position) decimal.Decimal {
	totalRisk := decimal.Zero
	totalReward := decimal.Zero

	for _, p := range positions {
		if !p.StopLoss.IsPositive() {
			continue
		}
		tp := p.TakeProfit2
		if !tp.IsPositive() {
			tp = p.TakeProfit1
		}
		if !tp.IsPositive() {
			continue
		}

		volume := decimal.NewFromInt(p.TotalVolume)
		totalRisk = totalRisk.Add(p.EntryPrice.Sub(p.StopLoss).Abs().Mul(volume))
		totalReward = totalReward.Add(tp.Sub(p.EntryPrice).Abs().Mul(volume))
	}

	if !totalRisk.IsPositive() {
		return decimal.Zero
	}
	return totalReward.Div(totalRisk)
}

func expectancy(positions []Position) decimal.Decimal {
	if len(positions) == 0 {
		return decimal.Zero
	}

	winning, losing, _ := splitByOutcome(positions)
	winRate := decimal.NewFromInt(int64(len(winning))).
		Div(decimal.NewFromInt(int64(len(positions))))
	avgWin := avgRealized(winning)
	avgLoss := avgRealized(losing).Abs()

	return winRate.Mul(avgWin).
		Sub(decimal.NewFromInt(1).Sub(winRate).Mul(avgLoss))
}

func avgRiskPerTrade(positions []Position) decimal.Decimal {
	totalRisk := decimal.Zero
	counted := 0
	for _, p := range positions {
		if !p.StopLoss.IsPositive() {
			continue
		}
		totalRisk = totalRisk.Add(
			p.EntryPrice.Sub(p.StopLoss).Abs().
				Mul(decimal.NewFromInt(p.TotalVolume)))
		counted++
	}
	if counted == 0 {
		return decimal.Zero
	}
	return totalRisk.Div(decimal.NewFromInt(int64(counted)))
}

func buildStreaks(positions []Position, days map[string][]Position) Streaks {
	byCreation := make([]Position, len(positions))
	copy(byCreation, positions)
	sort.SliceStable(byCreation, func(i, j int) bool {
		return byCreation[i].CreatedAt.Before(byCreation[j].CreatedAt)
	})

	return Streaks{
		CurrentStreak:          currentStreak(byCreation),
		MaxWinningStreak:       maxStreak(byCreation, true),
		MaxLosingStreak:        maxStreak(byCreation, false),
		MaxConsecutiveWinDays:  maxDayStreak(days, true),
		MaxConsecutiveLossDays: maxDayStreak(days, false),
	}
}

// currentStreak counts the run of same-outcome trades ending at the most
// recent one: positive for a winning run, negative for a losing run.
func currentStreak(byCreation []Position) int {
	if len(byCreation) == 0 {
		return 0
	}

	latest := byCreation[len(byCreation)-1]
	isWinning := latest.RealizedPnl.IsPositive()
	streak := 0

	for i := len(byCreation) - 1; i >= 0; i-- {
		pnl := byCreation[i].RealizedPnl
		if (isWinning && pnl.IsPositive()) || (!isWinning && pnl.IsNegative()) {
			if isWinning {
				streak++
			} else {
				streak--
			}
			continue
		}
		break
	}

	return streak
}

func maxStreak(byCreation []Position, winning bool) int {
	maxRun, run := 0, 0
	for _, p := range byCreation {
		hit := (winning && p.RealizedPnl.IsPositive()) ||
			(!winning && p.RealizedPnl.IsNegative())
		if hit {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun
}

func maxDayStreak(days map[string][]Position, winning bool) int {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	maxRun, run := 0, 0
	for _, k := range keys {
		pnl := sumRealized(days[k])
		hit := (winning && pnl.IsPositive()) || (!winning && pnl.IsNegative())
		if hit {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun
}

// buildDailyPnl walks the window day by day and attributes P/L to SELL
// fills: (sell price - position average price) * volume * lot size.
func buildDailyPnl(transactions []Transaction, from, to time.Time, lotSize int64) []DayPnl {
	byDay := map[string][]Transaction{}
	for _, tx := range transactions {
		key := tx.Date.Format("2006-01-02")
		byDay[key] = append(byDay[key], tx)
	}

	lot := decimal.NewFromInt(lotSize)
	cumulative := decimal.Zero
	var series []DayPnl

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		entry := DayPnl{Date: key, Pnl: decimal.Zero}

		for _, tx := range byDay[key] {
			entry.TradesCount++
			if tx.Type != model.TransactionTypeSell {
				continue
			}
			pnl := tx.Price.Sub(tx.AveragePrice).
				Mul(decimal.NewFromInt(tx.Volume)).
				Mul(lot)
			entry.Pnl = entry.Pnl.Add(pnl)
			switch {
			case pnl.IsPositive():
				entry.WinningTrades++
			case pnl.IsNegative():
				entry.LosingTrades++
			}
		}

		cumulative = cumulative.Add(entry.Pnl)
		entry.Pnl = entry.Pnl.Round(2)
		entry.CumulativePnl = cumulative.Round(2)
		series = append(series, entry)
	}

	return series
}

func analyzeStrategies(positions []Position) map[string]StrategyStats {
	grouped := map[string][]Position{}
	for _, p := range positions {
		if p.Strategy == "" {
			continue
		}
		grouped[p.Strategy] = append(grouped[p.Strategy], p)
	}

	out := map[string]StrategyStats{}
	for strategy, trades := range grouped {
		winning, losing, _ := splitByOutcome(trades)

		winRate := decimal.Zero
		if len(trades) > 0 {
			winRate = decimal.NewFromInt(int64(len(winning))).
				Div(decimal.NewFromInt(int64(len(trades)))).
				Mul(decimal.NewFromInt(100))
		}

		out[strategy] = StrategyStats{
			TotalTrades: len(trades),
			TotalPnl:    sumRealized(trades).Round(2),
			WinRate:     winRate.Round(2),
			AvgProfit:   avgRealized(winning).Round(2),
			AvgLoss:     avgRealized(losing).Round(2),
			Expectancy:  expectancy(trades).Round(2),
		}
	}

	return out
}
