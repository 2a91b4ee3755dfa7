package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradingjournal/src/model"
)

// DefaultLotSize is the IDX convention: 1 lot = 100 shares.
const DefaultLotSize = 100

// Engine computes position summaries from transaction logs.
// It is pure: no storage access, no hidden state, deterministic output for a
// given input. LotSize scales every price*volume product and must match the
// convention used when transaction amounts were written.
type Engine struct {
	LotSize int64
}

// NewEngine returns an engine for the given lot size. Non-positive values
// fall back to DefaultLotSize.
func NewEngine(lotSize int64) Engine {
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}
	return Engine{LotSize: lotSize}
}

// Summary is the derived rollup of a transaction log. Monetary fields are
// exact decimals; rounding happens at the presentation boundary only.
type Summary struct {
	// TotalVolume is the signed net volume in lots: buys minus sells.
	TotalVolume int64
	// AveragePrice is the lifetime average buy price per share, over all
	// historical buys regardless of how much of them has been sold.
	AveragePrice decimal.Decimal
	// OpenLotAveragePrice is the FIFO cost basis of the still-open lots only.
	// It diverges from AveragePrice once sells have consumed earlier lots.
	OpenLotAveragePrice decimal.Decimal
	RealizedPnl         decimal.Decimal
	UnrealizedPnl       decimal.Decimal
	TotalPnl            decimal.Decimal
}

// lot is an open buy parcel waiting to be matched against sells.
type lot struct {
	price     decimal.Decimal
	remaining int64
}

// Amount returns price * volume * lot size, the informational amount stored
// on every transaction row.
func (e Engine) Amount(price decimal.Decimal, volume int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(volume)).Mul(decimal.NewFromInt(e.LotSize))
}

// ComputeSummary replays the given transactions in date order (ties broken by
// ascending ID, i.e. insertion order) and returns the resulting summary.
//
// Matching is FIFO: each SELL consumes the oldest open BUY lots first and
// realizes (sell price - lot price) * matched volume * lot size. Sell volume
// in excess of all open lots stays unmatched and realizes nothing; there is
// no short-position modeling. The input slice is not modified.
func (e Engine) ComputeSummary(txs []model.TradingTransaction) Summary {
	if len(txs) == 0 {
		return zeroSummary()
	}

	ordered := make([]model.TradingTransaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	lotSize := decimal.NewFromInt(e.LotSize)

	var (
		queue          []lot
		realized       decimal.Decimal
		totalBuyVolume int64
		totalBuyCost   decimal.Decimal // sum of price * volume over all buys
		totalVolume    int64
	)

	for _, tx := range ordered {
		if tx.Type == model.TransactionTypeBuy {
			queue = append(queue, lot{price: tx.Price, remaining: tx.Volume})
			totalBuyVolume += tx.Volume
			totalBuyCost = totalBuyCost.Add(tx.Price.Mul(decimal.NewFromInt(tx.Volume)))
			totalVolume += tx.Volume
			continue
		}

		// SELL: consume from the front of the queue.
		totalVolume -= tx.Volume
		sellRemaining := tx.Volume
		for sellRemaining > 0 && len(queue) > 0 {
			front := &queue[0]
			matched := front.remaining
			if sellRemaining < matched {
				matched = sellRemaining
			}
			pnl := tx.Price.Sub(front.price).
				Mul(decimal.NewFromInt(matched)).
				Mul(lotSize)
			realized = realized.Add(pnl)

			sellRemaining -= matched
			front.remaining -= matched
			if front.remaining == 0 {
				queue = queue[1:]
			}
		}
	}

	averagePrice := decimal.Zero
	if totalBuyVolume > 0 {
		averagePrice = totalBuyCost.Div(decimal.NewFromInt(totalBuyVolume))
	}

	var openVolume int64
	openCost := decimal.Zero
	for _, l := range queue {
		openVolume += l.remaining
		openCost = openCost.Add(l.price.Mul(decimal.NewFromInt(l.remaining)))
	}
	openLotAverage := decimal.Zero
	if openVolume > 0 {
		openLotAverage = openCost.Div(decimal.NewFromInt(openVolume))
	}

	// Mark the open volume against the price of the latest transaction,
	// whatever its type. The slice is date-sorted with ID tie-break, so the
	// last element is the latest fill.
	unrealized := decimal.Zero
	if totalVolume != 0 {
		lastPrice := ordered[len(ordered)-1].Price
		unrealized = lastPrice.Sub(averagePrice).
			Mul(decimal.NewFromInt(totalVolume)).
			Mul(lotSize)
	}

	return Summary{
		TotalVolume:         totalVolume,
		AveragePrice:        averagePrice,
		OpenLotAveragePrice: openLotAverage,
		RealizedPnl:         realized,
		UnrealizedPnl:       unrealized,
		TotalPnl:            realized.Add(unrealized),
	}
}

func zeroSummary() Summary {
	return Summary{
		AveragePrice:        decimal.Zero,
		OpenLotAveragePrice: decimal.Zero,
		RealizedPnl:         decimal.Zero,
		UnrealizedPnl:       decimal.Zero,
		TotalPnl:            decimal.Zero,
	}
}
