package trading

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/logger"
)

// defaultSlippage is the configurable fraction applied to market-order
// fill prices (spec.md §4.4.2: "plus a configurable slippage").
const defaultSlippage = 0.0005

// SimulatedBroker is one strategy's isolated paper-trading account
// (spec.md §4.4.2): cash balance, positions, order matching, and equity
// snapshots. Exactly one SimulatedBroker backs one Strategy.
type SimulatedBroker struct {
	mu          sync.Mutex
	cash        float64
	initialCash float64
	slippage    float64
	positions   map[string]domain.Position
	snapshots   []domain.EquitySnapshot
	lastClose   map[string]float64 // account equity at last close (one entry), for daily_pnl
	log         zerolog.Logger
}

// NewSimulatedBroker constructs a broker seeded with initialCash.
func NewSimulatedBroker(initialCash float64, log zerolog.Logger) *SimulatedBroker {
	return &SimulatedBroker{
		cash:        initialCash,
		initialCash: initialCash,
		slippage:    defaultSlippage,
		positions:   make(map[string]domain.Position),
		lastClose:   make(map[string]float64),
		log:         logger.Component(log, "trading.broker"),
	}
}

// Cash returns the current uninvested cash balance.
func (b *SimulatedBroker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Position returns the current Position for symbol, and whether one exists.
func (b *SimulatedBroker) Position(symbol string) (domain.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	return p, ok
}

// Positions returns a snapshot copy of all held positions.
func (b *SimulatedBroker) Positions() map[string]domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]domain.Position, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

// Equity returns cash + sum of position market values at the given
// per-symbol current prices (invariant I4). Symbols with no price supplied
// contribute zero; callers should always supply the full price set.
func (b *SimulatedBroker) Equity(prices map[string]float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.equityLocked(prices)
}

func (b *SimulatedBroker) equityLocked(prices map[string]float64) float64 {
	total := b.cash
	for symbol, pos := range b.positions {
		total += pos.MarketValue(prices[symbol])
	}
	return total
}

// Buy submits a MARKET or LIMIT buy order sized by targetRatio against
// available cash (spec.md §4.4.3). tickPrice is the current bar's price
// used for MARKET fills and for LIMIT crossing checks. prices supplies the
// current tick's price for every other held symbol, so the fill's equity
// snapshot reflects the whole book (invariant I4/P2), not just this trade.
func (b *SimulatedBroker) Buy(symbol string, orderType domain.OrderType, targetRatio, tickPrice, limitPrice float64, at time.Time, prices map[string]float64) (domain.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fillPrice, ok := b.resolveFillPrice(orderType, domain.SideBuy, tickPrice, limitPrice)
	if !ok {
		return domain.Fill{}, fmt.Errorf("trading: limit buy for %s did not cross (limit %.4f, tick %.4f)", symbol, limitPrice, tickPrice)
	}

	qty := quantizeBuy(b.cash, fillPrice, targetRatio)
	if qty <= 0 {
		return domain.Fill{}, &InsufficientCash{Symbol: symbol, Required: lotSize * fillPrice, Available: b.cash}
	}
	notional := float64(qty) * fillPrice
	if notional > b.cash {
		return domain.Fill{}, &InsufficientCash{Symbol: symbol, Required: notional, Available: b.cash}
	}
	if qty%lotSize != 0 {
		return domain.Fill{}, &LotSizeViolation{Symbol: symbol, Quantity: qty}
	}

	existing, had := b.positions[symbol]
	newQty := qty
	newAvg := fillPrice
	if had {
		newQty = existing.Quantity + qty
		newAvg = (existing.CostBasis() + notional) / float64(newQty)
	}
	b.positions[symbol] = domain.Position{Symbol: symbol, Quantity: newQty, AvgPrice: newAvg, BoughtDate: at}
	b.cash -= notional

	fill := domain.Fill{Symbol: symbol, Side: domain.SideBuy, Quantity: qty, Price: fillPrice, Timestamp: at}
	mv, total := b.bookValueLocked(symbol, fillPrice, prices)
	b.snapshots = append(b.snapshots, domain.EquitySnapshot{
		Timestamp: at, Cash: b.cash, PositionsMV: mv, TotalEquity: total,
	})
	return fill, nil
}

// Sell submits a sell order sized by targetRatio against the held position
// (spec.md §4.4.3), enforcing T+1 settlement (spec.md §4.4.2). prices
// supplies the current tick's price for every other held symbol, so the
// fill's equity snapshot reflects the whole book (invariant I4/P2).
func (b *SimulatedBroker) Sell(symbol string, orderType domain.OrderType, targetRatio, tickPrice, limitPrice float64, at time.Time, prices map[string]float64) (domain.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return domain.Fill{}, &NoPosition{Symbol: symbol}
	}
	if !pos.CanSellToday(at) {
		return domain.Fill{}, &T1Violation{Symbol: symbol}
	}

	fillPrice, crossed := b.resolveFillPrice(orderType, domain.SideSell, tickPrice, limitPrice)
	if !crossed {
		return domain.Fill{}, fmt.Errorf("trading: limit sell for %s did not cross (limit %.4f, tick %.4f)", symbol, limitPrice, tickPrice)
	}

	qty := quantizeSell(pos.Quantity, targetRatio)
	if qty <= 0 {
		return domain.Fill{}, fmt.Errorf("trading: sell quantity resolved to zero for %s", symbol)
	}

	remaining := pos.Quantity - qty
	proceeds := float64(qty) * fillPrice
	if remaining == 0 {
		delete(b.positions, symbol)
	} else {
		pos.Quantity = remaining
		b.positions[symbol] = pos
	}
	b.cash += proceeds

	fill := domain.Fill{Symbol: symbol, Side: domain.SideSell, Quantity: qty, Price: fillPrice, Timestamp: at}
	mv, total := b.bookValueLocked(symbol, fillPrice, prices)
	b.snapshots = append(b.snapshots, domain.EquitySnapshot{
		Timestamp: at, Cash: b.cash, PositionsMV: mv, TotalEquity: total,
	})
	return fill, nil
}

// bookValueLocked sums every held position's market value, using tradePrice
// for symbol (the fill that just executed, more current than a stale tick
// price) and prices for every other symbol, the same full-book computation
// MarkTick uses via equityLocked. Must be called with b.mu held, after the
// trade has been applied to b.positions and b.cash.
func (b *SimulatedBroker) bookValueLocked(symbol string, tradePrice float64, prices map[string]float64) (mv, total float64) {
	for sym, pos := range b.positions {
		p := prices[sym]
		if sym == symbol {
			p = tradePrice
		}
		mv += pos.MarketValue(p)
	}
	return mv, b.cash + mv
}

// resolveFillPrice applies slippage for MARKET orders and crossing logic
// for LIMIT orders (spec.md §4.4.2). It must be called with b.mu held.
func (b *SimulatedBroker) resolveFillPrice(orderType domain.OrderType, side domain.OrderSide, tickPrice, limitPrice float64) (float64, bool) {
	if orderType == domain.OrderMarket {
		if side == domain.SideBuy {
			return tickPrice * (1 + b.slippage), true
		}
		return tickPrice * (1 - b.slippage), true
	}
	// LIMIT: fills only when the opposing tick crosses.
	if side == domain.SideBuy {
		if tickPrice <= limitPrice {
			return tickPrice, true
		}
		return 0, false
	}
	if tickPrice >= limitPrice {
		return tickPrice, true
	}
	return 0, false
}

// MarkTick records an EquitySnapshot for the current tick without any
// fill, used at the end of every clock tick (spec.md §4.4.2: "once per
// clock tick").
func (b *SimulatedBroker) MarkTick(prices map[string]float64, at time.Time) domain.EquitySnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.equityLocked(prices)
	var mv float64
	for symbol, pos := range b.positions {
		mv += pos.MarketValue(prices[symbol])
	}
	snap := domain.EquitySnapshot{Timestamp: at, Cash: b.cash, PositionsMV: mv, TotalEquity: total}
	b.snapshots = append(b.snapshots, snap)
	return snap
}

// DailyPnL returns equity_t - equity_{last_close} for the whole account,
// against the session close recorded via MarkDayClose.
func (b *SimulatedBroker) DailyPnL(prices map[string]float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.equityLocked(prices)
	last, ok := b.lastClose["__account__"]
	if !ok {
		return 0
	}
	return total - last
}

// TotalPnL returns equity_t - initial_cash.
func (b *SimulatedBroker) TotalPnL(prices map[string]float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.equityLocked(prices) - b.initialCash
}

// MarkDayClose records today's closing equity as the baseline for
// tomorrow's daily_pnl computation.
func (b *SimulatedBroker) MarkDayClose(prices map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastClose["__account__"] = b.equityLocked(prices)
}

// EquityCurve returns the recorded EquitySnapshot history.
func (b *SimulatedBroker) EquityCurve() []domain.EquitySnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EquitySnapshot, len(b.snapshots))
	copy(out, b.snapshots)
	return out
}
